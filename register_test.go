// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLayoutLookup(t *testing.T) {
	layout := newRegisterLayout([]RegisterDescriptor{
		{Name: "r0", Index: 0, SizeBytes: 4},
		{Name: "pc", Index: 15, SizeBytes: 4},
	})

	d, err := layout.lookup("pc")
	require.NoError(t, err)
	assert.Equal(t, uint(15), d.Index)
	assert.Equal(t, uint(4), d.SizeBytes)

	_, err = layout.lookup("nope")
	require.Error(t, err)
	var unknown *ErrRegisterUnknown
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
}

func TestParseTargetXML(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<target>
  <xi:include href="arm-core.xml"/>
  <xi:include href="arm-vfp.xml"/>
</target>`)

	names, err := parseTargetXML(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"arm-core.xml", "arm-vfp.xml"}, names)
}

func TestParseFeatureXML(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<feature name="org.gnu.gdb.arm.core">
  <reg name="r0" bitsize="32"/>
  <reg name="r1" bitsize="32"/>
  <reg name="pc" bitsize="32" regnum="15"/>
  <reg name="cpsr" bitsize="32"/>
</feature>`)

	descriptors, next, err := parseFeatureXML(doc, 0)
	require.NoError(t, err)
	require.Len(t, descriptors, 4)
	assert.Equal(t, RegisterDescriptor{Name: "r0", Index: 0, SizeBytes: 4}, descriptors[0])
	assert.Equal(t, RegisterDescriptor{Name: "r1", Index: 1, SizeBytes: 4}, descriptors[1])
	assert.Equal(t, RegisterDescriptor{Name: "pc", Index: 15, SizeBytes: 4}, descriptors[2])
	assert.Equal(t, RegisterDescriptor{Name: "cpsr", Index: 16, SizeBytes: 4}, descriptors[3])
	assert.Equal(t, uint(17), next)
}

func TestParseFeatureXMLContinuesAcrossFiles(t *testing.T) {
	first := []byte(`<feature><reg name="r0" bitsize="32"/><reg name="r1" bitsize="32"/></feature>`)
	second := []byte(`<feature><reg name="r2" bitsize="32"/></feature>`)

	firstDescs, next, err := parseFeatureXML(first, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	secondDescs, next, err := parseFeatureXML(second, next)
	require.NoError(t, err)
	assert.Equal(t, uint(3), next)

	all := append(firstDescs, secondDescs...)
	assert.Equal(t, uint(2), all[2].Index)
}
