// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// RegisterDescriptor describes one register discovered in the target's
// feature XML at connect time.
type RegisterDescriptor struct {
	// Name is the register's name, e.g. "r0" or "pc".
	Name string

	// Index is the register's position in "p"/"P" commands, assigned in
	// document order unless overridden by a "regnum" attribute.
	Index uint

	// SizeBytes is the register's width, derived from its bitsize
	// attribute.
	SizeBytes uint
}

// registerLayout is the immutable set of registers discovered during
// [RspTarget] initialization, looked up by name.
type registerLayout struct {
	byName map[string]RegisterDescriptor
}

func newRegisterLayout(descriptors []RegisterDescriptor) *registerLayout {
	byName := make(map[string]RegisterDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	return &registerLayout{byName: byName}
}

// lookup returns the descriptor for name, or [ErrRegisterUnknown].
func (l *registerLayout) lookup(name string) (RegisterDescriptor, error) {
	d, ok := l.byName[name]
	if !ok {
		return RegisterDescriptor{}, &ErrRegisterUnknown{Name: name}
	}
	return d, nil
}

// xmlTargetDescription is the root element of target.xml, the top-level
// feature file a gdbstub serves in response to
// "qXfer:features:read:target.xml:0,ffb".
type xmlTargetDescription struct {
	XMLName xml.Name    `xml:"target"`
	Include []xmlInclude `xml:"include"`
}

// xmlInclude is a "<xi include href=...>" element (the namespace prefix
// is stripped by the caller before unmarshaling, since the stdlib's XML
// decoder rejects unbound prefixes).
type xmlInclude struct {
	Href string `xml:"href,attr"`
}

// xmlFeature is a single feature file's root element, e.g.
// "org.gnu.gdb.arm.core".
type xmlFeature struct {
	XMLName xml.Name  `xml:"feature"`
	Regs    []xmlReg  `xml:"reg"`
}

// xmlReg is a single "<reg name=... bitsize=... regnum=...>" element.
type xmlReg struct {
	Name    string `xml:"name,attr"`
	BitSize uint   `xml:"bitsize,attr"`
	RegNum  string `xml:"regnum,attr"`
}

// stripIncludeNamespace removes the "xi:" prefix from include tags so
// the stdlib XML decoder, which rejects unbound namespace prefixes,
// accepts the document.
func stripIncludeNamespace(doc []byte) []byte {
	return []byte(strings.ReplaceAll(string(doc), "xi:include", "include"))
}

// parseTargetXML extracts the list of feature-file names referenced by
// a target.xml document.
func parseTargetXML(doc []byte) ([]string, error) {
	var desc xmlTargetDescription
	if err := xml.Unmarshal(stripIncludeNamespace(doc), &desc); err != nil {
		return nil, fmt.Errorf("monk: parse target.xml: %w", err)
	}
	names := make([]string, 0, len(desc.Include))
	for _, inc := range desc.Include {
		names = append(names, inc.Href)
	}
	return names, nil
}

// parseFeatureXML extracts register descriptors from one feature file,
// continuing the index sequence from nextIndex. A "regnum" attribute on
// a reg element forces the next index; subsequent regs continue from
// there. Returns the descriptors and the index the next feature file
// should continue from.
func parseFeatureXML(doc []byte, nextIndex uint) ([]RegisterDescriptor, uint, error) {
	var feature xmlFeature
	if err := xml.Unmarshal(doc, &feature); err != nil {
		return nil, nextIndex, fmt.Errorf("monk: parse feature xml: %w", err)
	}

	descriptors := make([]RegisterDescriptor, 0, len(feature.Regs))
	index := nextIndex
	for _, reg := range feature.Regs {
		if reg.RegNum != "" {
			n, err := strconv.ParseUint(reg.RegNum, 10, 64)
			if err != nil {
				return nil, nextIndex, fmt.Errorf("monk: parse regnum %q: %w", reg.RegNum, err)
			}
			index = uint(n)
		}
		descriptors = append(descriptors, RegisterDescriptor{
			Name:      reg.Name,
			Index:     index,
			SizeBytes: reg.BitSize / 8,
		})
		index++
	}
	return descriptors, index, nil
}
