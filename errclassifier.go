// SPDX-License-Identifier: GPL-3.0-or-later

package monk

import "github.com/bassosimone/errclass"

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNRESET") that facilitate systematic analysis of transport failures in
// logs, without requiring log consumers to parse Go error strings.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies OS-level socket errors (ECONNRESET,
// ECONNREFUSED, ETIMEDOUT, ...) for PacketIO's transport-layer logging.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
