/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"errors"
	"fmt"
)

// ErrSourceMissing is returned when no configuration source variant is supplied.
var ErrSourceMissing = errors.New("throttling configuration source is missing")

// ErrSourceAmbiguous is returned when more than one configuration source variant is supplied.
// The variants are mutually exclusive, and no silent precedence between them is defined.
var ErrSourceAmbiguous = errors.New("multiple throttling configuration sources are specified")

// FactoryError is returned when the options-producing factory, its constructor,
// or the resolution of its dependencies fails. The underlying cause is wrapped.
type FactoryError struct {
	Inner error
}

// Error returns a string representation of the error.
// Implements error interface.
func (e *FactoryError) Error() string {
	return fmt.Sprintf("create throttling options: %s", e.Inner.Error())
}

// Unwrap returns the underlying cause.
// Implements errors.Unwrap interface.
func (e *FactoryError) Unwrap() error {
	return e.Inner
}

// InvalidOptionsError is returned when the produced options fail structural validation.
// Field contains the path of the failing field (e.g. "settings.limit").
type InvalidOptionsError struct {
	Field string
	Inner error
}

// Error returns a string representation of the error.
// Implements error interface.
func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid throttling options: %s: %s", e.Field, e.Inner.Error())
}

// Unwrap returns the underlying cause.
// Implements errors.Unwrap interface.
func (e *InvalidOptionsError) Unwrap() error {
	return e.Inner
}
