/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"go.uber.org/atomic"
)

// OptionsHolder keeps the active throttling options and allows replacing them atomically.
// Readers never observe a partially updated value:
// reconfiguration is always a swap of the whole Options, never a field-by-field mutation.
type OptionsHolder struct {
	value atomic.Value
}

// NewOptionsHolder creates a new OptionsHolder with the passed options as the active ones.
// The options are validated before being stored.
func NewOptionsHolder(opts Options) (*OptionsHolder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h := &OptionsHolder{}
	h.value.Store(opts)
	return h, nil
}

// Load returns the active options.
func (h *OptionsHolder) Load() Options {
	return h.value.Load().(Options)
}

// Store validates the passed options and makes them active.
// If validation fails, the previously active options stay in effect.
func (h *OptionsHolder) Store(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	h.value.Store(opts)
	return nil
}
