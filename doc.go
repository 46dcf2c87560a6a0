/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package throttleconfig provides the configuration contract for a throttling (rate-limiting) subsystem:
// storage backend selection, request-limit settings, and a resolver that turns one of the supported
// configuration sources (static options, an existing factory, a factory constructor, or a factory function
// with injected dependencies) into exactly one validated Options value at startup.
// It contains no rate-limiting logic itself; the resolved Options is intended to be handed to
// a separate implementation (counter store, request interceptor) for its own initialization.
package throttleconfig
