/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"context"
	"fmt"
	"strings"
)

// OptionsFactory produces throttling options.
// CreateOptions may perform its own deferred work (e.g. reading an external configuration source)
// and should honor the passed context.
type OptionsFactory interface {
	CreateOptions(ctx context.Context) (Options, error)
}

// OptionsFactoryFunc is an adapter to allow the use of ordinary functions as OptionsFactory.
type OptionsFactoryFunc func(ctx context.Context) (Options, error)

// CreateOptions calls f(ctx).
func (f OptionsFactoryFunc) CreateOptions(ctx context.Context) (Options, error) {
	return f(ctx)
}

// FactoryConstructor constructs an OptionsFactory,
// resolving the factory's own dependencies via the passed DependencyResolver.
type FactoryConstructor func(ctx context.Context, deps DependencyResolver) (OptionsFactory, error)

// ProvideFunc produces throttling options from already resolved dependency values.
// The values are passed in the order of the Source.Inject list.
type ProvideFunc func(ctx context.Context, deps ...interface{}) (Options, error)

// DependencyResolver is a late-bound dependency lookup capability supplied by the host application.
// Given a dependency name, it returns an already-initialized value or fails.
type DependencyResolver interface {
	Dependency(ctx context.Context, name string) (interface{}, error)
}

// DependencyResolverFunc is an adapter to allow the use of ordinary functions as DependencyResolver.
type DependencyResolverFunc func(ctx context.Context, name string) (interface{}, error)

// Dependency calls f(ctx, name).
func (f DependencyResolverFunc) Dependency(ctx context.Context, name string) (interface{}, error) {
	return f(ctx, name)
}

// MapDependencyResolver is a simple map-backed DependencyResolver.
type MapDependencyResolver map[string]interface{}

// Dependency returns the value registered under the given name.
func (m MapDependencyResolver) Dependency(_ context.Context, name string) (interface{}, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("dependency %q is not registered", name)
	}
	return v, nil
}

// SourceKind is a kind of the configuration source variant.
type SourceKind string

// Configuration source kinds.
const (
	SourceKindUnspecified SourceKind = ""
	SourceKindStatic      SourceKind = "static"
	SourceKindFactory     SourceKind = "factory"
	SourceKindConstructor SourceKind = "constructor"
	SourceKindProvide     SourceKind = "provide"
)

// Source describes how the throttling options are to be obtained.
// Exactly one of Static, Factory, Constructor, and Provide must be populated;
// use StaticSource, FactorySource, ConstructorSource, or ProvideSource to build a valid Source.
// A Source is consumed exactly once by Resolver during subsystem initialization.
type Source struct {
	// Static contains the options value directly.
	Static *Options

	// Factory is an already-constructed factory capable of producing the options.
	Factory OptionsFactory

	// Constructor builds a factory that is then invoked to produce the options.
	Constructor FactoryConstructor

	// Provide is a function producing the options from injected dependency values.
	Provide ProvideFunc

	// Inject is a list of dependency names to be resolved and passed to Provide in order.
	// It may be used only together with Provide.
	Inject []string
}

// StaticSource returns a Source that carries the passed options directly.
func StaticSource(opts Options) Source {
	return Source{Static: &opts}
}

// FactorySource returns a Source that obtains options from an already-constructed factory.
func FactorySource(factory OptionsFactory) Source {
	return Source{Factory: factory}
}

// ConstructorSource returns a Source that constructs a factory and then invokes it.
func ConstructorSource(constructor FactoryConstructor) Source {
	return Source{Constructor: constructor}
}

// ProvideSource returns a Source that calls the passed function
// with the resolved values of the named dependencies.
func ProvideSource(provide ProvideFunc, inject ...string) Source {
	return Source{Provide: provide, Inject: inject}
}

// Kind returns the kind of the populated variant,
// or SourceKindUnspecified if the source is empty or ambiguous.
func (s Source) Kind() SourceKind {
	kinds := s.populatedKinds()
	if len(kinds) != 1 {
		return SourceKindUnspecified
	}
	return kinds[0]
}

// Validate checks that exactly one source variant is populated.
func (s Source) Validate() error {
	kinds := s.populatedKinds()
	switch len(kinds) {
	case 0:
		return ErrSourceMissing
	case 1:
	default:
		names := make([]string, 0, len(kinds))
		for _, k := range kinds {
			names = append(names, string(k))
		}
		return fmt.Errorf("%w: %s", ErrSourceAmbiguous, strings.Join(names, ", "))
	}
	if len(s.Inject) != 0 && s.Provide == nil {
		return fmt.Errorf("inject list may be specified only together with provide function")
	}
	return nil
}

func (s Source) populatedKinds() []SourceKind {
	var kinds []SourceKind
	if s.Static != nil {
		kinds = append(kinds, SourceKindStatic)
	}
	if s.Factory != nil {
		kinds = append(kinds, SourceKindFactory)
	}
	if s.Constructor != nil {
		kinds = append(kinds, SourceKindConstructor)
	}
	if s.Provide != nil {
		kinds = append(kinds, SourceKindProvide)
	}
	return kinds
}
