/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-appkit/log"
)

// ResolutionIDLogFieldName is a logged field that contains the ID correlating
// all log entries of a single options resolution.
const ResolutionIDLogFieldName = "config_resolution_id"

// ResolverOpts represents an options for Resolver.
type ResolverOpts struct {
	// Logger is used for logging the resolution outcome. If nil, nothing is logged.
	Logger log.FieldLogger

	// Dependencies is a host-supplied lookup used to resolve dependencies
	// for the Constructor and Provide source variants.
	Dependencies DependencyResolver
}

// Resolver converts a Source into exactly one validated Options value.
// Resolution happens once for the lifetime of the throttling subsystem;
// it is safe to call Resolve concurrently, all callers get the same result.
// Resolver opens no connections and creates no resources on its own.
type Resolver struct {
	source Source
	deps   DependencyResolver
	logger log.FieldLogger

	resolveOnce sync.Once
	opts        Options
	err         error
}

// NewResolver creates a new Resolver for the passed source.
func NewResolver(source Source) *Resolver {
	return NewResolverWithOpts(source, ResolverOpts{})
}

// NewResolverWithOpts creates a new Resolver for the passed source with options.
func NewResolverWithOpts(source Source, opts ResolverOpts) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Resolver{
		source: source,
		deps:   opts.Dependencies,
		logger: logger.With(log.String(ResolutionIDLogFieldName, xid.New().String())),
	}
}

// Resolve produces the options, validating them before returning.
// The work is done exactly once; subsequent and concurrent calls return the cached result.
// A failed resolution is a configuration defect and is cached as well, it is never retried.
// Deferred producing functions are awaited via the passed context;
// if the context is canceled, the underlying cause is surfaced wrapped in FactoryError.
func (r *Resolver) Resolve(ctx context.Context) (Options, error) {
	r.resolveOnce.Do(func() {
		r.opts, r.err = r.resolve(ctx)
	})
	return r.opts, r.err
}

func (r *Resolver) resolve(ctx context.Context) (Options, error) {
	if err := r.source.Validate(); err != nil {
		r.logger.Error("throttling options resolution failed", log.Error(err))
		return Options{}, err
	}
	opts, err := r.createOptions(ctx)
	if err != nil {
		r.logger.Error("throttling options resolution failed",
			log.String("source", string(r.source.Kind())), log.Error(err))
		return Options{}, err
	}
	if err = opts.Validate(); err != nil {
		r.logger.Error("throttling options resolution failed",
			log.String("source", string(r.source.Kind())), log.Error(err))
		return Options{}, err
	}
	r.logger.Info("throttling options resolved",
		log.String("source", string(r.source.Kind())),
		log.Bool("enabled", opts.Enabled),
		log.String("storage", string(opts.Storage)),
		log.Int("limit", opts.Settings.Limit),
		log.Duration("ttl", time.Duration(opts.Settings.TTL)),
	)
	return opts, nil
}

func (r *Resolver) createOptions(ctx context.Context) (Options, error) {
	switch {
	case r.source.Static != nil:
		return *r.source.Static, nil

	case r.source.Factory != nil:
		opts, err := r.source.Factory.CreateOptions(ctx)
		if err != nil {
			return Options{}, &FactoryError{err}
		}
		return opts, nil

	case r.source.Constructor != nil:
		factory, err := r.source.Constructor(ctx, r.deps)
		if err != nil {
			return Options{}, &FactoryError{fmt.Errorf("construct factory: %w", err)}
		}
		if factory == nil {
			return Options{}, &FactoryError{errors.New("constructor returned nil factory")}
		}
		opts, err := factory.CreateOptions(ctx)
		if err != nil {
			return Options{}, &FactoryError{err}
		}
		return opts, nil

	default:
		deps, err := r.resolveDependencies(ctx)
		if err != nil {
			return Options{}, &FactoryError{err}
		}
		opts, err := r.source.Provide(ctx, deps...)
		if err != nil {
			return Options{}, &FactoryError{err}
		}
		return opts, nil
	}
}

func (r *Resolver) resolveDependencies(ctx context.Context) ([]interface{}, error) {
	if len(r.source.Inject) == 0 {
		return nil, nil
	}
	if r.deps == nil {
		return nil, fmt.Errorf("no dependency resolver is configured, cannot inject %v", r.source.Inject)
	}
	deps := make([]interface{}, 0, len(r.source.Inject))
	for _, name := range r.source.Inject {
		v, err := r.deps.Dependency(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve dependency %q: %w", name, err)
		}
		deps = append(deps, v)
	}
	return deps, nil
}
