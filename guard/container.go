package guard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/cache"
	"github.com/jonwraymond/chatguard/config"
	"github.com/jonwraymond/chatguard/health"
	"github.com/jonwraymond/chatguard/observe"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/sanitize"
	"github.com/jonwraymond/chatguard/validate"
)

// Option configures a Container.
type Option func(*options)

type options struct {
	observer observe.Observer
	obsOpts  []observe.ObserverOption
	now      func() time.Time
	authn    auth.Authenticator
}

// WithObserver supplies the telemetry providers. The caller keeps
// ownership and shuts it down; without this option New builds one from
// config.Observe and Close shuts it down.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithObserverOptions tunes the observer New builds from config.Observe.
// Ignored when WithObserver is given.
func WithObserverOptions(opts ...observe.ObserverOption) Option {
	return func(o *options) {
		o.obsOpts = append(o.obsOpts, opts...)
	}
}

// WithClock overrides the time source of the cache and rate limiters.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithAuthenticator replaces the authenticator chain built from
// config.Auth. Reload leaves it in place.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(o *options) {
		o.authn = a
	}
}

type authBox struct {
	auth.Authenticator
}

// Container owns one instance of every guard component.
//
// Contract:
//   - Concurrency: safe for concurrent use, including concurrent Reload.
//   - Ownership: components returned by accessors are shared; callers must
//     not close or reconfigure them.
type Container struct {
	observer     observe.Observer
	ownsObserver bool
	logger       observe.Logger
	metrics      observe.Metrics
	middleware   *observe.Middleware

	cache     *cache.LRU[[]byte]
	cacheMW   *cache.Middleware
	sweeper   *cache.Sweeper
	limits    *ratelimit.Manager
	cleanup   time.Duration
	validator *validate.Validator
	health    *health.Aggregator
	fixedAuth bool

	authn      atomic.Pointer[authBox]
	writeGuard atomic.Pointer[auth.WriteGuard]
	sanitizer  atomic.Pointer[sanitize.Sanitizer]
	safety     atomic.Pointer[config.SafetyConfig]
	current    atomic.Pointer[config.Config]

	pipeline *Pipeline
}

// New builds a container from cfg. A nil cfg uses config.Default.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{observer: o.observer}
	if c.observer == nil {
		obs, err := observe.NewObserver(ctx, cfg.Observe, o.obsOpts...)
		if err != nil {
			return nil, fmt.Errorf("guard: observer: %w", err)
		}
		c.observer = obs
		c.ownsObserver = true
	}

	mw, err := observe.MiddlewareFromObserver(c.observer)
	if err != nil {
		return nil, fmt.Errorf("guard: middleware: %w", err)
	}
	c.middleware = mw
	c.metrics = mw.Metrics()
	c.logger = c.observer.Logger().WithComponent("guard")

	metrics := c.metrics
	lru, err := cache.NewLRU[[]byte](cfg.Cache.Policy(),
		cache.WithClock(o.now),
		cache.WithEvictHook(func(_ string, reason cache.EvictReason) {
			metrics.RecordCacheEviction(context.Background(), string(reason))
		}),
	)
	if err != nil {
		return nil, err
	}
	c.cache = lru
	c.cacheMW = cache.NewMiddleware(lru, nil, cfg.Cache.Policy(), cache.SkipOperations(cfg.Cache.NoCacheOperations...))
	c.cacheMW.OnLookup(metrics.RecordCacheLookup)
	c.sweeper = cache.NewSweeper(lru, cfg.Cache.SweepInterval, c.observer.Logger())

	c.limits, err = ratelimit.NewManager(cfg.RateLimits,
		ratelimit.WithClock(o.now),
		ratelimit.WithLogger(c.observer.Logger()),
	)
	if err != nil {
		return nil, err
	}
	c.cleanup = cfg.RateLimitCleanupInterval
	c.validator = validate.New(validate.WithLogger(c.observer.Logger()))

	if o.authn != nil {
		c.authn.Store(&authBox{o.authn})
		c.fixedAuth = true
	}
	if err := c.apply(cfg); err != nil {
		return nil, err
	}

	c.health = health.NewAggregator()
	c.health.Register("cache", health.NewCacheChecker(lru, health.CacheCheckerConfig{}))
	c.health.Register("ratelimit", health.NewLimiterChecker(c.limits, health.LimiterCheckerConfig{}))

	c.pipeline = newPipeline(c)
	return c, nil
}

// NewTestContainer builds an isolated container from config.Default with
// telemetry disabled. mutate, if non-nil, edits the configuration first.
// It panics on an invalid configuration.
func NewTestContainer(mutate func(*config.Config), opts ...Option) *Container {
	cfg := config.Default()
	cfg.Observe.Logging.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	c, err := New(context.Background(), cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// apply builds the reloadable components from cfg and swaps them in.
func (c *Container) apply(cfg *config.Config) error {
	s, err := sanitize.New(cfg.Safety.Sanitize(), sanitize.WithLogger(c.observer.Logger()))
	if err != nil {
		return err
	}
	var authn auth.Authenticator
	if !c.fixedAuth {
		if authn, err = auth.Build(cfg.Auth); err != nil {
			return err
		}
	}

	safety := cfg.Safety
	c.sanitizer.Store(s)
	c.writeGuard.Store(auth.NewWriteGuard(cfg.Write))
	c.safety.Store(&safety)
	if authn != nil {
		c.authn.Store(&authBox{authn})
	}
	c.current.Store(cfg)
	return nil
}

// Reload validates cfg and swaps in a new write guard, sanitizer, safety
// settings and, unless WithAuthenticator was used, authenticator chain.
// Cache contents, rate-limit records and their policies are kept.
func (c *Container) Reload(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil configuration", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	c.logger.Info(ctx, "configuration reloaded",
		observe.F("write_enabled", cfg.Write.Enabled),
		observe.F("write_mode", string(c.WriteGuard().Config().Mode)),
		observe.F("block_mentions", cfg.Safety.BlockMentions),
		observe.F("schema_mode", string(cfg.Safety.SchemaMode)),
	)
	return nil
}

// Start runs the cache sweeper and rate-limit cleanup until ctx is
// cancelled.
func (c *Container) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.sweeper.Run(ctx) })
	g.Go(func() error { return c.limits.Run(ctx, c.cleanup) })
	return g.Wait()
}

// Close shuts down the observer if the container created it.
func (c *Container) Close(ctx context.Context) error {
	if !c.ownsObserver {
		return nil
	}
	return c.observer.Shutdown(ctx)
}

// Pipeline returns the request pipeline.
func (c *Container) Pipeline() *Pipeline { return c.pipeline }

// Cache returns the response cache.
func (c *Container) Cache() *cache.LRU[[]byte] { return c.cache }

// Limits returns the rate-limit manager.
func (c *Container) Limits() *ratelimit.Manager { return c.limits }

// Validator returns the input validator.
func (c *Container) Validator() *validate.Validator { return c.validator }

// Health returns the aggregator with the cache and rate-limit checks
// registered.
func (c *Container) Health() *health.Aggregator { return c.health }

// Observer returns the telemetry providers.
func (c *Container) Observer() observe.Observer { return c.observer }

// Authenticator returns the current authenticator chain.
func (c *Container) Authenticator() auth.Authenticator { return c.authn.Load().Authenticator }

// WriteGuard returns the current write guard.
func (c *Container) WriteGuard() *auth.WriteGuard { return c.writeGuard.Load() }

// Sanitizer returns the current sanitizer.
func (c *Container) Sanitizer() *sanitize.Sanitizer { return c.sanitizer.Load() }

// Config returns the configuration last applied. Callers must not modify
// it.
func (c *Container) Config() *config.Config { return c.current.Load() }
