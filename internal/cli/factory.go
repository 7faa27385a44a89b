package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/pkg/adapters/backend"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/adapters/sqlite"
	"github.com/aretw0/concierge/pkg/catalog"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/observability"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Stack holds the adapters every command builds conversations from.
type Stack struct {
	Config     *config.Config
	Logger     *slog.Logger
	Backend    *backend.Client
	Categories *catalog.Categories
	// Archive is nil unless archive.path is configured.
	Archive *sqlite.Archive
	// recorder is Archive behind the configured middlewares.
	recorder ports.Archive
	// Metrics is nil unless a registerer was passed to NewStack.
	Metrics *observability.Metrics

	closers []func() error
}

// StackOption configures NewStack.
type StackOption func(*stackOptions)

type stackOptions struct {
	registerer prometheus.Registerer
	httpClient *http.Client
}

// WithRegisterer enables Prometheus metrics on reg.
func WithRegisterer(reg prometheus.Registerer) StackOption {
	return func(o *stackOptions) {
		o.registerer = reg
	}
}

// WithHTTPClient overrides the client used to reach the backend.
func WithHTTPClient(hc *http.Client) StackOption {
	return func(o *stackOptions) {
		o.httpClient = hc
	}
}

// NewStack connects the adapters named by cfg. Close releases them.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...StackOption) (*Stack, error) {
	var o stackOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stack{Config: cfg, Logger: logger}

	backendOpts := []backend.Option{
		backend.WithPaths(cfg.Backend.Paths()),
		backend.WithLogger(logger),
	}
	if o.httpClient != nil {
		backendOpts = append(backendOpts, backend.WithHTTPClient(o.httpClient))
	}
	client, err := backend.New(cfg.Backend.BaseURL, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	s.Backend = client

	var (
		cache  ports.CategoryCache
		locker ports.DistributedLocker
	)
	if cfg.Redis.Addr != "" {
		rc := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, rc.Close)
		cache = rc
		locker = redis.NewLocker(rc.Client(), rc.Prefix())
		logger.Info("category cache: redis", "addr", cfg.Redis.Addr)
	} else {
		cache = memory.NewCache()
		locker = memory.NewLocker()
	}

	s.Categories = catalog.New(client,
		catalog.WithCache(cache),
		catalog.WithLocker(locker),
		catalog.WithTTL(cfg.Categories.TTL),
		catalog.WithLogger(logger),
	)

	if cfg.Archive.Path != "" {
		archive, err := sqlite.Open(cfg.Archive.Path)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		s.Archive = archive
		s.closers = append(s.closers, archive.Close)

		mws, err := cfg.Archive.Middleware()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.recorder = middleware.Chain(archive, mws...)
	}

	if o.registerer != nil {
		m, err := observability.NewMetrics(o.registerer)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		s.Metrics = m
	}

	return s, nil
}

// Hooks chains the stack's observability hooks with extra.
func (s *Stack) Hooks(extra ...domain.LifecycleHooks) domain.LifecycleHooks {
	sets := []domain.LifecycleHooks{observability.LogHooks(s.Logger)}
	if s.Metrics != nil {
		sets = append(sets, s.Metrics.Hooks())
	}
	if s.recorder != nil {
		sets = append(sets, observability.ArchiveHooks(s.recorder, s.Logger))
	}
	sets = append(sets, extra...)
	return domain.ChainHooks(sets...)
}

// NewConversation builds a conversation wired to the stack. It is a session.Factory when
// extra is bound.
func (s *Stack) NewConversation(id string, extra ...domain.LifecycleHooks) (*concierge.Conversation, error) {
	cfg := s.Config
	opts := []concierge.Option{
		concierge.WithDispatcher(s.Backend),
		concierge.WithFlows(cfg.BuildFlows(s.Categories)...),
		concierge.WithFormatter(cfg.Backend.Formatter()),
		concierge.WithLogger(s.Logger),
		concierge.WithLifecycleHooks(s.Hooks(extra...)),
		concierge.WithAckDelay(cfg.Conversation.AckDelay),
		concierge.WithTimeout(cfg.Backend.Timeout),
		concierge.WithTexts(cfg.Conversation.Texts()),
	}
	if id != "" {
		opts = append(opts, concierge.WithSessionID(id))
	}
	return concierge.New(opts...)
}

// Close releases every adapter, in reverse order of creation.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
