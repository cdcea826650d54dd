// Package app wires all prepwise subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP (and watches the config file when asked to)
// until its context is cancelled, and Shutdown tears everything down in
// order.
//
// For testing, inject doubles via functional options (WithDocStore,
// WithIdentity, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/prepwise/internal/api"
	"github.com/MrWong99/prepwise/internal/auth"
	"github.com/MrWong99/prepwise/internal/config"
	"github.com/MrWong99/prepwise/internal/feedback"
	"github.com/MrWong99/prepwise/internal/health"
	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/observe"
	"github.com/MrWong99/prepwise/internal/resilience"
	"github.com/MrWong99/prepwise/pkg/docstore"
	fsdocstore "github.com/MrWong99/prepwise/pkg/docstore/firestore"
	"github.com/MrWong99/prepwise/pkg/docstore/memstore"
	"github.com/MrWong99/prepwise/pkg/docstore/postgres"
	"github.com/MrWong99/prepwise/pkg/provider/llm"
	"github.com/MrWong99/prepwise/pkg/transport"
)

// errNoLLM is returned by question generation when no LLM is configured.
var errNoLLM = errors.New("app: no llm provider configured")

// NamedLLM is an LLM provider with the name it was configured under.
type NamedLLM struct {
	Name     string
	Provider llm.Provider
}

// Providers holds the external providers built by main.go via the config
// registry. Nil or empty means not configured.
type Providers struct {
	// LLM is the primary question generator.
	LLM     llm.Provider
	LLMName string

	// LLMFallbacks are tried in order when the primary fails.
	LLMFallbacks []NamedLLM

	// Transport builds the call transport on first use.
	Transport transport.Factory
}

// App owns all subsystem lifetimes of the prepwise server.
type App struct {
	cfg       *config.Config
	providers *Providers

	levels   *slog.LevelVar
	settings atomic.Pointer[config.InterviewConfig]

	// Subsystems, initialised in New and torn down in Shutdown.
	firebase      *firebase.App
	store         docstore.Store
	identity      auth.Identity
	feedbackStore feedback.Store
	metrics       *observe.Metrics
	llm           *resilience.LLMFallback
	pipeline      *interview.Pipeline
	feedback      *feedback.Service
	calls         *CallManager
	handler       http.Handler
	server        *http.Server

	configPath    string
	watchInterval time.Duration
	watcher       *config.Watcher

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDocStore injects a document store instead of creating one from config.
// The injected store is not closed by Shutdown.
func WithDocStore(s docstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithIdentity injects an identity provider instead of Firebase Auth.
func WithIdentity(id auth.Identity) Option {
	return func(a *App) { a.identity = id }
}

// WithFeedbackStore injects a feedback store instead of creating one from
// config.
func WithFeedbackStore(s feedback.Store) Option {
	return func(a *App) { a.feedbackStore = s }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar makes the app adjust lv when the configured log level is
// reloaded. main passes the LevelVar of its log handler.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.levels = lv }
}

// WithConfigWatch makes Run watch the config file at path and apply the
// reloadable sections. interval <= 0 uses [config.DefaultWatchInterval].
func WithConfigWatch(path string, interval time.Duration) Option {
	return func(a *App) {
		a.configPath = path
		a.watchInterval = interval
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.levels == nil {
		a.levels = new(slog.LevelVar)
		a.levels.Set(cfg.Server.LogLevel.Level())
	}
	settings := cfg.Interview
	a.settings.Store(&settings)

	// ── 1. Document store ────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Accounts ──────────────────────────────────────────────────────
	if err := a.initIdentity(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init auth: %w", err)
	}

	// ── 3. Question generation ───────────────────────────────────────────
	a.initGeneration()

	// ── 4. Feedback ──────────────────────────────────────────────────────
	a.initFeedback()

	// ── 5. Calls ─────────────────────────────────────────────────────────
	lazy := transport.NewLazy(providers.Transport)
	a.calls = NewCallManager(CallManagerConfig{
		Transport: lazy.Get,
		Saver:     a.pipeline,
		Feedback:  a.feedback,
		Metrics:   a.metrics,
		Settings:  a.InterviewSettings,
	})

	// ── 6. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		var wopts []config.WatcherOption
		if a.watchInterval > 0 {
			wopts = append(wopts, config.WithInterval(a.watchInterval))
		}
		w, err := config.NewWatcher(a.configPath, a.applyConfig, wopts...)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("app: init config watcher: %w", err)
		}
		a.watcher = w
	}

	// ── 7. HTTP ──────────────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// firebaseApp returns the Firebase app, creating it on first use.
func (a *App) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if a.firebase != nil {
		return a.firebase, nil
	}
	fa, err := newFirebaseApp(ctx, a.cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("firebase: %w", err)
	}
	a.firebase = fa
	return fa, nil
}

// initStore opens the configured document store unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Storage.Backend {
	case config.StoragePostgres:
		s, err := postgres.NewStore(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = s
	case config.StorageFirestore:
		fa, err := a.firebaseApp(ctx)
		if err != nil {
			return err
		}
		client, err := fa.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore client: %w", err)
		}
		a.store = fsdocstore.New(client)
	default:
		a.store = memstore.New()
	}
	a.closers = append(a.closers, a.store.Close)

	slog.Info("document store ready", "backend", a.cfg.Storage.Backend)
	return nil
}

// initIdentity connects Firebase Auth when Firebase is configured and no
// identity provider was injected. Without either, account routes are off.
func (a *App) initIdentity(ctx context.Context) error {
	if a.identity != nil || !a.cfg.Firebase.Enabled() {
		return nil
	}
	fa, err := a.firebaseApp(ctx)
	if err != nil {
		return err
	}
	client, err := fa.Auth(ctx)
	if err != nil {
		return fmt.Errorf("auth client: %w", err)
	}
	a.identity = auth.NewFirebase(client)
	return nil
}

// initGeneration builds the interview pipeline over the LLM fallback group.
func (a *App) initGeneration() {
	var gen interview.TextGenerator = interview.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errNoLLM
	})

	if p := a.providers; p.LLM != nil {
		a.llm = resilience.NewLLMFallback(p.LLM, p.LLMName, resilience.FallbackConfig{
			OnFailure: func(name string, err error) {
				a.metrics.RecordProviderError(context.Background(), name, "llm")
				slog.Warn("llm provider failed", "provider", name, "err", err)
			},
		})
		for _, fb := range p.LLMFallbacks {
			a.llm.AddFallback(fb.Name, fb.Provider)
		}
		gen = interview.NewLLMGenerator(a.llm)
	} else {
		slog.Warn("no llm provider configured, interview generation will fail")
	}

	a.pipeline = interview.NewPipeline(gen, a.store,
		interview.WithCollection(a.cfg.Storage.InterviewsCollection),
		interview.WithCovers(a.cfg.Interview.CoverImages),
		interview.WithMetrics(a.metrics),
	)
}

// initFeedback selects the feedback store unless one was injected.
func (a *App) initFeedback() {
	if a.feedbackStore == nil {
		switch a.cfg.Feedback.Backend {
		case config.FeedbackStore:
			a.feedbackStore = feedback.NewDocStore(a.store, a.cfg.Feedback.Collection)
		default:
			a.feedbackStore = feedback.NewFileStore(a.cfg.Feedback.Path)
		}
	}
	a.feedback = feedback.NewService(a.feedbackStore)
}

// initHTTP builds the route table and the server.
func (a *App) initHTTP() {
	mux := http.NewServeMux()

	// A nil *auth.Service must not reach api.New as a non-nil interface.
	var accounts api.Accounts
	if a.identity != nil {
		accounts = auth.NewService(a.identity, a.store)
	} else {
		slog.Info("accounts disabled: no identity provider configured")
	}

	srv := api.New(a.pipeline, accounts, a.calls)
	srv.SecureCookies = a.cfg.Server.TLS != nil
	srv.Register(mux)

	checks := []health.Checker{health.Ping("store", a.store)}
	if a.llm != nil {
		checks = append(checks, health.Available("llm", a.llm.Available))
	}
	health.New(checks...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the HTTP handler serving all routes.
func (a *App) Handler() http.Handler { return a.handler }

// Calls returns the call manager.
func (a *App) Calls() *CallManager { return a.calls }

// InterviewSettings returns the interview settings currently in effect.
func (a *App) InterviewSettings() config.InterviewConfig { return *a.settings.Load() }

// LogLevel returns the log level currently in effect.
func (a *App) LogLevel() slog.Level { return a.levels.Level() }

// ─── Config reload ───────────────────────────────────────────────────────────

// applyConfig is the watcher callback. Only the log level and the interview
// section apply at runtime; everything else is reported and ignored.
func (a *App) applyConfig(diff config.ConfigDiff, cfg *config.Config) {
	if diff.LogLevelChanged {
		a.levels.Set(diff.NewLogLevel.Level())
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.InterviewChanged {
		settings := cfg.Interview
		a.settings.Store(&settings)
		slog.Info("interview settings reloaded, applying to new calls")
	}
	if len(diff.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", diff.RestartRequired)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled, then stops the server gracefully within the configured shutdown
// timeout. It returns nil after a clean stop.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})

	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown closes the open call view, waits for its end-of-call work and then
// runs the closers in order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		done := make(chan struct{})
		go func() {
			a.calls.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded while ending call")
			shutdownErr = ctx.Err()
			return
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers registered so far. Used when New fails half way.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
	a.closers = nil
}
