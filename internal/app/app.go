package app

import (
	"context"
	"fmt"
	"net/http"

	"discobridge/internal/refresh"
	"discobridge/pkg/banner"
	"discobridge/pkg/config"
	"discobridge/pkg/delivery"
	"discobridge/pkg/ingest"
	"discobridge/pkg/logger"
	"discobridge/pkg/platform/discord"
	"discobridge/pkg/search"
	"discobridge/pkg/store"
)

// App encapsulates the bridge components and their lifecycle.
type App struct {
	cfg     *config.Config
	source  string
	version string

	session  *discord.Session
	store    *store.Store
	search   *search.Engine
	disp     *delivery.Dispatcher
	delivery *delivery.Engine
	pipeline *ingest.Pipeline
	refresh  *refresh.Runner

	srv *http.Server
}

// New validates the config and assembles the components. It does not open
// the gateway session or bind the listener; call Run for that.
func New(cfg *config.Config, source, version string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	session, err := discord.New(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}

	st := store.New(store.Options{
		MaxMessages: cfg.Cache.MaxMessages,
		SentLogSize: cfg.Cache.SentLog,
		MentionSize: cfg.Cache.MentionLog,
	})
	eng := search.New(st, session, search.Options{SearchSentLog: cfg.Cache.SearchSentLog})
	disp := delivery.NewDispatcher(cfg.Delivery.QueueCapacity, cfg.DispatchTimeout())
	del := delivery.NewEngine(session, st, disp, delivery.Options{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		BackoffUnit: cfg.BackoffUnit(),
		AuthorLabel: cfg.Delivery.AuthorLabel,
	})
	pipe := ingest.New(st, session, ingest.Options{
		CommandPrefix:     cfg.CommandPrefix(),
		IgnoreBots:        cfg.IgnoreBots(),
		MonitoredChannels: cfg.Discord.MonitoredChannels,
	})
	runner := refresh.New(session, st, cfg.Discord.MonitoredChannels, cfg.HistoryLimit())

	a := &App{
		cfg:      cfg,
		source:   source,
		version:  version,
		session:  session,
		store:    st,
		search:   eng,
		disp:     disp,
		delivery: del,
		pipeline: pipe,
		refresh:  runner,
	}

	session.OnMessage(pipe.HandleMessage)
	return a, nil
}

// Run opens the gateway, starts the platform worker, the refresh scheduler
// and the HTTP server, and blocks until ctx is canceled or a fatal server
// error occurs.
func (a *App) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go a.disp.RunWorker(stop)
	defer close(stop)
	defer a.disp.Close()

	// Preload monitored channel history once the gateway is up. Runs on
	// the session's event loop; failures are logged per channel.
	a.session.OnReady(func() {
		a.refresh.RunOnce(ctx)
		logger.Info("preload_done", "cached", a.store.Size())
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	defer func() { _ = a.session.Close() }()

	if a.cfg.Refresh.Enabled {
		cancel, err := refresh.Start(ctx, a.refresh, a.cfg.RefreshCron())
		if err != nil {
			return err
		}
		defer cancel()
	}

	banner.Print(a.cfg.Addr(), a.source, a.version, len(a.cfg.Discord.MonitoredChannels))

	errCh := a.startHTTP()
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.DispatchTimeout())
		defer cancel()
		_ = a.srv.Shutdown(sctx)
		return nil
	case err := <-errCh:
		return err
	}
}
