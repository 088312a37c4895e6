package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harry166/stro/pkg/config"
	xhttp "github.com/Harry166/stro/pkg/http"
	applogger "github.com/Harry166/stro/pkg/logger"
)

// Pipeline buffers outgoing events and drains them on Stop.
type Pipeline interface {
	Start()
	Stop(ctx context.Context) error
}

type Scheduler interface {
	Start() error
	Stop()
}

type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Consumer interface {
	Start() error
	Stop(ctx context.Context) error
}

type Hub interface {
	Close()
}

// Closer releases an infrastructure client at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Components are the long-running parts of the process. Nil members are skipped.
type Components struct {
	HTTP      *xhttp.Server
	Pipeline  Pipeline
	Scheduler Scheduler
	Queue     Queue
	Consumer  Consumer
	Hub       Hub
	Closers   []Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	l   *applogger.Logger
	c   Components
}

func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, l: applogger.Or(l), c: c}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.l.Error("startup failed", applogger.Error(err))
		a.Shutdown()
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.Shutdown()
	return nil
}

// Start brings components up in dependency order: sinks first, then
// producers of work, then the HTTP surface.
func (a *App) Start(ctx context.Context) error {
	if a.c.Pipeline != nil {
		a.c.Pipeline.Start()
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Start(ctx); err != nil {
			return err
		}
	}
	if a.c.Scheduler != nil {
		if err := a.c.Scheduler.Start(); err != nil {
			return err
		}
	}
	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			return err
		}
	}
	a.l.Info("application started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("symbols", len(a.cfg.Engine.Symbols)))
	return nil
}

// Shutdown stops components in reverse order within server.shutdown_timeout.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.l.Info("shutting down...")

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.c.Scheduler != nil {
		a.c.Scheduler.Stop()
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	// drained before the hub and the producer go away
	if a.c.Pipeline != nil {
		if err := a.c.Pipeline.Stop(ctx); err != nil {
			a.l.Warn("alert pipeline stop error", applogger.Error(err))
		}
	}
	if a.c.Hub != nil {
		a.c.Hub.Close()
	}

	a.l.Info("shutdown complete")
	// flush aggregated logs while the producer is still open
	a.l.RemoveCollector()

	for _, c := range a.c.Closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
}
