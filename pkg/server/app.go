package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"StreamPulse/internal/usecase"
	"StreamPulse/pkg/config"
	xhttp "StreamPulse/pkg/http"
	applogger "StreamPulse/pkg/logger"
	"StreamPulse/pkg/queue"
)

// App encapsulates the application lifecycle: both stream adapters, the
// event processor behind them, the HTTP status server and optional
// infrastructure clients.
type App struct {
	cfg        *config.Config
	lgr        *applogger.Logger
	chat       *usecase.ChatAdapter
	market     *usecase.MarketAdapter
	processor  *usecase.EventProcessor
	httpServer *xhttp.Server
	handler    xhttp.Handler
	alertQueue *queue.RedisQueue
}

func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	chat *usecase.ChatAdapter,
	market *usecase.MarketAdapter,
	processor *usecase.EventProcessor,
	handler xhttp.Handler,
	alertQueue *queue.RedisQueue,
) *App {
	return &App{
		cfg:        cfg,
		lgr:        lgr,
		chat:       chat,
		market:     market,
		processor:  processor,
		handler:    handler,
		alertQueue: alertQueue,
	}
}

// Run starts both adapters and the HTTP server, then blocks until the
// process receives an interrupt.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.chat.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.market.Run(ctx)
	}()
	a.lgr.Info("adapters started",
		applogger.String("channel", a.cfg.Chat.Channel),
		applogger.String("symbol", a.cfg.Market.Symbol))

	if err := a.httpServer.Start(); err != nil {
		a.lgr.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.lgr.Info("shutdown signal received")
	cancel()
	wg.Wait()
	return a.shutdown(context.Background())
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.lgr.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.processor.Close(); err != nil {
		a.lgr.Warn("processor close error", applogger.Error(err))
	}

	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(shutdownCtx); err != nil {
			a.lgr.Warn("alert queue stop error", applogger.Error(err))
		}
	}

	a.lgr.Info("shutdown complete")
	return nil
}
