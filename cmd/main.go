package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/api"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns their lifecycle,
// deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	store, closeStore, err := openStore(ctx, config, log)
	if err != nil {
		return err
	}
	defer closeStore()

	users, closeIndex, err := openUserIndex(ctx, config, store, log)
	if err != nil {
		return err
	}
	defer closeIndex()

	// 3. Content policy
	policy, err := buildPolicy(config, log)
	if err != nil {
		return err
	}

	// 4. Coordinator under supervision
	ordering, _ := config.Ordering()
	coordinator := runtime.NewCoordinator(log, store, policy, runtime.Options{
		InboxSize:            config.InboxSize,
		PersistTimeout:       config.PersistTimeout,
		Ordering:             ordering,
		NotifyPersistFailure: config.NotifyPersistFailure,
		PresenceEvents:       config.PresenceEvents,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(coordinator, workers.NewStatsReporter(log, coordinator, sup, config.StatsInterval))

	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(runCtx)
		close(supervisorDone)
	}()

	// 5. HTTP surface
	verifier := auth.NewJWTVerifier(config.JWTSecret, config.AuthTokenDuration)
	overflow, _ := config.Overflow()
	gateway := ws.NewGateway(log, coordinator, verifier, ws.Options{
		SinkBufferSize: config.SinkBufferSize,
		Overflow:       overflow,
		MaxFrameBytes:  config.MaxFrameBytes,
		PingInterval:   config.PingInterval,
		WriteTimeout:   config.WriteTimeout,
	})
	handler := api.NewHandler(log,
		services.NewAuthService(log, users, verifier),
		services.NewChatService(store, store, users),
		coordinator,
	)

	server := &http.Server{
		Addr:              config.Address(),
		Handler:           api.NewRouter(log, handler, verifier, gateway.HandleWS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr, "store", config.StoreDriver, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case serveErr = <-errChan:
	}

	// 7. Final Cleanup
	// Stopping the coordinator first closes every live sink, which ends the websocket sessions
	// the HTTP server no longer tracks once they are hijacked.
	cancelRun()
	<-supervisorDone
	coordinator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}

	if serveErr != nil {
		return serveErr
	}
	log.Info("Program stopped cleanly")
	return nil
}
