package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"support-chat/auth"
	"support-chat/notify"
	"support-chat/observability"
	"support-chat/projection"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/runtime/workers"
	"support-chat/services"
	"support-chat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the shutdown sequence, so that defers
// fire in order before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	store := repositories.NewStore(db, log)

	// 3. Transcript search index (Bluge)
	searchIndex, err := repositories.NewSearchIndex(config.SearchIndexPath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = searchIndex.Close()
	}()

	// 4. Engine core
	monitoring := observability.NewMonitoringManager()
	presence := runtime.NewPresenceTracker(log, store)
	registry := runtime.NewRegistry(func(staffID string) {
		// Last staff connection gone: the staff member is off shift.
		presence.SetStatus(context.Background(), staffID, false, false)
	})
	router := runtime.NewRouter(log, registry)
	indexWorker := workers.NewIndexWorker(log, searchIndex, config.IndexBufferSize)
	transcript := projection.NewTranscript()
	router.AddSink(indexWorker)
	router.AddSink(transcript)

	typing := runtime.NewTypingDebouncer(router, config.TypingQuiet)
	defer typing.Stop()
	notifier := notify.NewLogNotifier(log)
	lifecycle := runtime.NewLifecycle(log, store, registry, router, presence, notifier)
	service := services.NewChatService(lifecycle, typing, presence, searchIndex)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision. Run blocks until every worker
	// exits, so it gets its own goroutine; the select below owns the wait.
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(indexWorker, workers.NewHeartbeatWorker(log, monitoring, config.HeartbeatInterval))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. WebSocket endpoint
	authenticator := auth.NewTokenAuthenticator(config.JWTSecret)
	wsServer := transport.NewServer(log, authenticator, registry, service, monitoring)
	mux := http.NewServeMux()
	mux.Handle("/ws/chat", wsServer)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
