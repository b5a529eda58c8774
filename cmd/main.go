package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"team-mail/auth"
	"team-mail/client"
	"team-mail/moderation"
	"team-mail/observability"
	"team-mail/repositories"
	"team-mail/runtime/workers"
	"team-mail/search"
	"team-mail/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and
// centralizes error reporting. This pattern is preferred over calling
// os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Local storage (BadgerDB archive + in-memory search index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	archive := repositories.NewArchive(db, log)

	index, err := search.NewIndex(log)
	if err != nil {
		return fmt.Errorf("search index failed: %w", err)
	}
	defer func() { _ = index.Close() }()

	// 3. Moderation & remote directory
	mask, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	censor, err := moderation.NewCensor(config.Words(), mask)
	if err != nil {
		return fmt.Errorf("censor build failed: %w", err)
	}

	api := client.NewAPI(log, config.AuthURL, config.UsersURL, config.MessagesURL, config.RequestTimeout)
	tokens := auth.NewTokens([]byte(config.TokenSecret), config.AuthTokenDuration)
	service := services.NewSessionService(log, api, tokens, censor, config.EmailDomain)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Login & first sync
	session, err := service.Login(ctx, config.Email, config.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	stats := observability.NewSyncStats()
	syncWorker := workers.NewPresenceSyncWorker(
		log, api, session.Store(), session.Self().ID, config.SyncInterval, stats,
	).WithArchive(archive).WithIndex(index)

	// The first timeline should not wait a full sync interval.
	if err = syncWorker.SyncOnce(ctx); err != nil {
		log.Warn("Initial sync failed, the loop will retry", "err", err)
	}

	// 6. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(syncWorker, workers.NewReportWorker(log, stats, config.ReportInterval))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	session.OnLogout(cancelWorkers)

	done := make(chan struct{})
	go func() {
		sup.Run(workerCtx)
		close(done)
	}()

	log.Info("Client running", "user", session.Self().Label(), "sync_interval", config.SyncInterval)

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// 8. Final Cleanup: logout cancels the workers synchronously, then we
	// wait for the supervisor to drain.
	if err = session.Logout(); err != nil {
		log.Warn("Logout failed", "err", err)
	}
	sup.Stop()
	<-done

	log.Info("Program stopped cleanly")
	return nil
}
