package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/septivank/ecobee-sync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	loadEnvFile()

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideHTTPClient,
			ProvideEcobeeClient,
			ProvideTokenStore,
			ProvideCredentialManager,
			ProvideSnapshotFetcher,
			ProvidePointStore,
			ProvideSyncer,
			ProvideNotifier,
			ProvideMetrics,
			ProvidePipeline,
		),
		fx.Invoke(registerRun),
	)

	// Create a temporary logger for startup error messages
	tempLogger, _ := newLogger(&config.Config{ServiceName: "ecobee-sync"})
	if err := app.Err(); err != nil {
		tempLogger.Error("failed to build application", zap.Error(err))
		return 1
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			tempLogger.Error("APPLICATION START TIMEOUT: Failed to start within 30 seconds. This usually means a dependency (InfluxDB, Database or RabbitMQ) is not accessible. Check the error messages above for specific connection failures.")
		}
		tempLogger.Error("failed to start application", zap.Error(err))
		return 1
	}

	exitCode := 1
	select {
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	case <-ctx.Done():
		tempLogger.Warn("interrupted before the sync run finished")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
	return exitCode
}

// loadEnvFile loads the first .env found in the working directory or its parents
func loadEnvFile() {
	envPaths := []string{
		".env",       // Current working directory (works in pods/containers)
		"../../.env", // If running from bin/ subdirectory
	}

	if workDir, err := os.Getwd(); err == nil {
		parentDir := filepath.Dir(workDir)
		grandParentDir := filepath.Dir(parentDir)

		envPaths = append(envPaths,
			filepath.Join(workDir, ".env"),
			filepath.Join(parentDir, ".env"),
			filepath.Join(grandParentDir, ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			absPath, _ := filepath.Abs(envPath)
			fmt.Fprintf(os.Stderr, "Loaded environment from: %s\n", absPath)
			return
		}
	}

	fmt.Fprintln(os.Stderr, "No .env file found, using system environment variables")
}
