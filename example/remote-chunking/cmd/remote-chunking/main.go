package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	logger "github.com/tigerroll/offshore/pkg/batch/support/util/logger"

	appRunner "github.com/tigerroll/offshore/example/remote-chunking/internal/app"
)

// embeddedConfig holds the contents of the application YAML configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// startStepExecution is an Fx Hook helper that runs the example pipeline
// once at application startup and then requests shutdown.
func startStepExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *appRunner.Runner,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in step execution: %v", r)
					}
					logger.Infof("Requesting application shutdown after step completion.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				jobExecution, err := runner.Run(appCtx)
				if err != nil {
					logger.Errorf("Step execution failed: %v", err)
					return
				}
				logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
					jobExecution.JobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

// main is the application entry point.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the step...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig)...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
	os.Exit(0)
}
