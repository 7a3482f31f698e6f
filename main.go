package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/spec-operators/mode"
	"github.com/khaledhikmat/spec-operators/pipeline"
	"github.com/khaledhikmat/spec-operators/service/config"
	"github.com/khaledhikmat/spec-operators/service/data"
	"github.com/khaledhikmat/spec-operators/service/lgr"
	"github.com/khaledhikmat/spec-operators/service/storage"
	"github.com/khaledhikmat/spec-operators/service/tracing"
)

var modeProcessors = map[string]mode.Processor{
	"invoke":  mode.Invoke,
	"serve":   mode.Serve,
	"consume": mode.Consume,
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			return 1
		}
	}

	modeType := "invoke"
	args := os.Args[1:]
	if len(args) > 0 {
		if _, ok := modeProcessors[args[0]]; ok {
			modeType = args[0]
			args = args[1:]
		}
	}

	modeProc := modeProcessors[modeType]

	// Create the services needed for the mode processor
	cfgSvc, err := config.NewEnv()
	if err != nil {
		lgr.Logger.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	lgr.Init(cfgSvc.GetLogLevel(), cfgSvc.GetLogFormat(), cfgSvc.GetLogFile())

	// Spans stay in the no-op provider unless an endpoint is configured
	if endpoint := cfgSvc.GetTracingEndpoint(); endpoint != "" {
		tp, err := tracing.InitTracer(canxCtx, endpoint)
		if err != nil {
			lgr.Logger.Warn("tracing init failed, continuing without tracing", slog.Any("error", err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	dataSvc, err := data.New(canxCtx, cfgSvc)
	if err != nil {
		lgr.Logger.Error("error creating data service", slog.Any("error", err))
		return 1
	}
	defer dataSvc.Close()

	storageSvc, err := storage.New(cfgSvc)
	if err != nil {
		lgr.Logger.Error("error creating storage service", slog.Any("error", err))
		return 1
	}

	detectionLog := lgr.NewRollingFile(cfgSvc.GetDetectionLogFile(), 10)
	defer detectionLog.Close()

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		StorageSvc:   storageSvc,
		DetectionLog: detectionLog,
	}

	if err := modeProc(canxCtx, svcs, args); err != nil {
		lgr.Logger.Error(
			"mode processor exited",
			slog.String("mode", modeType),
			slog.Any("error", err),
		)
		return 1
	}

	return 0
}
