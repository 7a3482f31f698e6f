package mode

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/pipeline"
	"github.com/khaledhikmat/spec-operators/service/lgr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"
)

// Serve exposes the operators over HTTP until the context is cancelled.
func Serve(canxCtx context.Context, svcs pipeline.ServicesFactory, _ []string) error {
	server := &http.Server{
		Addr:              svcs.CfgSvc.GetListenAddress(),
		Handler:           NewHandler(svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		lgr.Logger.Info("operator server listening", slog.String("address", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"operator server context cancelled",
		)

	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("operator server: %w", err)
		}
		return nil
	}

	period := time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), period)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lgr.Logger.Error("operator server shutdown", slog.Any("error", err))
		return err
	}

	lgr.Logger.Info("operator server stopped", slog.Duration("period", period))
	return nil
}

// NewHandler routes POST /operators/{name}, GET /operators and GET /metrics.
func NewHandler(svcs pipeline.ServicesFactory) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /operators", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, pipeline.Operators())
	})

	mux.HandleFunc("POST /operators/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		requestID := uuid.NewString()

		var inv model.Invocation
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload: " + err.Error()})
			return
		}

		lgr.Logger.Info(
			"invocation received",
			slog.String("requestId", requestID),
			slog.String("operator", name),
		)

		// Invocations run to completion even if the client goes away
		out, err := pipeline.Invoke(context.WithoutCancel(r.Context()), svcs, name, inv)
		if err != nil {
			var execErr *model.ExecutionError
			if !errors.As(err, &execErr) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}

			procError(svcs.DataSvc, model.GenError("serve",
				err,
				errorMisc(name, inv, out),
				"operator %s failed (request %s)",
				name, requestID))
			writeJSON(w, http.StatusInternalServerError, execErr.Output)
			return
		}

		writeJSON(w, http.StatusOK, out)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lgr.Logger.Warn("error writing response", slog.Any("error", err))
	}
}
