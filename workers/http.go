package workers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gotokenbridge/config"
	"gotokenbridge/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/hashicorp/go-hclog"
)

func NewRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/state", api.State)
	r.Get("/health", api.HealthCheck)

	r.Post("/bridge", api.Submit)

	r.Get("/operations", api.ListOperations)
	r.Get("/operations/{id}", api.GetOperation)
	r.Post("/operations/{id}/resume", api.Resume)

	r.Get("/balance/{chain}/{semantics}/{token}/{owner}", api.Balance)

	r.Get("/mappings", api.ListMappings)
	r.Get("/mapping/{semantics}/{origin}", api.GetMapping)

	r.Get("/stats/failed", api.GetFailedTransactions)
	r.Get("/stats/metrics", api.Metrics)

	return r
}

// Worker_HTTP serves the API until ctx is done, then shuts the server down.
func Worker_HTTP(ctx context.Context, cfg *config.Configuration, handler http.Handler, logger hclog.Logger) error {
	logger = logger.Named("http")

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	if cfg.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return fmt.Errorf("error loading TLS key pair: %w", err)
		}

		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if cfg.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	logger.Info("HTTP service started", "addr", cfg.Server.Listen, "ssl", cfg.Server.UseSSL)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("error listening to %s: %w", cfg.Server.Listen, err)
		}

		return nil
	case <-ctx.Done():
	}

	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP service shutdown error: %w", err)
	}

	logger.Info("HTTP service shutdown normal")

	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
