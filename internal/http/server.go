package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/pathsync/internal/observability/logger"
)

// Serve levanta el servidor y bloquea hasta que el contexto se cancele o el
// listener falle. Al cancelar drena con un shutdown de hasta 10 segundos.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("http server draining", logger.Addr(addr))
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
