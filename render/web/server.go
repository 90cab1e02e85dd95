package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vl4deee11/rpsarena/logging"
)

//go:embed static
var staticFiles embed.FS

// Handler routes /ws to the hub and everything else to the bundled viewer.
func Handler(h *Hub) http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// Listen opens the first free port in [port, port+attempts).
func Listen(addr string, port, attempts int, logger *slog.Logger) (net.Listener, error) {
	log := logging.OrDiscard(logger)
	var lastErr error
	for i := 0; i < attempts; i++ {
		hostport := net.JoinHostPort(addr, fmt.Sprint(port+i))
		log.Debug("trying to listen", "addr", hostport)
		ln, err := net.Listen("tcp", hostport)
		if err != nil {
			log.Warn("listen failed", "addr", hostport, "error", err)
			lastErr = err
			continue
		}
		return ln, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no ports to try")
	}
	return nil, fmt.Errorf("unable to start server on any port from %d: %w", port, lastErr)
}

// Serve runs the HTTP server on ln until ctx is done.
func Serve(ctx context.Context, ln net.Listener, h *Hub, logger *slog.Logger) error {
	log := logging.OrDiscard(logger)
	srv := &http.Server{
		Handler:           Handler(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("server started", "url", "http://"+ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	h.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
