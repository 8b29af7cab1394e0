package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusServer serves /metrics (or a configured path) over HTTP.
type PrometheusServer struct {
	httpServer *http.Server
}

// NewPrometheusServer builds a metrics HTTP server bound to address,
// exposing the default Prometheus registry at path.
func NewPrometheusServer(address, path string) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	return &PrometheusServer{
		httpServer: &http.Server{Addr: address, Handler: mux},
	}
}

// Start implements Server. It blocks until ctx is canceled or the
// listener fails.
func (s *PrometheusServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown implements Server.
func (s *PrometheusServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
