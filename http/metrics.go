package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/arl/statsviz"
)

// MetricsServer serves the statsviz runtime dashboard under /debug/statsviz/
// on its own listener, away from the API router and its CSRF checks.
func MetricsServer(port int) (*http.Server, error) {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return nil, fmt.Errorf("failed to register statsviz: %w", err)
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
