// Package metrics registers the pipeline counters and optionally exposes
// them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// Probes counts TCP connection attempts on the random-scan path.
	Probes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesearch_probes_total",
		Help: "TCP probes attempted by the search workers.",
	})

	// ServersFound counts successful ingests.
	ServersFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesearch_servers_found_total",
		Help: "Servers ingested (first discovery or re-discovery).",
	})

	// Snapshots counts player-count observations written.
	Snapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesearch_snapshots_total",
		Help: "Player count snapshots inserted.",
	})

	// UpdateCycles counts completed updater cycles.
	UpdateCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesearch_update_cycles_total",
		Help: "Update cycles completed.",
	})
)

// Serve exposes /metrics on addr in a background goroutine. Counters are
// collected regardless; this only adds the exposition endpoint.
func Serve(addr string, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics listener failed")
		}
	}()
}
