package worker

import (
	"context"

	"github.com/kauri-off/mine-search/internal/metrics"
	"github.com/kauri-off/mine-search/internal/scanner"
)

// SearchWorker is one random-scan loop: sample an address, probe it,
// and on a live socket run the ingest. Workers share nothing but the
// database pool and the pause gate, which they observe only between
// iterations.
func (e *Engine) SearchWorker(ctx context.Context) {
	gen, err := scanner.NewGenerator()
	if err != nil {
		e.Log.WithError(err).Error("Search worker could not seed its generator")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !e.Pause.Running() {
			select {
			case <-ctx.Done():
				return
			case <-e.Pause.Changed():
			}
			continue
		}

		ip := gen.Next().String()

		conn, err := scanner.Probe(ctx, ip, DefaultPort)
		metrics.Probes.Inc()
		if err != nil {
			continue
		}

		e.Log.Debugf("Potential server found at %s:%d", ip, DefaultPort)

		ictx, cancel := context.WithTimeout(ctx, ingestTimeout)
		err = e.HandleValidIP(ictx, ip, DefaultPort, conn)
		cancel()
		if err != nil {
			e.Log.WithError(err).Debugf("Failed to process server %s:%d", ip, DefaultPort)
		}
	}
}
