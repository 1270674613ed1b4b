package worker

import (
	"context"
	"net/netip"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kauri-off/mine-search/internal/db"
)

// ProcessExternalTargets drains the slow (quick=false) scan targets and
// ingests each with a bounded fan-out. Runs at the start of every update
// cycle.
func (e *Engine) ProcessExternalTargets(ctx context.Context) error {
	var targets []db.ScanTarget
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.Returning{}).
			Where("quick = ?", false).
			Delete(&targets).Error
	})
	if err != nil {
		return errors.Wrap(err, "drain scan targets")
	}
	if len(targets) == 0 {
		return nil
	}

	e.Log.Infof("Processing %d external targets", len(targets))

	sem := semaphore.NewWeighted(fanOutLimit)
	for _, target := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(t db.ScanTarget) {
			defer sem.Release(1)
			e.ingestTarget(ctx, t)
		}(target)
	}
	_ = sem.Acquire(context.Background(), fanOutLimit)
	sem.Release(fanOutLimit)

	return nil
}

// ingestTarget validates and ingests one externally submitted address.
func (e *Engine) ingestTarget(ctx context.Context, t db.ScanTarget) {
	addr, err := netip.ParseAddr(t.IP)
	if err != nil {
		e.Log.WithField("ip", t.IP).Warn("Skipping target with invalid address")
		return
	}

	tctx, cancel := context.WithTimeout(ctx, targetIngestTimeout)
	defer cancel()
	if err := e.HandleValidIP(tctx, addr.String(), uint16(t.Port), nil); err != nil {
		e.Log.WithError(err).Debugf("Failed to process target %s:%d", t.IP, t.Port)
	}
}
