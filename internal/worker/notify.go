package worker

import (
	"context"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kauri-off/mine-search/internal/db"
)

// NotifyListener is the low-latency path for operator-triggered actions.
// Every two seconds it consumes all pending ping requests and quick scan
// targets in one transaction, then dispatches updates and ingests with a
// bounded fan-out.
func (e *Engine) NotifyListener(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := e.notifyCycle(ctx); err != nil {
			e.Log.WithError(err).Error("Notify cycle failed")
		}

		sleep(ctx, notifyInterval)
	}
}

func (e *Engine) notifyCycle(ctx context.Context) error {
	var pings []db.PingRequest
	var targets []db.ScanTarget

	// Delete-returning keeps the drain atomic: a row is consumed by
	// exactly one cycle even with overlapping listeners.
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Returning{}).
			Where("id IS NOT NULL").
			Delete(&pings).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.Returning{}).
			Where("quick = ?", true).
			Delete(&targets).Error
	})
	if err != nil {
		return err
	}
	if len(pings) == 0 && len(targets) == 0 {
		return nil
	}

	refs, err := e.resolveServers(ctx, pings)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(fanOutLimit)

	for _, ping := range pings {
		ref, ok := refs[ping.ServerID]
		if !ok {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(ref db.ServerRef, withConnection bool) {
			defer sem.Release(1)
			e.UpdateServer(ctx, ref, withConnection)
		}(ref, ping.WithConnection)
	}

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

// resolveServers maps the drained ping requests back to server rows with
// a single IN query.
func (e *Engine) resolveServers(ctx context.Context, pings []db.PingRequest) (map[int32]db.ServerRef, error) {
	if len(pings) == 0 {
		return nil, nil
	}

	ids := make([]int32, 0, len(pings))
	for _, p := range pings {
		ids = append(ids, p.ServerID)
	}

	var refs []db.ServerRef
	err := e.DB.WithContext(ctx).Model(&db.Server{}).
		Select("id", "ip", "port").
		Where("id IN ?", ids).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int32]db.ServerRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}
	return byID, nil
}
