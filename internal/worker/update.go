package worker

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kauri-off/mine-search/internal/db"
	"github.com/kauri-off/mine-search/internal/metrics"
	"github.com/kauri-off/mine-search/internal/slp"
)

// Updater is the periodic refresh driver. Each cycle it parks the search
// workers, drains the slow external targets, refreshes every known
// server with bounded concurrency, and reopens the gate. Database
// failures abort the cycle, never the process.
func (e *Engine) Updater(ctx context.Context) {
	log := e.Log.WithField("module", "updater")

	for {
		if e.SearchEnabled {
			log.Info("Stopping workers")
			e.Pause.Set(false)
			sleep(ctx, quiesceDelay)
		}

		if err := e.ProcessExternalTargets(ctx); err != nil {
			log.WithError(err).Error("Error processing external IPs")
		}

		log.Info("Starting update cycle")

		servers, err := e.listServers(ctx)
		if err != nil {
			log.WithError(err).Error("Could not load server list, restarting cycle")
		} else {
			e.fanOutUpdates(ctx, servers)
			metrics.UpdateCycles.Inc()
			log.Info("Update cycle finished")
		}

		if e.SearchEnabled {
			e.Pause.Set(true)
			log.Info("Resuming workers")
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		sleep(ctx, updateCycleInterval)
	}
}

// listServers loads the refresh work list, narrowed by the operator
// filters when set.
func (e *Engine) listServers(ctx context.Context) ([]db.ServerRef, error) {
	q := e.DB.WithContext(ctx).Model(&db.Server{}).Select("id", "ip", "port")
	if e.OnlyUpdateSpoofable {
		q = q.Where("is_spoofable = ?", true)
	}
	if e.OnlyUpdateCracked {
		q = q.Where("is_online_mode = ?", false)
	}

	var refs []db.ServerRef
	if err := q.Scan(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// fanOutUpdates refreshes servers with at most fanOutLimit in flight.
func (e *Engine) fanOutUpdates(ctx context.Context, servers []db.ServerRef) {
	sem := semaphore.NewWeighted(fanOutLimit)
	for _, server := range servers {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(ref db.ServerRef) {
			defer sem.Release(1)
			e.UpdateServer(ctx, ref, e.UpdateWithConnection)
		}(server)
	}
	// Drain the semaphore so the cycle ends only after the last probe.
	_ = sem.Acquire(context.Background(), fanOutLimit)
	sem.Release(fanOutLimit)
}

// UpdateServer refreshes one known server. A failed status probe is a
// normal observation: the row is marked offline and nothing else is
// written. On success the snapshot, the player sample, and the server
// columns are written in that order; the optional login probe updates
// the online-mode columns and is non-fatal.
func (e *Engine) UpdateServer(ctx context.Context, ref db.ServerRef, withConnection bool) {
	sctx, cancel := context.WithTimeout(ctx, updateStatusTimeout)
	status, ping, err := slp.GetStatus(sctx, ref.IP, uint16(ref.Port), nil)
	cancel()
	if err != nil {
		err = e.DB.WithContext(ctx).Model(&db.Server{}).
			Where("id = ?", ref.ID).
			UpdateColumn("is_online", false).Error
		if err != nil {
			e.Log.WithError(err).WithField("ip", ref.IP).Error("Could not mark server offline")
		}
		return
	}

	tx := e.DB.WithContext(ctx)

	snapshot := db.Snapshot{
		ServerID:      ref.ID,
		PlayersOnline: int32(status.Players.Online),
		PlayersMax:    int32(status.Players.Max),
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		e.Log.WithError(err).WithField("ip", ref.IP).Error("Could not insert snapshot")
		return
	}
	metrics.Snapshots.Inc()

	if err := e.insertPlayers(ctx, ref.ID, status.Players.Sample, true); err != nil {
		e.Log.WithError(err).WithField("ip", ref.IP).Error("Could not upsert players")
		return
	}

	changes := map[string]interface{}{
		"version_name": status.Version.Name,
		"protocol":     status.Version.Protocol,
		"description":  db.JSON(status.Description),
		"updated_at":   time.Now(),
		"is_online":    true,
		"is_forge":     status.IsForge(),
		"favicon":      status.Favicon,
		"ping":         ping,
	}
	if err := tx.Model(&db.Server{}).Where("id = ?", ref.ID).UpdateColumns(changes).Error; err != nil {
		e.Log.WithError(err).WithField("ip", ref.IP).Error("Could not update server")
		return
	}

	if !withConnection {
		return
	}

	lctx, cancel := context.WithTimeout(ctx, updateLoginTimeout)
	extra, err := slp.GetExtraData(lctx, ref.IP, uint16(ref.Port), status.Version.Protocol)
	cancel()
	if err != nil {
		e.Log.WithError(err).Debugf("Could not get extra data for %s", ref.IP)
		return
	}

	err = tx.Model(&db.Server{}).Where("id = ?", ref.ID).UpdateColumns(map[string]interface{}{
		"is_online_mode":    extra.IsOnlineMode,
		"disconnect_reason": db.JSON(extra.DisconnectReason),
	}).Error
	if err != nil {
		e.Log.WithError(err).WithField("ip", ref.IP).Error("Could not update online-mode columns")
	}
}
