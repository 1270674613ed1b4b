package worker

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/kauri-off/mine-search/internal/db"
	"github.com/kauri-off/mine-search/internal/metrics"
	"github.com/kauri-off/mine-search/internal/protocol"
	"github.com/kauri-off/mine-search/internal/slp"
)

// HandleValidIP runs the full ingest against a candidate: status
// exchange, login-phase classification, then the server upsert, one
// snapshot, and the player sample. A live socket from the probe may be
// passed in; nil dials fresh. Any failure along the way fails the whole
// ingest.
func (e *Engine) HandleValidIP(ctx context.Context, host string, port uint16, conn net.Conn) error {
	status, ping, err := slp.GetStatus(ctx, host, port, conn)
	if err != nil {
		return err
	}

	extra, err := slp.GetExtraData(ctx, host, port, status.Version.Protocol)
	if err != nil {
		return err
	}

	now := time.Now()
	server := db.Server{
		IP:               host,
		Port:             int32(port),
		VersionName:      status.Version.Name,
		Protocol:         status.Version.Protocol,
		Description:      db.JSON(status.Description),
		Favicon:          status.Favicon,
		Ping:             ping,
		IsOnlineMode:     extra.IsOnlineMode,
		DisconnectReason: db.JSON(extra.DisconnectReason),
		IsOnline:         true,
		IsForge:          status.IsForge(),
	}

	tx := e.DB.WithContext(ctx)

	// Re-discovery collides on ip and refreshes the liveness columns.
	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ip"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"updated_at": now,
			"is_online":  true,
			"favicon":    status.Favicon,
		}),
	}).Create(&server).Error
	if err != nil {
		return errors.Wrap(err, "upsert server")
	}
	if server.ID == 0 {
		// Not every dialect returns the row on a conflict update.
		if err := tx.Select("id").Where("ip = ?", host).First(&server).Error; err != nil {
			return errors.Wrap(err, "load server id")
		}
	}

	snapshot := db.Snapshot{
		ServerID:      server.ID,
		PlayersOnline: int32(status.Players.Online),
		PlayersMax:    int32(status.Players.Max),
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		return errors.Wrap(err, "insert snapshot")
	}

	if err := e.insertPlayers(ctx, server.ID, status.Players.Sample, false); err != nil {
		return errors.Wrap(err, "insert players")
	}

	metrics.ServersFound.Inc()
	metrics.Snapshots.Inc()

	e.Log.WithFields(logrus.Fields{
		"target":      "server_found",
		"ip":          host,
		"port":        port,
		"version":     status.Version.Name,
		"online":      status.Players.Online,
		"max":         status.Players.Max,
		"licensed":    extra.IsOnlineMode,
		"desc":        status.DescriptionText(),
		"has_favicon": status.Favicon != nil,
	}).Info("New server detected")

	return nil
}

// insertPlayers upserts a roster sample for a server. The ingest path
// ignores conflicts; the update path refreshes last_seen_at instead.
func (e *Engine) insertPlayers(ctx context.Context, serverID int32, sample []protocol.Player, refreshSeen bool) error {
	if len(sample) == 0 {
		return nil
	}

	now := time.Now()
	players := make([]db.Player, 0, len(sample))
	for _, p := range sample {
		players = append(players, db.Player{
			ServerID:   serverID,
			Name:       p.Name,
			Status:     db.PlayerStatusNone,
			LastSeenAt: now,
		})
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_id"}, {Name: "name"}},
		DoNothing: true,
	}
	if refreshSeen {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.Assignments(map[string]interface{}{"last_seen_at": now})
	}

	return e.DB.WithContext(ctx).Clauses(conflict).Create(&players).Error
}
