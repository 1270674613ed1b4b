package db

import "time"

// PlayerStatus is the operator-assigned classification of a sighted name.
type PlayerStatus string

// Player status values. The core only ever writes the default.
const (
	PlayerStatusNone    PlayerStatus = "None"
	PlayerStatusRegular PlayerStatus = "Regular"
	PlayerStatusAdmin   PlayerStatus = "Admin"
)

// Server is one discovered host, unique per ip. Created by the ingest
// path on first successful status; re-discovery collides on ip and turns
// into an update. Admin flags (is_checked, is_spoofable, is_crashed) are
// owned by the operator API and never written here.
type Server struct {
	ID               int32  `gorm:"primaryKey"`
	IP               string `gorm:"column:ip;uniqueIndex;not null"`
	Port             int32  `gorm:"not null"`
	VersionName      string `gorm:"not null"`
	Protocol         int32  `gorm:"not null"`
	Description      JSON   `gorm:"type:jsonb;not null"`
	Favicon          *string
	Ping             *int64
	IsOnlineMode     bool `gorm:"not null"`
	DisconnectReason JSON `gorm:"type:jsonb"`
	IsChecked        bool `gorm:"not null;default:false"`
	IsSpoofable      *bool
	IsCrashed        bool `gorm:"not null;default:false"`
	IsOnline         bool `gorm:"not null;default:true"`
	IsForge          bool `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName maps Server onto the servers table.
func (Server) TableName() string { return "servers" }

// ServerRef is the slim projection the update paths work from.
type ServerRef struct {
	ID   int32
	IP   string `gorm:"column:ip"`
	Port int32
}

// Snapshot is one append-only player-count observation.
type Snapshot struct {
	ID            int64     `gorm:"primaryKey"`
	ServerID      int32     `gorm:"not null;index"`
	PlayersOnline int32     `gorm:"not null"`
	PlayersMax    int32     `gorm:"not null"`
	RecordedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName maps Snapshot onto the history table.
func (Snapshot) TableName() string { return "player_count_snapshots" }

// Player is one name sighted on a server. Unique per (server_id, name);
// re-sighting refreshes last_seen_at on the update path.
type Player struct {
	ID         int32        `gorm:"primaryKey"`
	ServerID   int32        `gorm:"not null;uniqueIndex:idx_players_server_name"`
	Name       string       `gorm:"not null;uniqueIndex:idx_players_server_name"`
	Status     PlayerStatus `gorm:"not null;default:None"`
	LastSeenAt time.Time    `gorm:"autoCreateTime"`
}

// TableName maps Player onto the players table.
func (Player) TableName() string { return "players" }

// ScanTarget is an externally enqueued address. quick=true rows ride the
// 2-second notify cycle, quick=false rows the updater cycle. Rows are
// consumed destructively.
type ScanTarget struct {
	ID    int32  `gorm:"primaryKey"`
	IP    string `gorm:"column:ip;not null"`
	Port  int32  `gorm:"not null"`
	Quick bool   `gorm:"not null;default:false"`
}

// TableName maps ScanTarget onto the external queue table.
func (ScanTarget) TableName() string { return "scan_targets" }

// PingRequest is an externally enqueued refresh of a known server.
type PingRequest struct {
	ID             int32 `gorm:"primaryKey"`
	ServerID       int32 `gorm:"not null"`
	WithConnection bool  `gorm:"not null;default:false"`
}

// TableName maps PingRequest onto the external queue table.
func (PingRequest) TableName() string { return "ping_requests" }
