package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Fan-out and scheduling constants. The semaphore width caps concurrent
// probes on every batch path; the quiesce delay gives in-flight search
// probes time to finish after the gate closes.
const (
	DefaultPort = 25565

	fanOutLimit = 50

	ingestTimeout       = 10 * time.Second
	updateStatusTimeout = 10 * time.Second
	updateLoginTimeout  = 5 * time.Second
	targetIngestTimeout = 5 * time.Second

	quiesceDelay        = 20 * time.Second
	updateCycleInterval = 600 * time.Second
	notifyInterval      = 2 * time.Second
)

// Engine wires the pipeline modules to their shared resources: the
// pooled database handle, the logger, the pause gate, and the module
// toggles resolved at startup.
type Engine struct {
	DB    *gorm.DB
	Log   *logrus.Logger
	Pause *Pause

	SearchEnabled        bool
	UpdateWithConnection bool
	OnlyUpdateSpoofable  bool
	OnlyUpdateCracked    bool
}

// sleep waits for the duration or the context, whichever ends first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
