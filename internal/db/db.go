// Package db owns the pooled gorm gateway and the persistence models of
// the discovery pipeline. All writes go through the conflict policies
// declared on the callers; this package only hands out the shared handle.
package db

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

// Pool settings shared by every worker goroutine. Connections are checked
// out per statement, so the open cap bounds concurrent statements, not
// workers.
const (
	poolMaxIdle     = 10
	poolMaxOpen     = 100
	poolMaxLifetime = time.Hour
)

// Connect opens the shared database handle from a postgres connection
// string and verifies it with a ping. SQL traffic is logged through the
// supplied logrus logger at warn level and above.
func Connect(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlog.New(log, gormlog.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlog.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "access connection pool")
	}
	sqlDB.SetMaxIdleConns(poolMaxIdle)
	sqlDB.SetMaxOpenConns(poolMaxOpen)
	sqlDB.SetConnMaxLifetime(poolMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}
	return gdb, nil
}
