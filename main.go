// Command mine-search runs the discovery worker: random-IP search
// workers, the periodic update scheduler, and the notify listener, all
// sharing one database pool.
package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kauri-off/mine-search/internal/config"
	"github.com/kauri-off/mine-search/internal/db"
	"github.com/kauri-off/mine-search/internal/metrics"
	"github.com/kauri-off/mine-search/internal/worker"
)

const version = "1.4.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "mine-search",
		Short:         "Minecraft server discovery and monitoring worker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	log.Info("mine_search starting")
	log.Infof("Threads: %d", cfg.Threads)

	gdb, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	log.Debug("Connection to database established")

	var count int64
	if err := gdb.Model(&db.Server{}).Count(&count).Error; err != nil {
		return err
	}
	log.Debugf("Servers in db: %d", count)

	log.Infof("Search module: %v", cfg.SearchModule)
	log.Infof("Update module: %v", cfg.UpdateModule)
	if cfg.UpdateModule {
		log.Infof("Update with connection: %v", cfg.UpdateWithConnection)
		log.Infof("Only update spoofable: %v", cfg.OnlyUpdateSpoofable)
	}

	if cfg.MetricsListen != "" {
		metrics.Serve(cfg.MetricsListen, log)
	}

	engine := &worker.Engine{
		DB:                   gdb,
		Log:                  log,
		Pause:                worker.NewPause(true),
		SearchEnabled:        cfg.SearchModule,
		UpdateWithConnection: cfg.UpdateWithConnection,
		OnlyUpdateSpoofable:  cfg.OnlyUpdateSpoofable,
		OnlyUpdateCracked:    cfg.OnlyUpdateCracked,
	}

	ctx := context.Background()
	var wg sync.WaitGroup

	if cfg.SearchModule {
		for i := 0; i < cfg.Threads; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				engine.SearchWorker(ctx)
			}()
		}
		log.Info("All worker threads started")
	}

	if cfg.UpdateModule {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Updater(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.NotifyListener(ctx)
	}()

	wg.Wait()
	return nil
}
