// FilePath: internal/server/server.deps.go
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/cleanup"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/database"
	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/lease"
	"github.com/varroawatch/hub/internal/monitoring"
	"github.com/varroawatch/hub/internal/notification"
	"github.com/varroawatch/hub/internal/repository"
	"github.com/varroawatch/hub/internal/repository/files"
	"github.com/varroawatch/hub/internal/repository/gcs"
	"github.com/varroawatch/hub/internal/repository/memory"
	"github.com/varroawatch/hub/internal/repository/postgres"
	"github.com/varroawatch/hub/internal/sweeper"
)

const connectTimeout = 5 * time.Second

// Dependencies are the long-lived collaborators shared by the HTTP server
// and the CLI commands.
type Dependencies struct {
	Config     *config.Config
	DB         database.DB
	Store      repository.Store
	Blobs      repository.BlobStore
	Dispatcher *notification.Dispatcher
	Monitoring *monitoring.Service
	Locker     lease.Locker

	// MediaDir is set when blobs live on the local filesystem.
	MediaDir string

	closers []func() error
}

// NewDependencies connects every backend selected by cfg.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	d := &Dependencies{
		Config: cfg,
		Monitoring: monitoring.NewService(monitoring.Config{
			MetricsPath: cfg.Monitoring.MetricsPath,
		}),
	}

	if err := d.initStore(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.initBlobs(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.initNotifications(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.initLocker(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) initStore(ctx context.Context) error {
	switch d.Config.Database.Driver {
	case "memory":
		nuts.L.Warnf("[Server] Using the in-memory store, data is lost on exit")
		d.Store = memory.NewStore()
	default:
		db, err := database.NewPostgresDB(d.Config.Database.Postgres)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, db.Close)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		d.DB = db
		d.Store = postgres.NewStore(db)
	}
	return nil
}

func (d *Dependencies) initBlobs(ctx context.Context) error {
	cfg := d.Config.Storage
	switch cfg.Driver {
	case "gcs":
		blobs, err := gcs.NewBlobStore(ctx, cfg.GCS.Bucket, cfg.GCS.CredentialsFile)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, blobs.Close)
		d.Blobs = blobs
	case "memory":
		d.Blobs = memory.NewBlobStore("local")
	default:
		blobs, err := files.NewFileRepository(files.FileConfig{
			BasePath:      cfg.Filesystem.BasePath,
			PublicBaseURL: cfg.Filesystem.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize file repository: %w", err)
		}
		d.Blobs = blobs
		d.MediaDir = blobs.BasePath()
	}
	nuts.L.Infof("[Server] Blob storage: %s", cfg.Driver)
	return nil
}

func (d *Dependencies) initNotifications() error {
	cfg := d.Config.Notifications
	var notifier notification.Notifier = notification.LogNotifier{}
	if cfg.Driver == "shoutrrr" && cfg.Enabled {
		sn, err := notification.NewShoutrrrNotifier(cfg.URLs, cfg.SendTimeout)
		if err != nil {
			return err
		}
		notifier = sn
	}

	d.Dispatcher = notification.NewDispatcher(notifier, cfg)
	d.Dispatcher.OnResult(func(t notification.Type, result string) {
		d.Monitoring.NotificationResult(string(t), result)
	})
	d.closers = append(d.closers, func() error {
		d.Dispatcher.Wait()
		return nil
	})

	if !cfg.Enabled {
		nuts.L.Infof("[Server] Push notifications are disabled")
	}
	return nil
}

func (d *Dependencies) initLocker(ctx context.Context) error {
	cfg := d.Config.Redis
	if !cfg.Enabled {
		d.Locker = lease.NewLocalLocker()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	d.closers = append(d.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	d.Locker = lease.NewRedisLocker(client)
	nuts.L.Infof("[Server] Sweep lease held in redis at %s:%d", cfg.Host, cfg.Port)
	return nil
}

// HubService builds the request-facing service on these dependencies.
func (d *Dependencies) HubService() (*hubservice.HubService, error) {
	svc := hubservice.New(d.Store, d.Blobs, d.Dispatcher, hubservice.Options{
		Display:  d.Config.Display,
		Observer: d.Monitoring,
	})
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	svc.Cleanup.OnCleanup(cleanup.EventImageDeleted, func(id string) {
		d.Monitoring.RecordEvent("image_deletion", map[string]string{"image_id": id})
	})
	svc.Cleanup.OnCleanup(cleanup.EventHiveReset, func(id string) {
		nuts.L.Infof("[Cleanup] Hive %s reset", id)
		d.Monitoring.HiveReset()
		d.Monitoring.RecordEvent("hive_reset", map[string]string{"hive_id": id})
	})
	return svc, nil
}

// Sweeper builds the inactivity sweeper on these dependencies.
func (d *Dependencies) Sweeper() *sweeper.Sweeper {
	cfg := d.Config.Sweeper
	return sweeper.New(d.Store, sweeper.Options{
		Interval:    cfg.Interval,
		Threshold:   cfg.Threshold,
		Timeout:     cfg.Timeout,
		Concurrency: cfg.Concurrency,
		LockKey:     cfg.LockKey,
		Locker:      d.Locker,
		Notifier:    d.Dispatcher,
		Observer:    d.Monitoring,
	})
}

// Close releases every backend in reverse order of acquisition.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			nuts.L.Warnf("[Server] Error while closing: %v", err)
		}
	}
	d.closers = nil
}
