// Package app wires the configured backends into the planning service used
// by the command line and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vivero-po/internal/cache"
	"github.com/andresuchdata/vivero-po/internal/config"
	"github.com/andresuchdata/vivero-po/internal/drive"
	"github.com/andresuchdata/vivero-po/internal/ingest"
	"github.com/andresuchdata/vivero-po/internal/pipeline"
	"github.com/andresuchdata/vivero-po/internal/report"
	"github.com/andresuchdata/vivero-po/internal/repository/postgres"
	"github.com/andresuchdata/vivero-po/internal/service"
	"github.com/andresuchdata/vivero-po/internal/state"
	"github.com/andresuchdata/vivero-po/internal/storage"
	"github.com/andresuchdata/vivero-po/pkg/logger"
)

type App struct {
	Config   *config.Config
	Planning *config.Planning
	Store    state.Store
	Cache    cache.StatusCache
	Source   *ingest.DirSource
	Reports  *report.Writer
	Service  *service.PlanningService
	// Uploads is nil when object storage is disabled.
	Uploads storage.ObjectStorage
}

// Open sets up logging, reads the planning rules and opens every backend.
// On error whatever was already opened is closed again.
func Open(ctx context.Context, cfg *config.Config) (a *App, err error) {
	logger.SetLevel(cfg.App.LogLevel)
	if err := logger.SetFile(cfg.App.LogFile); err != nil {
		return nil, err
	}

	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	a.Planning, err = config.LoadPlanning(cfg.App.PlanningFile)
	if err != nil {
		return nil, err
	}

	a.Store, err = OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Cache, err = cache.NewStatusCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("status cache unavailable, continuing without it")
		a.Cache, err = cache.NewNoopStatusCache(), nil
	}

	a.Source = ingest.NewDirSource(cfg.App.InputDir, a.Planning.Inputs, a.Planning.LivePetFamilies)
	a.Reports = report.NewWriter(cfg.App.OutputDir, report.ParseFormat(cfg.App.ReportFormat))

	runner := pipeline.NewRunner(a.Planning, a.Store, a.Source, a.Reports)
	a.Service = service.NewPlanningService(a.Store, a.Cache, runner, a.Planning.YearLength)

	if cfg.Storage.Enabled {
		uploads, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		a.Uploads = uploads
		a.Service.WithUploads(uploads, cfg.Storage.Prefix)
	}

	log.Debug().
		Str("state", cfg.State.Backend).
		Bool("cache", cfg.Cache.Enabled).
		Bool("storage", cfg.Storage.Enabled).
		Str("input_dir", cfg.App.InputDir).
		Str("output_dir", cfg.App.OutputDir).
		Msg("application ready")
	return a, nil
}

// OpenStore opens the state backend selected by cfg.State.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case config.StateBackendBolt, "":
		return state.NewBoltStore(cfg.State.Path)
	case config.StateBackendFile:
		return state.NewFileStore(cfg.State.Path)
	case config.StateBackendMemory:
		return state.NewMemoryStore(), nil
	case config.StateBackendPostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewStateStore(ctx, db)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// FetchDrive downloads the input files from the configured Drive folder
// into the input directory.
func (a *App) FetchDrive(ctx context.Context) ([]string, error) {
	if a.Config.Drive.CredentialsFile == "" {
		return nil, errors.New("DRIVE_CREDENTIALS_FILE is not set")
	}
	srv, err := drive.NewService(ctx, a.Config.Drive.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return drive.NewDownloader(srv).Fetch(ctx, drive.DownloadOptions{
		FolderID:    a.Config.Drive.FolderID,
		FolderPath:  a.Config.Drive.FolderPath,
		DownloadDir: a.Source.Dir(),
		Bases:       a.Source.Files().Bases(),
	})
}

// Close releases the state store, the redis client and the log file. It
// is safe on a partly opened App.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	errs = append(errs, logger.Close())
	return errors.Join(errs...)
}
