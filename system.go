package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"tollgate/pkg/anpr"
	"tollgate/pkg/toll"
)

// minimum detector confidence for a plate region to be accepted
const plateMinConfidence = 0.45

// System bundles the long-lived collaborators built once at startup.
type System struct {
	Config   toll.Config
	Files    *toll.FileManager
	Registry *toll.Registry
	Pipeline *toll.Pipeline
	TxLog    *toll.TransactionLog
	ErrLog   *toll.ErrorLog
	Log      zerolog.Logger
}

// baseDir returns the toll system root (configurable via TOLL_BASE env).
func baseDir() string {
	if v := os.Getenv("TOLL_BASE"); v != "" {
		return v
	}
	return "toll_system"
}

// buildSystem bootstraps directories, config, log sinks, registry, vision
// engines and the pipeline. Any failure here is fatal: no frames are
// processed on a half-initialized system.
func buildSystem(logger zerolog.Logger) (*System, error) {
	fm, err := toll.NewFileManager(baseDir())
	if err != nil {
		return nil, fmt.Errorf("file layout: %w", err)
	}
	cfg, err := toll.LoadConfig(fm.ConfigPath("config.txt"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	errlog, err := toll.OpenErrorLog(fm.LogPath("error_log.txt"))
	if err != nil {
		return nil, err
	}
	txlog, err := toll.OpenTransactionLog(fm.LogPath("transaction_log.csv"))
	if err != nil {
		return nil, err
	}

	// a missing or partially bad registry file is an operational problem,
	// not a startup failure: log it and run with what loaded
	registry, err := toll.LoadRegistry(fm.ConfigPath("registered_vehicles.csv"), errlog)
	if err != nil {
		_ = errlog.Appendf("could not open registered vehicles file: %v", err)
		registry = toll.NewRegistry()
	}

	billing, err := toll.NewBillingEngine(cfg.Rates, registry)
	if err != nil {
		return nil, err
	}
	recognizer, err := anpr.NewTesseractRecognizer()
	if err != nil {
		return nil, err
	}
	localizer := anpr.NewLocalizer(anpr.NewGradientDetector(), plateMinConfidence)

	var archiver toll.Archiver
	if db != nil {
		archiver = dbArchiver{}
	}

	pipeline := toll.NewPipeline(toll.PipelineParams{
		Localizer:  localizer,
		Recognizer: recognizer,
		Registry:   registry,
		Billing:    billing,
		Files:      fm,
		TxLog:      txlog,
		ErrLog:     errlog,
		Archiver:   archiver,
		Log:        logger,
	})

	logger.Info().
		Int("vehicles", registry.Len()).
		Str("rate_car", toll.FormatAmount(cfg.Rates[toll.ClassCar])).
		Str("rate_truck", toll.FormatAmount(cfg.Rates[toll.ClassTruck])).
		Str("rate_bus", toll.FormatAmount(cfg.Rates[toll.ClassBus])).
		Msgf("system ready (camera %dx%d@%d)", cfg.CameraW, cfg.CameraH, cfg.CameraFPS)

	return &System{
		Config:   cfg,
		Files:    fm,
		Registry: registry,
		Pipeline: pipeline,
		TxLog:    txlog,
		ErrLog:   errlog,
		Log:      logger,
	}, nil
}
