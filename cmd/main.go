package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gladneycenter/bps-kpi-ingest/internal/api"
	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
	"github.com/gladneycenter/bps-kpi-ingest/internal/ingest"
	"github.com/gladneycenter/bps-kpi-ingest/internal/logging"
	"github.com/gladneycenter/bps-kpi-ingest/internal/metrics"
	"github.com/gladneycenter/bps-kpi-ingest/internal/scheduler"
	"github.com/gladneycenter/bps-kpi-ingest/internal/storage"
)

// Command bps-kpi-ingest extracts partner KPIs into a partitioned CSV in
// object storage.
//
// Every run fetches the KPI endpoints, normalizes the responses into one
// table, writes bps_kpis_<YYYYMMDD_HHMMSS>.csv to the scratch directory
// and uploads it to <prefix>/year=<YYYY>/month=<MM>/ in the bucket.
//
// Usage:
//
//	bps-kpi-ingest [flags]
//
// The flags are:
//
//	-config string
//	      optional YAML config file
//	-env-file string
//	      dotenv file loaded before reading the environment (default ".env")
//	-schedule string
//	      cron spec; when set the job runs on that schedule instead of once
//
// BPS_KPI_TOKEN and BUCKET_NAME are required.
func main() {
	// Parse command line flags
	flags := parseFlags()

	if err := godotenv.Load(flags.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	appConfig, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flags.Schedule != "" {
		appConfig.Job.Schedule = flags.Schedule
	}

	// Initialize structured logger
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	uploader, err := storage.New(ctx, appConfig.Storage)
	if err != nil {
		logger.Fatalf("Failed to create storage client: %v", err)
	}
	defer uploader.Close()

	client := api.NewClient(appConfig.API, logger)
	job := ingest.New(appConfig, client, uploader, logger, metrics.NewRecorder())

	if appConfig.Job.Schedule == "" {
		if err := runOnce(ctx, job, logger); err != nil {
			uploader.Close()
			logger.Fatalf("Run failed: %v", err)
		}
		return
	}

	runScheduled(ctx, job, logger, appConfig.Job)
}

type Flags struct {
	ConfigPath string
	EnvFile    string
	Schedule   string
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "Optional YAML config file")
	flag.StringVar(&f.EnvFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	flag.StringVar(&f.Schedule, "schedule", "", "Cron spec; run on a schedule instead of once")

	flag.Parse()

	return f
}

func runOnce(ctx context.Context, job *ingest.Job, logger *logrus.Logger) error {
	res, err := job.Run(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"rows":   res.Rows,
		"uri":    res.URI,
	}).Info("Run finished")
	return nil
}

// runScheduled blocks until the process is signalled.
func runScheduled(ctx context.Context, job *ingest.Job, logger *logrus.Logger, cfg config.JobConfig) {
	sched := scheduler.NewScheduler(ctx, job, logger, cfg.RunTimeout)
	if err := sched.Start(cfg.Schedule); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"schedule":    cfg.Schedule,
		"run_timeout": cfg.RunTimeout.String(),
	}).Info("Scheduler started")

	<-ctx.Done()
	logger.Println("Received shutdown signal, waiting for the current run")
	sched.Stop()
	logger.Println("Scheduler stopped")
}
