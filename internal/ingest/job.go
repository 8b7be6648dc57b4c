// Package ingest runs one KPI extraction: fetch every endpoint, normalize,
// aggregate, write the CSV artifact and upload it.
//
// A run is strictly sequential and stops at the first error; nothing is
// uploaded unless every step before the upload succeeded.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gladneycenter/bps-kpi-ingest/internal/api"
	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
	"github.com/gladneycenter/bps-kpi-ingest/internal/export"
	"github.com/gladneycenter/bps-kpi-ingest/internal/metrics"
	"github.com/gladneycenter/bps-kpi-ingest/internal/storage"
	"github.com/gladneycenter/bps-kpi-ingest/internal/transform"
)

// Fetcher retrieves the decoded payload of one endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (api.Payload, error)
}

// Result describes a successful run.
type Result struct {
	RunID      string
	CapturedAt time.Time
	Rows       int
	LocalPath  string
	ObjectPath string
	URI        string
}

type Job struct {
	cfg      *config.Config
	fetcher  Fetcher
	uploader storage.Uploader
	logger   *logrus.Logger
	recorder *metrics.Recorder
	now      func() time.Time
}

// Option customizes a Job.
type Option func(*Job)

// WithClock replaces the wall clock used for the capture time.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// New builds a Job. recorder may be nil.
func New(cfg *config.Config, fetcher Fetcher, uploader storage.Uploader, logger *logrus.Logger, recorder *metrics.Recorder, opts ...Option) *Job {
	j := &Job{
		cfg:      cfg,
		fetcher:  fetcher,
		uploader: uploader,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes one full extraction.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	if err := j.cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := j.run(ctx)

	if j.recorder != nil {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
		}
		j.recorder.ObserveRun(status, time.Since(started), j.now())
		j.pushMetrics(ctx)
	}
	return res, err
}

func (j *Job) run(ctx context.Context) (*Result, error) {
	// One capture time for every row, the file name and the object path.
	capturedAt := j.now().UTC().Truncate(time.Microsecond)
	runID := uuid.NewString()

	log := j.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"captured_at": capturedAt.Format(time.RFC3339),
	})

	var agg Aggregator
	for _, endpoint := range j.cfg.API.Endpoints {
		kpi := transform.KPIName(endpoint)
		elog := log.WithField("endpoint", endpoint)
		elog.Info("Calling endpoint")

		payload, err := j.fetcher.Fetch(ctx, endpoint)
		if err != nil {
			j.observeRequest(kpi, metrics.StatusFailure)
			return nil, err
		}

		rows, err := transform.Normalize(endpoint, payload, capturedAt)
		if errors.Is(err, transform.ErrNoData) {
			if j.cfg.Job.MissingData == config.MissingDataFail {
				j.observeRequest(kpi, metrics.StatusFailure)
				return nil, fmt.Errorf("%w: %v", api.ErrSchema, err)
			}
			j.observeRequest(kpi, metrics.StatusSkipped)
			elog.Warn("No data returned for endpoint")
			continue
		}
		if err != nil {
			j.observeRequest(kpi, metrics.StatusFailure)
			return nil, err
		}

		j.observeRequest(kpi, metrics.StatusSuccess)
		if j.recorder != nil {
			j.recorder.ObserveRows(kpi, len(rows))
		}
		elog.WithField("rows", len(rows)).Info("Normalized endpoint data")
		agg.Add(rows)
	}

	table, err := agg.Table()
	if err != nil {
		return nil, err
	}

	prefix := j.cfg.Storage.Prefix
	localPath := filepath.Join(j.cfg.Job.ScratchDir, export.FileName(prefix, capturedAt))
	objectPath := export.ObjectPath(prefix, capturedAt)

	if err := export.WriteCSV(localPath, table); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"path": localPath,
		"rows": table.Len(),
	}).Info("Wrote CSV")

	uri := j.uploader.URI(objectPath)
	log.WithField("uri", uri).Info("Uploading")

	uploadCtx := ctx
	if j.cfg.Storage.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, j.cfg.Storage.UploadTimeout)
		defer cancel()
	}
	if err := j.uploader.Upload(uploadCtx, localPath, objectPath); err != nil {
		return nil, err
	}

	log.WithField("uri", uri).Info("Upload completed successfully.")

	return &Result{
		RunID:      runID,
		CapturedAt: capturedAt,
		Rows:       table.Len(),
		LocalPath:  localPath,
		ObjectPath: objectPath,
		URI:        uri,
	}, nil
}

func (j *Job) observeRequest(kpi, status string) {
	if j.recorder != nil {
		j.recorder.ObserveRequest(kpi, status)
	}
}

func (j *Job) pushMetrics(ctx context.Context) {
	url := j.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := j.recorder.Push(pushCtx, url); err != nil {
		j.logger.WithError(err).Warn("Failed to push metrics")
	}
}
