// Package kpiingest implements the BPS KPI extraction job.
//
// # Architecture
//
// The job is structured into several packages:
//   - api: partner KPI API client and tagged decoding of the data field
//   - transform: pure normalization of decoded payloads into records
//   - ingest: the run itself (fetch, aggregate, write, upload)
//   - export: CSV serialization and partitioned object paths
//   - storage: object storage uploaders (GCS, MinIO)
//   - models: records, cell values and the result table
//   - scheduler: optional cron mode
//   - metrics: run metrics pushed to a Prometheus Pushgateway
//
// Run Lifecycle
//
//	Configuring → Fetching(i) → Normalizing(i) → Aggregating →
//	Serializing → Uploading → Done
//
// Any error moves the run to Failed; nothing is retried and nothing is
// uploaded after a failure.
//
// Example Usage
//
//	client := api.NewClient(cfg.API, logger)
//	job := ingest.New(cfg, client, uploader, logger, metrics.NewRecorder())
//	res, err := job.Run(ctx)
//
// The artifact of the run lands at
//
//	bps_kpis/year=<YYYY>/month=<MM>/bps_kpis_<YYYYMMDD_HHMMSS>.csv
package kpiingest
