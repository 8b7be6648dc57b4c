// Package transform turns decoded KPI payloads into stamped records.
//
// The per-variant functions are pure: they depend only on their
// arguments, so a run's output is fully determined by the payloads and
// the single capture time threaded through Normalize.
package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gladneycenter/bps-kpi-ingest/internal/api"
	"github.com/gladneycenter/bps-kpi-ingest/internal/models"
)

// ErrNoData is returned by Normalize for a NoData payload. Callers decide
// whether to skip the endpoint or fail.
var ErrNoData = errors.New("no data returned")

// Normalize converts one endpoint's payload into stamped rows.
func Normalize(endpoint string, payload api.Payload, capturedAt time.Time) ([]models.Row, error) {
	var rows []models.Row

	switch p := payload.(type) {
	case api.RowList:
		rows = FromRowList(p)
	case api.PeriodValueMap:
		rows = FromPeriodValues(p)
	case api.NoData:
		return nil, fmt.Errorf("%w for %s", ErrNoData, endpoint)
	case api.Unrecognized:
		return nil, fmt.Errorf("%w: unexpected API format for %s: %s", api.ErrSchema, endpoint, p.Shape)
	default:
		return nil, fmt.Errorf("%w: unexpected API format for %s: %T", api.ErrSchema, endpoint, payload)
	}

	return Stamp(rows, endpoint, capturedAt)
}

// FromRowList keeps each source object as one row, columns in source order.
func FromRowList(p api.RowList) []models.Row {
	rows := make([]models.Row, 0, len(p.Rows))
	for _, src := range p.Rows {
		row := models.NewRow()
		for _, c := range src.Columns() {
			v, _ := src.Get(c)
			row.Set(c, v)
		}
		rows = append(rows, row)
	}
	return rows
}

// FromPeriodValues emits one year_month/value row per map entry.
func FromPeriodValues(p api.PeriodValueMap) []models.Row {
	rows := make([]models.Row, 0, len(p.Entries))
	for _, e := range p.Entries {
		row := models.NewRow()
		row.Set(models.ColumnYearMonth, models.String(e.Period))
		row.Set(models.ColumnValue, e.Value)
		rows = append(rows, row)
	}
	return rows
}

// Stamp parses year_month where present and adds kpi_name and
// ingestion_timestamp to every row. The input rows are not modified.
func Stamp(rows []models.Row, endpoint string, capturedAt time.Time) ([]models.Row, error) {
	kpi := KPIName(endpoint)
	ts := models.Timestamp(capturedAt)

	out := make([]models.Row, 0, len(rows))
	for i, src := range rows {
		row := models.NewRow()
		for _, c := range src.Columns() {
			v, _ := src.Get(c)
			if c == models.ColumnYearMonth {
				parsed, err := yearMonthValue(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %s row %d: %v", api.ErrSchema, endpoint, i, err)
				}
				v = parsed
			}
			row.Set(c, v)
		}
		row.Set(models.ColumnKPIName, models.String(kpi))
		row.Set(models.ColumnIngestionTimestamp, ts)
		out = append(out, row)
	}
	return out, nil
}

// KPIName is the final path segment of endpoint.
func KPIName(endpoint string) string {
	return endpoint[strings.LastIndex(endpoint, "/")+1:]
}

func yearMonthValue(v models.Value) (models.Value, error) {
	switch v.Kind() {
	case models.KindNull, models.KindDate:
		return v, nil
	case models.KindString:
		s, _ := v.Str()
		t, err := ParseYearMonth(s)
		if err != nil {
			return models.Value{}, err
		}
		return models.Date(t), nil
	default:
		return models.Value{}, fmt.Errorf("year_month %q is a %s, not a date string", v.String(), v.Kind())
	}
}
