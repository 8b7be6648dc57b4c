package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/gladneycenter/bps-kpi-ingest/internal/models"
)

// FileName is the artifact name for a run captured at t.
func FileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, t.UTC().Format("20060102_150405"))
}

// ObjectPath is the date-partitioned object key for a run captured at t:
// <prefix>/year=YYYY/month=MM/<prefix>_YYYYMMDD_HHMMSS.csv
func ObjectPath(prefix string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/year=%s/month=%s/%s", prefix, t.Format("2006"), t.Format("01"), FileName(prefix, t))
}

// Frame loads the table into a string-typed DataFrame. No type
// detection or NaN substitution is applied, so cells are written back
// exactly as rendered. Column names are kept as the table has them,
// including the empty name gota would otherwise replace with X0.
func Frame(table *models.Table) dataframe.DataFrame {
	df := dataframe.LoadRecords(
		table.Records(),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return df
	}

	names := df.Names()
	for i, want := range table.Columns() {
		if names[i] != want {
			df = df.Rename(want, names[i])
		}
	}
	return df
}

// WriteCSV serializes table to path with a header row and no index
// column. The file is left in place after it is closed.
func WriteCSV(path string, table *models.Table) (err error) {
	if table == nil || table.Len() == 0 {
		return errors.New("refusing to write an empty table")
	}

	df := Frame(table)
	if df.Err != nil {
		return fmt.Errorf("failed to build data frame: %w", df.Err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	if err := df.WriteCSV(file); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
