package ingest

import (
	"errors"

	"github.com/gladneycenter/bps-kpi-ingest/internal/models"
)

// ErrEmptyResult is returned when no endpoint produced any rows.
var ErrEmptyResult = errors.New("no dataframes were created from API responses")

// Aggregator collects per-endpoint batches in arrival order.
type Aggregator struct {
	batches [][]models.Row
}

// Add appends one endpoint's rows. Empty batches are ignored.
func (a *Aggregator) Add(batch []models.Row) {
	if len(batch) == 0 {
		return
	}
	a.batches = append(a.batches, batch)
}

func (a *Aggregator) Batches() int { return len(a.batches) }

// Table concatenates every batch, endpoint order first, then row order.
func (a *Aggregator) Table() (*models.Table, error) {
	if len(a.batches) == 0 {
		return nil, ErrEmptyResult
	}
	table := models.NewTable()
	for _, batch := range a.batches {
		table.Append(batch...)
	}
	return table, nil
}
