package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/transport"
)

// DefaultBacteriaURL is the worker publishing the weekly bacteria measurements.
const DefaultBacteriaURL = "https://bakterier.nytroe.workers.dev/"

// BacteriaWorker implements bathing.BacteriaSource against the bacteria worker.
type BacteriaWorker struct {
	url    string
	client *transport.Client
	logger *slog.Logger
}

func NewBacteriaWorker(url string, client *transport.Client, logger *slog.Logger) *BacteriaWorker {
	if url == "" {
		url = DefaultBacteriaURL
	}
	return &BacteriaWorker{
		url:    url,
		client: client,
		logger: logger.With("component", "providers.bacteria"),
	}
}

func (w *BacteriaWorker) Name() string {
	return w.client.Name()
}

// FetchWeeks downloads the weekly dataset. Each week is decoded on its own, so a
// malformed week is logged and skipped. A response without any usable week is a
// hard failure.
func (w *BacteriaWorker) FetchWeeks(ctx context.Context) (bathing.WeeklyDataset, error) {
	w.logger.Debug("fetching bacteria data", "url", w.url)

	var payload struct {
		Weeks map[string]json.RawMessage `json:"weeks"`
	}
	if err := w.client.GetJSON(ctx, w.url, &payload); err != nil {
		return nil, err
	}
	if len(payload.Weeks) == 0 {
		return nil, ErrNoWeeks
	}

	ds := make(bathing.WeeklyDataset, len(payload.Weeks))
	for key, data := range payload.Weeks {
		week, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			w.logger.Debug("skipping non-numeric week key", "key", key)
			continue
		}
		var rec bathing.WeeklyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			w.logger.Warn("skipping malformed week", "week", week, "error", err)
			continue
		}
		if rec.Week == 0 {
			rec.Week = week
		}
		ds[week] = rec
	}
	if len(ds) == 0 {
		return nil, fmt.Errorf("%w: no usable week records", ErrNoWeeks)
	}

	w.logger.Debug("bacteria data received", "weeks", len(ds))
	return ds, nil
}
