package store

import (
	"sync"
	"time"

	"github.com/i474232898/havet-arena/internal/bathing"
)

// Panel is one region of the widget.
type Panel struct {
	Celsius   *int      `json:"celsius,omitempty"`
	Raw       *float64  `json:"raw,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// BacteriaPanel is either a view or a list of error lines.
type BacteriaPanel struct {
	View      *bathing.BacteriaView `json:"view,omitempty"`
	Error     []string              `json:"error,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt,omitzero"`
}

// Snapshot is what the widget currently shows.
type Snapshot struct {
	Site           string        `json:"site"`
	AirTemperature Panel         `json:"airTemperature"`
	SeaTemperature Panel         `json:"seaTemperature"`
	Bacteria       BacteriaPanel `json:"bacteria"`
}

// Board is a concurrency-safe bathing.Presenter keeping the latest state in memory.
type Board struct {
	mu sync.RWMutex

	site   string
	air    Panel
	sea    Panel
	bact   BacteriaPanel
	latest *bathing.ReconciliationResult
	now    func() time.Time
}

// NewBoard creates an empty board for site.
func NewBoard(site string) *Board {
	return &Board{site: site, now: time.Now}
}

func (b *Board) ShowBacteria(view bathing.BacteriaView, result bathing.ReconciliationResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bact = BacteriaPanel{View: &view, UpdatedAt: b.now()}
	b.latest = &result
}

func (b *Board) ShowBacteriaError(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bact = BacteriaPanel{Error: append([]string(nil), lines...), UpdatedAt: b.now()}
}

func (b *Board) ShowAirTemperature(celsius float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.air = newPanel(celsius, b.now())
}

func (b *Board) ShowSeaTemperature(celsius float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sea = newPanel(celsius, b.now())
}

func newPanel(celsius float64, at time.Time) Panel {
	rounded := bathing.RoundCelsius(celsius)
	return Panel{Celsius: &rounded, Raw: &celsius, UpdatedAt: at}
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		Site:           b.site,
		AirTemperature: b.air,
		SeaTemperature: b.sea,
		Bacteria:       b.bact,
	}
	if b.bact.View != nil {
		v := *b.bact.View
		snap.Bacteria.View = &v
	}
	if b.bact.Error != nil {
		snap.Bacteria.Error = append([]string(nil), b.bact.Error...)
	}
	return snap
}

// LatestResult returns the last reconciliation result that reached the board.
func (b *Board) LatestResult() (bathing.ReconciliationResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.latest == nil {
		return bathing.ReconciliationResult{}, ErrNotFound
	}
	return *b.latest, nil
}

var _ bathing.Presenter = (*Board)(nil)
