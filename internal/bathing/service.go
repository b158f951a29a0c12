package bathing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the orchestration context of one widget: it owns the request epochs,
// the threshold and the clock, and drives the three independent refresh chains.
type Service struct {
	bacteria  BacteriaSource
	sea       *Resolver
	air       AirTemperatureSource
	cache     ResultCache
	presenter Presenter
	seq       *Sequencer
	threshold float64
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new Service. A non-positive threshold uses DefaultThresholdHigh.
func NewService(
	bacteria BacteriaSource,
	sea *Resolver,
	air AirTemperatureSource,
	cache ResultCache,
	presenter Presenter,
	threshold float64,
	logger *slog.Logger,
) *Service {
	if threshold <= 0 {
		threshold = DefaultThresholdHigh
	}
	return &Service{
		bacteria:  bacteria,
		sea:       sea,
		air:       air,
		cache:     cache,
		presenter: presenter,
		seq:       NewSequencer(),
		threshold: threshold,
		now:       time.Now,
		logger:    logger.With("component", "bathing.service"),
	}
}

// UseLocation makes week numbers follow the calendar of loc.
func (s *Service) UseLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	s.now = func() time.Time { return time.Now().In(loc) }
}

// Refresh runs the air temperature, sea temperature and bacteria chains concurrently
// and waits for all of them. A failure in one chain never holds back the others.
// It returns the id used to correlate the refresh in the logs.
func (s *Service) Refresh(ctx context.Context) string {
	id := uuid.NewString()
	ctx = withRefreshID(ctx, id)
	s.logger.Debug("refresh started", "refresh_id", id)

	chains := map[string]func(context.Context){
		"air_temperature": s.RefreshAirTemperature,
		"sea_temperature": s.RefreshSeaTemperature,
		"bacteria":        func(ctx context.Context) { s.RefreshBacteria(ctx) },
	}

	var wg sync.WaitGroup
	wg.Add(len(chains))
	for name, run := range chains {
		go func(name string, run func(context.Context)) {
			defer wg.Done()
			s.guard(ctx, name, run)
		}(name, run)
	}
	wg.Wait()

	s.logger.Debug("refresh completed", "refresh_id", id)
	return id
}

// guard runs one refresh chain and turns a panic into a log entry.
func (s *Service) guard(ctx context.Context, chain string, run func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh chain panicked", "refresh_id", refreshID(ctx), "chain", chain, "panic", r)
		}
	}()
	run(ctx)
}

// RefreshAirTemperature updates the air temperature region when a reading is available.
func (s *Service) RefreshAirTemperature(ctx context.Context) {
	if s.air == nil {
		return
	}
	temp, err := s.air.AirTemperature(ctx)
	if err != nil {
		s.logger.Debug("could not fetch air temperature", "refresh_id", refreshID(ctx), "error", err)
		return
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return
	}
	s.presenter.ShowAirTemperature(temp)
}

// RefreshSeaTemperature updates the sea temperature region when any source delivers.
func (s *Service) RefreshSeaTemperature(ctx context.Context) {
	if s.sea == nil {
		return
	}
	temp, ok := s.sea.Resolve(ctx)
	if !ok {
		return
	}
	s.presenter.ShowSeaTemperature(temp)
}

// RefreshBacteria loads the bacteria result (cache first) and hands it to the
// presenter unless a newer refresh started meanwhile. It reports whether the
// result was applied.
func (s *Service) RefreshBacteria(ctx context.Context) (applied bool) {
	epoch := s.seq.Next()
	log := s.logger.With("refresh_id", refreshID(ctx), "epoch", epoch)

	defer func() {
		if r := recover(); r != nil {
			log.Error("bacteria refresh panicked", "panic", r)
			if s.seq.IsCurrent(epoch) {
				s.presenter.ShowBacteriaError(MessageLines(fmt.Sprint(r)))
				applied = true
			}
		}
	}()

	res, err := s.loadResult(ctx, log)

	if !s.seq.IsCurrent(epoch) {
		log.Debug("ignoring stale bacteria response")
		return false
	}

	if err != nil {
		log.Error("failed to fetch bacteria data", "error", err)
		s.presenter.ShowBacteriaError(MessageLines(err.Error()))
		return true
	}

	current := WeekOf(s.now())
	if res.Value == nil || math.IsNaN(*res.Value) {
		s.presenter.ShowBacteriaError(MessageLines(MissingValueMessage(res, current)))
		return true
	}

	s.presenter.ShowBacteria(NewBacteriaView(res, current, s.threshold), res)
	return true
}

func (s *Service) loadResult(ctx context.Context, log *slog.Logger) (ReconciliationResult, error) {
	if cached, ok := s.cache.Load(ctx); ok {
		log.Debug("using cached bacteria result")
		return cached, nil
	}

	ds, err := s.bacteria.FetchWeeks(ctx)
	if err != nil {
		return ReconciliationResult{}, fmt.Errorf("fetch bacteria data: %w", err)
	}

	current := WeekOf(s.now())
	res := Reconcile(ds, current)

	switch res.Match {
	case MatchExact:
		log.Debug("using current week", "week", res.ActualWeek, "value", *res.Value)
	case MatchPast, MatchFuture:
		log.Warn("no data for the current week, showing another week",
			"searched_week", res.SearchedWeek, "actual_week", res.ActualWeek, "match", res.Match)
	default:
		log.Warn("no usable week in bacteria data", "searched_week", res.SearchedWeek)
	}

	s.cache.Store(ctx, res)
	return res, nil
}

type refreshIDKey struct{}

func withRefreshID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, refreshIDKey{}, id)
}

func refreshID(ctx context.Context) string {
	id, _ := ctx.Value(refreshIDKey{}).(string)
	return id
}
