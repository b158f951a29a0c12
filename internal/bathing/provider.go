package bathing

import "context"

// BacteriaSource fetches the weekly bacteria dataset.
type BacteriaSource interface {
	FetchWeeks(ctx context.Context) (WeeklyDataset, error)
}

// AirTemperatureSource fetches the current air temperature in °C.
type AirTemperatureSource interface {
	AirTemperature(ctx context.Context) (float64, error)
}

// ResultCache persists the last reconciliation result. Load reports a miss with false;
// Store never fails from the caller's point of view.
type ResultCache interface {
	Load(ctx context.Context) (ReconciliationResult, bool)
	Store(ctx context.Context, result ReconciliationResult)
}

// Presenter is the display side. Each region is updated independently.
type Presenter interface {
	ShowBacteria(view BacteriaView, result ReconciliationResult)
	ShowBacteriaError(lines []string)
	ShowAirTemperature(celsius float64)
	ShowSeaTemperature(celsius float64)
}
