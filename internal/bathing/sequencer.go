package bathing

import "go.uber.org/atomic"

// Sequencer hands out refresh epochs. A result is applied only while its epoch is
// still the latest, so the last triggered refresh wins regardless of completion order.
type Sequencer struct {
	epoch *atomic.Int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{epoch: atomic.NewInt64(0)}
}

// Next starts a new epoch and returns it.
func (s *Sequencer) Next() int64 {
	return s.epoch.Inc()
}

// IsCurrent reports whether no newer epoch has started since epoch.
func (s *Sequencer) IsCurrent(epoch int64) bool {
	return s.epoch.Load() == epoch
}
