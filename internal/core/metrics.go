package core

import "sync/atomic"

// Metrics counts match activity across the hub.
type Metrics struct {
	MatchesCreated   atomic.Int64
	MatchesFinished  atomic.Int64
	MatchesAbandoned atomic.Int64
	MatchesActive    atomic.Int64
	MovesAccepted    atomic.Int64
	MovesRejected    atomic.Int64
	ClientsEvicted   atomic.Int64
}

// Snapshot returns a read-only copy suitable for JSON output.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"matches_created":   m.MatchesCreated.Load(),
		"matches_finished":  m.MatchesFinished.Load(),
		"matches_abandoned": m.MatchesAbandoned.Load(),
		"matches_active":    m.MatchesActive.Load(),
		"moves_accepted":    m.MovesAccepted.Load(),
		"moves_rejected":    m.MovesRejected.Load(),
		"clients_evicted":   m.ClientsEvicted.Load(),
	}
}
