package server

import "sync/atomic"

// Stats counts operations served, for the monitor's counters panel. Each
// field is a separate atomic so the hot path never takes a lock to bump
// a counter.
type Stats struct {
	registrations atomic.Uint64
	purges        atomic.Uint64
	resolutions   atomic.Uint64
}

func (s *Stats) recordRegistration() { s.registrations.Add(1) }
func (s *Stats) recordPurge()        { s.purges.Add(1) }
func (s *Stats) recordResolution()   { s.resolutions.Add(1) }

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	Registrations uint64
	Purges        uint64
	Resolutions   uint64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Registrations: s.registrations.Load(),
		Purges:        s.purges.Load(),
		Resolutions:   s.resolutions.Load(),
	}
}
