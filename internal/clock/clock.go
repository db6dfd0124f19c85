package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeSource answers a single "what time is it" round trip against an
// authoritative clock.
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// DefaultMinSyncInterval caps how often Sync actually performs a round trip.
// Callers may invoke Sync liberally; extra calls inside the window are no-ops.
const DefaultMinSyncInterval = 10 * time.Second

// Service estimates the offset between the local clock and an authoritative
// time source so that all clients agree on elapsed time for shared countdowns.
// It fails open: before the first successful sync, and after a failed one,
// Now() degrades to the local clock plus whatever offset is cached.
type Service struct {
	source      TimeSource
	clock       clockwork.Clock
	minInterval time.Duration

	mu       sync.Mutex
	offset   time.Duration
	lastSync time.Time
	synced   bool
}

func New(source TimeSource, clk clockwork.Clock) *Service {
	return &Service{
		source:      source,
		clock:       clk,
		minInterval: DefaultMinSyncInterval,
	}
}

// Sync performs one round trip to the time source and caches the estimated
// offset. The round-trip latency is assumed symmetric, so half of it is
// credited to the server timestamp. A failed round trip keeps the previous
// offset; the error is returned for diagnostics only and callers are free to
// ignore it.
func (s *Service) Sync(ctx context.Context) error {
	s.mu.Lock()
	if !s.lastSync.IsZero() && s.clock.Since(s.lastSync) < s.minInterval {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sent := s.clock.Now()
	serverTime, err := s.source.ServerTime(ctx)
	received := s.clock.Now()
	if err != nil {
		return err
	}

	rtt := received.Sub(sent)

	s.mu.Lock()
	s.offset = serverTime.Add(rtt / 2).Sub(received)
	s.lastSync = received
	s.synced = true
	s.mu.Unlock()
	return nil
}

// Now returns the local clock adjusted by the cached offset. It never blocks
// and never fails.
func (s *Service) Now() time.Time {
	s.mu.Lock()
	offset := s.offset
	s.mu.Unlock()
	return s.clock.Now().Add(offset)
}

// Offset reports the cached offset and whether any sync has succeeded yet.
func (s *Service) Offset() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, s.synced
}
