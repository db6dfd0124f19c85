package sweeper

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
	"github.com/k1zuko/crazyrace-sub000/internal/services"
	"github.com/k1zuko/crazyrace-sub000/internal/ws"
)

// Sweeper is the server-side safety net for the auto phase transitions.
// Clients normally drive countdown->active themselves and the answer path
// fires the all-complete finish, but if every client goes away a session
// would stay stuck; the sweeper polls for expired countdowns and exhausted
// time budgets and applies the same idempotent transitions.
type Sweeper struct {
	db       *gorm.DB
	sessions *services.SessionService
	hub      *ws.Hub
	clock    clockwork.Clock
	interval time.Duration
}

func New(db *gorm.DB, sessions *services.SessionService, hub *ws.Hub, clk clockwork.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{db: db, sessions: sessions, hub: hub, clock: clk, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("session sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session sweeper stopped")
			return
		case <-ticker.Chan():
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	now := s.clock.Now()

	// countdowns that expired while nobody was watching
	var pending []models.Session
	s.db.Where("status = ? AND countdown_started_at IS NOT NULL AND countdown_started_at <= ?",
		models.SessionStatusWaiting, now.Add(-services.CountdownDuration)).
		Find(&pending)
	for _, sess := range pending {
		updated, err := s.sessions.Activate(sess.ID)
		if err != nil {
			log.Error().Err(err).Uint("session_id", sess.ID).Msg("sweeper activate failed")
			continue
		}
		log.Info().Uint("session_id", sess.ID).Msg("sweeper activated session")
		s.hub.Broadcast(sess.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *updated})
	}

	// active sessions past their time budget, or with everyone finished
	var active []models.Session
	s.db.Where("status = ?", models.SessionStatusActive).Find(&active)
	for _, sess := range active {
		if sess.StartedAt != nil && now.Sub(*sess.StartedAt) >= sess.TimeBudget() {
			updated, err := s.sessions.Finish(sess.ID)
			if err != nil {
				log.Error().Err(err).Uint("session_id", sess.ID).Msg("sweeper finish failed")
				continue
			}
			log.Info().Uint("session_id", sess.ID).Msg("sweeper finished session on time budget")
			s.hub.Broadcast(sess.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *updated})
			continue
		}

		if updated, done, err := s.sessions.FinishIfAllComplete(sess.ID); err == nil && done {
			log.Info().Uint("session_id", sess.ID).Msg("sweeper finished session, all participants complete")
			s.hub.Broadcast(sess.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *updated})
		}
	}
}
