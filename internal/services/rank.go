package services

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

// DurationSentinelSeconds sorts participants with no measurable duration
// behind everyone who has one.
const DurationSentinelSeconds = 9999

type RankService struct {
	db *gorm.DB
}

func NewRankService(db *gorm.DB) *RankService {
	return &RankService{db: db}
}

type RankEntry struct {
	ParticipantID   uint   `json:"participant_id"`
	Nickname        string `json:"nickname"`
	Car             string `json:"car"`
	Score           int    `json:"score"`
	Correct         int    `json:"correct"`
	DurationSeconds int    `json:"duration_seconds"`
	Rank            int    `json:"rank"`
}

// Rank orders completed participants by score descending, duration ascending,
// and assigns sequential ranks from 1. Completion events land asynchronously
// and out of order, so the ordering is recomputed in full on every call;
// sessions are bounded to hundreds of players, so the sort is cheap.
func (s *RankService) Rank(sessionID uint) ([]RankEntry, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ? AND completion = ?", sessionID, true).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}

	entries := make([]RankEntry, len(participants))
	for i, p := range participants {
		entries[i] = RankEntry{
			ParticipantID:   p.ID,
			Nickname:        p.Nickname,
			Car:             p.Car,
			Score:           p.Score,
			Correct:         p.Correct,
			DurationSeconds: durationSeconds(&session, &p),
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Score != entries[b].Score {
			return entries[a].Score > entries[b].Score
		}
		if entries[a].DurationSeconds != entries[b].DurationSeconds {
			return entries[a].DurationSeconds < entries[b].DurationSeconds
		}
		// full tie: earlier participant first, so repeated calls agree
		return entries[a].ParticipantID < entries[b].ParticipantID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// RankOf returns a single participant's rank. A participant whose completion
// is not yet durable falls to the end of the current list.
func (s *RankService) RankOf(sessionID, participantID uint) (int, error) {
	entries, err := s.Rank(sessionID)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.ParticipantID == participantID {
			return e.Rank, nil
		}
	}
	return len(entries) + 1, nil
}

func durationSeconds(session *models.Session, p *models.Participant) int {
	if session.StartedAt == nil || p.FinishedAt == nil {
		return DurationSentinelSeconds
	}
	d := p.FinishedAt.Sub(*session.StartedAt)
	if d < 0 {
		return DurationSentinelSeconds
	}
	return int(d / time.Second)
}
