package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

type JoinService struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewJoinService(db *gorm.DB, clk clockwork.Clock) *JoinService {
	return &JoinService{db: db, clock: clk}
}

type JoinResult struct {
	Session     models.Session     `json:"session"`
	Participant models.Participant `json:"participant"`
	Rejoined    bool               `json:"rejoined"`
}

// Join admits a player into the session behind gamePin. The pre-insert
// checks give friendly errors for the common cases, but they run at read
// committed on postgres, so concurrent joins with the same nickname can both
// pass them. The unique indexes on (session, player) and (session, nickname)
// are what actually decide the race; a losing insert is translated back to
// the matching sentinel after the transaction rolls back.
//
// Rejoining with a known playerID is idempotent and works regardless of
// session status, so a reloaded client gets its existing participant back.
// An empty playerID gets a server-generated one.
func (s *JoinService) Join(gamePin, playerID, nickname string) (*JoinResult, error) {
	if playerID == "" {
		playerID = uuid.NewString()
	}

	var result JoinResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.Where("game_pin = ?", gamePin).
			Order("created_at DESC").
			First(&session).Error; err != nil {
			return ErrRoomNotFound
		}
		result.Session = session

		var existing models.Participant
		if err := tx.Where("session_id = ? AND player_id = ?", session.ID, playerID).
			First(&existing).Error; err == nil {
			result.Participant = existing
			result.Rejoined = true
			return nil
		}

		if session.Status != models.SessionStatusWaiting {
			return ErrSessionLocked
		}

		var nicknameTaken int64
		tx.Model(&models.Participant{}).
			Where("session_id = ? AND nickname = ?", session.ID, nickname).
			Count(&nicknameTaken)
		if nicknameTaken > 0 {
			return ErrDuplicateNickname
		}

		if session.MaxPlayers > 0 {
			var count int64
			tx.Model(&models.Participant{}).
				Where("session_id = ?", session.ID).
				Count(&count)
			if count >= int64(session.MaxPlayers) {
				return ErrRoomFull
			}
		}

		participant := models.Participant{
			SessionID:       session.ID,
			PlayerID:        playerID,
			Nickname:        nickname,
			Car:             models.CarDefault,
			Score:           0,
			Correct:         0,
			CurrentQuestion: 0,
			Completion:      false,
			Racing:          false,
			JoinedAt:        s.clock.Now(),
		}
		if err := tx.Create(&participant).Error; err != nil {
			return fmt.Errorf("failed to join session: %w", err)
		}
		result.Participant = participant
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a concurrent-join race: same player means the rival row is
		// ours, same nickname means someone else claimed it first
		if existing, lerr := s.GetParticipant(result.Session.ID, playerID); lerr == nil {
			result.Participant = *existing
			result.Rejoined = true
			return &result, nil
		}
		return nil, ErrDuplicateNickname
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetParticipantByID loads a participant row by primary key.
func (s *JoinService) GetParticipantByID(participantID uint) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.First(&participant, participantID).Error; err != nil {
		return nil, errors.New("participant not found")
	}
	return &participant, nil
}

// GetParticipant resolves a player token back to their participant row.
func (s *JoinService) GetParticipant(sessionID uint, playerID string) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.Where("session_id = ? AND player_id = ?", sessionID, playerID).
		First(&participant).Error; err != nil {
		return nil, errors.New("participant not found")
	}
	return &participant, nil
}
