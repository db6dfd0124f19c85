package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

// CountdownDuration is how long the shared pre-game countdown runs. Clients
// compute expiry locally from CountdownStartedAt using their synced clock.
const CountdownDuration = 10 * time.Second

type SessionService struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewSessionService(db *gorm.DB, clk clockwork.Clock) *SessionService {
	return &SessionService{db: db, clock: clk}
}

type CreateSessionInput struct {
	QuizID           uint
	QuestionLimit    int
	TotalTimeMinutes int
	Difficulty       string
	MaxPlayers       int
}

// CreateSession generates a join pin and snapshots the quiz's questions into
// the session. The snapshot is immutable for the session's lifetime; later
// quiz edits do not leak into running games.
func (s *SessionService) CreateSession(hostID uint, in CreateSessionInput) (*models.Session, error) {
	var quiz models.Quiz
	if err := s.db.Where("id = ? AND host_id = ?", in.QuizID, hostID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Questions.Options").
		First(&quiz).Error; err != nil {
		return nil, errors.New("quiz not found")
	}

	if len(quiz.Questions) == 0 {
		return nil, errors.New("quiz must have at least one question")
	}

	questions := quiz.Questions
	if in.QuestionLimit > 0 && in.QuestionLimit < len(questions) {
		questions = questions[:in.QuestionLimit]
	}

	difficulty := in.Difficulty
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyNormal, models.DifficultyHard:
	case "":
		difficulty = models.DifficultyNormal
	default:
		return nil, errors.New("invalid difficulty")
	}

	totalTime := in.TotalTimeMinutes
	if totalTime <= 0 {
		totalTime = 10
	}

	// the pre-check in generateUniquePin makes collisions rare; the live-pin
	// unique index catches two hosts minting the same pin concurrently, and
	// the loser retries with a fresh one
	var session models.Session
	for attempt := 0; ; attempt++ {
		session = models.Session{
			HostID:           hostID,
			QuizID:           quiz.ID,
			GamePin:          s.generateUniquePin(),
			Status:           models.SessionStatusWaiting,
			QuestionLimit:    len(questions),
			TotalTimeMinutes: totalTime,
			Difficulty:       difficulty,
			MaxPlayers:       in.MaxPlayers,
			CreatedAt:        s.clock.Now(),
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			for i, q := range questions {
				correctIndex := -1
				for oi, opt := range q.Options {
					if opt.IsCorrect {
						correctIndex = oi
						break
					}
				}
				if correctIndex < 0 {
					return fmt.Errorf("question %d has no correct option", q.ID)
				}

				sq := models.SessionQuestion{
					SessionID:    session.ID,
					OrderNum:     i,
					Text:         q.Text,
					ImageURL:     q.ImageURL,
					CorrectIndex: correctIndex,
				}
				if err := tx.Create(&sq).Error; err != nil {
					return err
				}
				for oi, opt := range q.Options {
					so := models.SessionOption{
						QuestionID: sq.ID,
						OrderNum:   oi,
						Text:       opt.Text,
						ImageURL:   opt.ImageURL,
					}
					if err := tx.Create(&so).Error; err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < 4 {
			continue
		}
		return nil, err
	}

	return s.GetSession(session.ID)
}

func (s *SessionService) GetSession(sessionID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		First(&session, sessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}
	return &session, nil
}

// GetSessionByPin resolves a game pin to its newest session. Pins are unique
// among non-finished sessions but may be reused after a game ends.
func (s *SessionService) GetSessionByPin(pin string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("game_pin = ?", pin).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		return nil, ErrRoomNotFound
	}
	return &session, nil
}

// StartCountdown stamps CountdownStartedAt on a waiting session. The session
// stays in waiting status until a client (or the sweeper) observes countdown
// expiry and calls Activate.
func (s *SessionService) StartCountdown(sessionID, hostID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}
	if session.HostID != hostID {
		return nil, ErrUnauthorized
	}
	if session.Status != models.SessionStatusWaiting {
		return nil, errors.New("session already started")
	}
	if session.CountdownStartedAt != nil {
		return &session, nil
	}

	var participants int64
	s.db.Model(&models.Participant{}).Where("session_id = ?", sessionID).Count(&participants)
	if participants == 0 {
		return nil, errors.New("no participants have joined")
	}

	now := s.clock.Now()
	if err := s.db.Model(&session).Update("countdown_started_at", now).Error; err != nil {
		return nil, err
	}
	session.CountdownStartedAt = &now
	return &session, nil
}

// Activate performs the countdown->active transition. Every client whose
// local countdown reaches zero races to call this; the conditional update
// makes the first caller win and every later caller a silent no-op, so
// StartedAt is stamped exactly once. The elapsed check keeps a client with a
// badly synced clock from starting the game early.
func (s *SessionService) Activate(sessionID uint) (*models.Session, error) {
	now := s.clock.Now()
	res := s.db.Model(&models.Session{}).
		Where("id = ? AND status = ? AND countdown_started_at IS NOT NULL AND countdown_started_at <= ?",
			sessionID, models.SessionStatusWaiting, now.Add(-CountdownDuration)).
		Updates(map[string]interface{}{
			"status":               models.SessionStatusActive,
			"started_at":           now,
			"countdown_started_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}

	if res.RowsAffected == 0 {
		switch {
		case session.Status == models.SessionStatusActive || session.Status == models.SessionStatusFinished:
			// lost the race, already transitioned
			return &session, nil
		case session.CountdownStartedAt == nil:
			return nil, errors.New("countdown has not started")
		default:
			return nil, errors.New("countdown still running")
		}
	}
	return &session, nil
}

// Finish performs the active->finished transition and sweeps every not-yet
// complete participant so nobody is left dangling once the session is over.
// Any of three triggers may land here (host end-game, time budget expiry,
// all participants complete); repeats are no-ops.
func (s *SessionService) Finish(sessionID uint) (*models.Session, error) {
	now := s.clock.Now()

	var session models.Session
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND status = ?", sessionID, models.SessionStatusActive).
			Updates(map[string]interface{}{
				"status":   models.SessionStatusFinished,
				"ended_at": now,
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&session, sessionID).Error; err != nil {
			return errors.New("session not found")
		}

		if res.RowsAffected == 0 {
			if session.Status == models.SessionStatusFinished {
				return nil
			}
			return errors.New("session is not active")
		}

		return tx.Model(&models.Participant{}).
			Where("session_id = ? AND completion = ?", sessionID, false).
			Updates(map[string]interface{}{
				"completion":  true,
				"racing":      false,
				"finished_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FinishIfAllComplete fires the all-participants-complete trigger. Returns
// the session and true when it transitioned (or already was) finished.
func (s *SessionService) FinishIfAllComplete(sessionID uint) (*models.Session, bool, error) {
	var total, incomplete int64
	s.db.Model(&models.Participant{}).Where("session_id = ?", sessionID).Count(&total)
	s.db.Model(&models.Participant{}).
		Where("session_id = ? AND completion = ?", sessionID, false).
		Count(&incomplete)

	if total == 0 || incomplete > 0 {
		return nil, false, nil
	}

	session, err := s.Finish(sessionID)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// KickParticipant hard-deletes a participant and their answer log.
func (s *SessionService) KickParticipant(sessionID, hostID, participantID uint) error {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return errors.New("session not found")
	}
	if session.HostID != hostID {
		return ErrUnauthorized
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND participant_id = ?", sessionID, participantID).
			Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND session_id = ?", participantID, sessionID).
			Delete(&models.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("participant not found")
		}
		return nil
	})
}

func (s *SessionService) ListSessions(hostID uint) ([]SessionSummary, error) {
	var sessions []models.Session
	if err := s.db.Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		var participantCount int64
		s.db.Model(&models.Participant{}).Where("session_id = ?", sess.ID).Count(&participantCount)

		result[i] = SessionSummary{
			ID:               sess.ID,
			GamePin:          sess.GamePin,
			Status:           sess.Status,
			Difficulty:       sess.Difficulty,
			ParticipantCount: int(participantCount),
			CreatedAt:        sess.CreatedAt,
		}
	}
	return result, nil
}

func (s *SessionService) generateUniquePin() string {
	for {
		pin := fmt.Sprintf("%06d", rand.Intn(1000000))
		var count int64
		s.db.Model(&models.Session{}).
			Where("game_pin = ? AND status != ?", pin, models.SessionStatusFinished).
			Count(&count)
		if count == 0 {
			return pin
		}
	}
}

type SessionSummary struct {
	ID               uint      `json:"id"`
	GamePin          string    `json:"game_pin"`
	Status           string    `json:"status"`
	Difficulty       string    `json:"difficulty"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}
