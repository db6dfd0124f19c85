package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

// RacingInterval: after every 3rd answered question the participant breaks
// into the racing minigame instead of advancing straight to the next one.
const RacingInterval = 3

type AnswerService struct {
	db       *gorm.DB
	clock    clockwork.Clock
	sessions *SessionService
}

func NewAnswerService(db *gorm.DB, clk clockwork.Clock, sessions *SessionService) *AnswerService {
	return &AnswerService{db: db, clock: clk, sessions: sessions}
}

// PendingAnswer is an answer the client buffered locally after a timed-out
// submission. Correct carries the client's own computation; it is re-verified
// against the question snapshot before being stored.
type PendingAnswer struct {
	QuestionID    uint  `json:"question_id"`
	SelectedIndex int   `json:"selected_index"`
	Correct       bool  `json:"correct"`
	AnsweredAtMs  int64 `json:"answered_at_ms,omitempty"`
}

type SubmitAnswerInput struct {
	ParticipantID    uint
	QuestionID       uint
	AnswerIndex      int
	ScorePerQuestion int
	NextIndex        int
	IsFinished       bool
	IsRacing         bool
	Pending          []PendingAnswer
	PendingScore     int
	PendingCorrect   int
}

type SubmitAnswerResult struct {
	IsCorrect       bool `json:"is_correct"`
	CorrectIndex    int  `json:"correct_index"`
	Score           int  `json:"score"`
	SessionFinished bool `json:"session_finished"`
}

// SubmitAnswer validates one answer against the session's question snapshot
// and commits it atomically together with any pending buffered answers from a
// prior failed call. Correctness is decided here, never trusted from the
// client, and the correct index is only revealed in the response, after the
// write is durable.
//
// A retry of an already-applied submission (NextIndex at or behind the stored
// progress pointer) returns the stored outcome without mutating anything.
func (s *AnswerService) SubmitAnswer(in SubmitAnswerInput) (*SubmitAnswerResult, error) {
	var result SubmitAnswerResult
	var sessionID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var participant models.Participant
		if err := tx.First(&participant, in.ParticipantID).Error; err != nil {
			return errors.New("participant not found")
		}
		sessionID = participant.SessionID

		var question models.SessionQuestion
		if err := tx.Where("id = ? AND session_id = ?", in.QuestionID, participant.SessionID).
			First(&question).Error; err != nil {
			return errors.New("question not in this session")
		}

		// Retried call that already landed: answer once, report the stored
		// outcome.
		if in.NextIndex <= participant.CurrentQuestion {
			var stored models.Answer
			if err := tx.Where("participant_id = ? AND question_id = ?",
				participant.ID, question.ID).First(&stored).Error; err != nil {
				return ErrStaleSubmission
			}
			result = SubmitAnswerResult{
				IsCorrect:    stored.IsCorrect,
				CorrectIndex: question.CorrectIndex,
				Score:        participant.Score,
			}
			return nil
		}

		if participant.Completion {
			return ErrStaleSubmission
		}
		if in.NextIndex != participant.CurrentQuestion+len(in.Pending)+1 {
			return fmt.Errorf("%w: next index %d does not follow %d with %d pending",
				ErrStaleSubmission, in.NextIndex, participant.CurrentQuestion, len(in.Pending))
		}

		now := s.clock.Now()

		// Buffered answers first, in their original order, so the log stays
		// aligned with the progress pointer.
		if err := s.appendAnswers(tx, &participant, in.Pending, now); err != nil {
			return err
		}

		isCorrect := in.AnswerIndex == question.CorrectIndex
		awarded := 0
		if isCorrect {
			awarded = in.ScorePerQuestion
		}

		answer := models.Answer{
			SessionID:     participant.SessionID,
			ParticipantID: participant.ID,
			QuestionID:    question.ID,
			SelectedIndex: in.AnswerIndex,
			IsCorrect:     isCorrect,
			AnsweredAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&answer).Error; err != nil {
			return err
		}

		correctDelta := in.PendingCorrect
		if isCorrect {
			correctDelta++
		}

		updates := map[string]interface{}{
			"score":            participant.Score + in.PendingScore + awarded,
			"correct":          participant.Correct + correctDelta,
			"current_question": in.NextIndex,
			"completion":       in.IsFinished,
			"racing":           in.IsRacing && !in.IsFinished,
		}
		if in.IsFinished && participant.FinishedAt == nil {
			updates["finished_at"] = now
		}
		if err := tx.Model(&participant).Updates(updates).Error; err != nil {
			return err
		}

		result = SubmitAnswerResult{
			IsCorrect:    isCorrect,
			CorrectIndex: question.CorrectIndex,
			Score:        participant.Score + in.PendingScore + awarded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.IsFinished {
		if _, finished, err := s.sessions.FinishIfAllComplete(sessionID); err == nil {
			result.SessionFinished = finished
		}
	}
	return &result, nil
}

type SubmitBatchInput struct {
	ParticipantID uint
	Answers       []PendingAnswer
	ScoreAdd      int
	CorrectAdd    int
	NextIndex     int
	IsFinished    bool
	IsRacing      bool
}

// SubmitBatch commits a client's locally buffered answers in one shot. It is
// the recovery path after submission timeouts and the flush path on time
// expiry or host end-game, so it must be idempotent: answers whose rows
// already exist are skipped, aggregate deltas only apply when the progress
// pointer actually advances, and an empty answer list is a valid pure
// completion-flag flush.
func (s *AnswerService) SubmitBatch(in SubmitBatchInput) error {
	var sessionID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var participant models.Participant
		if err := tx.First(&participant, in.ParticipantID).Error; err != nil {
			return errors.New("participant not found")
		}
		sessionID = participant.SessionID

		now := s.clock.Now()
		updates := map[string]interface{}{}

		if in.NextIndex > participant.CurrentQuestion {
			if in.NextIndex != participant.CurrentQuestion+len(in.Answers) {
				return fmt.Errorf("%w: next index %d does not follow %d with %d answers",
					ErrStaleSubmission, in.NextIndex, participant.CurrentQuestion, len(in.Answers))
			}
			if err := s.appendAnswers(tx, &participant, in.Answers, now); err != nil {
				return err
			}
			updates["score"] = participant.Score + in.ScoreAdd
			updates["correct"] = participant.Correct + in.CorrectAdd
			updates["current_question"] = in.NextIndex
		}

		// Completion is terminal, never unset by a late batch.
		completion := participant.Completion || in.IsFinished
		updates["completion"] = completion
		updates["racing"] = in.IsRacing && !completion
		if completion && participant.FinishedAt == nil {
			updates["finished_at"] = now
		}

		return tx.Model(&participant).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	if in.IsFinished {
		s.sessions.FinishIfAllComplete(sessionID)
	}
	return nil
}

// appendAnswers writes buffered answers in order. The client computed its
// own correctness from cached question data; where the question resolves in
// the snapshot the stored flag is the re-verified one, and disagreements are
// logged.
func (s *AnswerService) appendAnswers(tx *gorm.DB, participant *models.Participant, answers []PendingAnswer, now time.Time) error {
	for _, pa := range answers {
		correct := pa.Correct

		var question models.SessionQuestion
		if err := tx.Where("id = ? AND session_id = ?", pa.QuestionID, participant.SessionID).
			First(&question).Error; err == nil {
			verified := pa.SelectedIndex == question.CorrectIndex
			if verified != pa.Correct {
				log.Warn().
					Uint("participant_id", participant.ID).
					Uint("question_id", pa.QuestionID).
					Bool("claimed", pa.Correct).
					Bool("verified", verified).
					Msg("buffered answer correctness mismatch")
			}
			correct = verified
		}

		answeredAt := now
		if pa.AnsweredAtMs > 0 {
			answeredAt = time.UnixMilli(pa.AnsweredAtMs)
		}

		answer := models.Answer{
			SessionID:     participant.SessionID,
			ParticipantID: participant.ID,
			QuestionID:    pa.QuestionID,
			SelectedIndex: pa.SelectedIndex,
			IsCorrect:     correct,
			AnsweredAt:    answeredAt,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&answer).Error; err != nil {
			return err
		}
	}
	return nil
}

// ShouldRace reports whether a participant entering nextIndex breaks into
// the racing minigame.
func ShouldRace(nextIndex int, isFinished bool) bool {
	return !isFinished && nextIndex > 0 && nextIndex%RacingInterval == 0
}

// StopRacing clears the racing flag. Racing exit is a plain state write: the
// minigame result is opaque here and the question pointer is untouched, so a
// resumed client continues at the same question.
func (s *AnswerService) StopRacing(participantID uint) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.First(&participant, participantID).Error; err != nil {
		return nil, errors.New("participant not found")
	}
	if err := s.db.Model(&participant).Update("racing", false).Error; err != nil {
		return nil, err
	}
	participant.Racing = false
	return &participant, nil
}

// SetCar updates the cosmetic car choice, allowed any time before the
// session finishes.
func (s *AnswerService) SetCar(participantID uint, car string) (*models.Participant, error) {
	if !models.ValidCar(car) {
		return nil, errors.New("invalid car")
	}

	var participant models.Participant
	if err := s.db.First(&participant, participantID).Error; err != nil {
		return nil, errors.New("participant not found")
	}

	var session models.Session
	if err := s.db.First(&session, participant.SessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}
	if session.Status == models.SessionStatusFinished {
		return nil, errors.New("session already finished")
	}

	if err := s.db.Model(&participant).Update("car", car).Error; err != nil {
		return nil, err
	}
	participant.Car = car
	return &participant, nil
}
