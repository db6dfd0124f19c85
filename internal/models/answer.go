package models

import "time"

// Answer rows are append-only: one row per participant per question, written
// exactly once by the answer coordinator.
type Answer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"session_id"`
	ParticipantID uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"participant_id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"question_id"`
	SelectedIndex int       `gorm:"not null" json:"selected_index"`
	IsCorrect     bool      `gorm:"not null" json:"is_correct"`
	AnsweredAt    time.Time `json:"answered_at"`
}
