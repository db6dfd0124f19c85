package models

import "time"

type Session struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	HostID             uint              `gorm:"not null;index" json:"host_id"`
	QuizID             uint              `gorm:"not null" json:"quiz_id"`
	GamePin            string            `gorm:"size:6;index" json:"game_pin"`
	Status             string            `gorm:"size:20;not null;default:'waiting'" json:"status"`
	CountdownStartedAt *time.Time        `json:"countdown_started_at,omitempty"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	EndedAt            *time.Time        `json:"ended_at,omitempty"`
	QuestionLimit      int               `gorm:"not null;default:0" json:"question_limit"`
	TotalTimeMinutes   int               `gorm:"not null;default:10" json:"total_time_minutes"`
	Difficulty         string            `gorm:"size:10;not null;default:'normal'" json:"difficulty"`
	MaxPlayers         int               `gorm:"not null;default:0" json:"max_players"`
	Questions          []SessionQuestion `gorm:"foreignKey:SessionID" json:"questions,omitempty"`
	Participants       []Participant     `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

const (
	SessionStatusWaiting  = "waiting"
	SessionStatusActive   = "active"
	SessionStatusFinished = "finished"
)

const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

// TimeBudget is the wall-clock budget for the active phase.
func (s *Session) TimeBudget() time.Duration {
	return time.Duration(s.TotalTimeMinutes) * time.Minute
}
