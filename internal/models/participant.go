package models

import "time"

type Participant struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SessionID       uint       `gorm:"not null;uniqueIndex:idx_session_player;uniqueIndex:idx_session_nickname" json:"session_id"`
	PlayerID        string     `gorm:"size:64;not null;uniqueIndex:idx_session_player" json:"player_id"`
	Nickname        string     `gorm:"size:100;not null;uniqueIndex:idx_session_nickname" json:"nickname"`
	Car             string     `gorm:"size:20;not null;default:'red'" json:"car"`
	Score           int        `gorm:"not null;default:0" json:"score"`
	Correct         int        `gorm:"not null;default:0" json:"correct"`
	CurrentQuestion int        `gorm:"not null;default:0" json:"current_question"`
	Completion      bool       `gorm:"not null;default:false" json:"completion"`
	Racing          bool       `gorm:"not null;default:false" json:"racing"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	JoinedAt        time.Time  `json:"joined_at"`
}

const (
	CarRed    = "red"
	CarBlue   = "blue"
	CarGreen  = "green"
	CarYellow = "yellow"
	CarPurple = "purple"

	CarDefault = CarRed
)

var Cars = []string{CarRed, CarBlue, CarGreen, CarYellow, CarPurple}

func ValidCar(car string) bool {
	for _, c := range Cars {
		if c == car {
			return true
		}
	}
	return false
}
