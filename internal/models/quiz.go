package models

import "time"

type Quiz struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	HostID    uint       `gorm:"not null;index" json:"host_id"`
	Host      Host       `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE" json:"-"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Question struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	QuizID   uint     `gorm:"not null;index" json:"quiz_id"`
	Text     string   `gorm:"type:text;not null" json:"text"`
	ImageURL string   `gorm:"size:500" json:"image_url,omitempty"`
	OrderNum int      `gorm:"not null" json:"order_num"`
	Options  []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:500;not null" json:"text"`
	ImageURL   string `gorm:"size:500" json:"image_url,omitempty"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}
