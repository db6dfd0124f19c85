package models

// SessionQuestion is a question snapshotted into a session at creation time.
// The snapshot never changes afterwards, even if the source quiz is edited.
// CorrectIndex is the authoritative answer and must never be serialized to a
// player before they have submitted.
type SessionQuestion struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SessionID    uint            `gorm:"not null;index" json:"session_id"`
	OrderNum     int             `gorm:"not null" json:"order_num"`
	Text         string          `gorm:"type:text;not null" json:"text"`
	ImageURL     string          `gorm:"size:500" json:"image_url,omitempty"`
	CorrectIndex int             `gorm:"not null" json:"-"`
	Options      []SessionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

type SessionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	OrderNum   int    `gorm:"not null" json:"order_num"`
	Text       string `gorm:"size:500;not null" json:"text"`
	ImageURL   string `gorm:"size:500" json:"image_url,omitempty"`
}
