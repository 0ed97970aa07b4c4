package model

import (
	"encoding/json"
	"time"
)

// QuizResult stores one completed run of a quiz by a user.
// swagger:model QuizResult
type QuizResult struct {
	BaseModel
	UserID      uint            `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	QuizID      uint            `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Score       int             `gorm:"not null" json:"score"`
	MaxScore    int             `gorm:"not null" json:"maxScore"`
	Answers     json.RawMessage `gorm:"type:json" json:"answers"` // JSON: map[questionID]optionID
	CompletedAt time.Time       `gorm:"not null" json:"completedAt"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}
