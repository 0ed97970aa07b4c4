package model

import "time"

// GenerationAttempt is the day-bucketed AI generation counter for one user.
// Day carries a date only; together with UserID it forms the natural key.
// Rows are created lazily on the first attempt of a day and never deleted,
// so the table doubles as an audit log of generation activity.
// swagger:model GenerationAttempt
type GenerationAttempt struct {
	BaseModel
	UserID        uint      `gorm:"uniqueIndex:idx_user_day;type:bigint unsigned;not null" json:"userId"`
	Day           time.Time `gorm:"uniqueIndex:idx_user_day;type:date;not null" json:"day"`
	AttemptsUsed  int       `gorm:"default:0;not null" json:"attemptsUsed"`
	LastAttemptAt time.Time `gorm:"not null" json:"lastAttemptAt"`
}

func (GenerationAttempt) TableName() string {
	return "generation_attempts"
}
