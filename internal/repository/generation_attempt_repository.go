package repository

import (
	"errors"
	"quizforge_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type GenerationAttemptRepository struct {
	DB *gorm.DB
}

func NewGenerationAttemptRepository(db *gorm.DB) *GenerationAttemptRepository {
	return &GenerationAttemptRepository{DB: db}
}

// FindByUserAndDay returns the day's record, or (nil, nil) when the user has
// not attempted yet that day.
func (r *GenerationAttemptRepository) FindByUserAndDay(userID uint, day time.Time) (*model.GenerationAttempt, error) {
	var rec model.GenerationAttempt
	err := r.DB.Where("user_id = ? AND day = ?", userID, day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// IncrementWithCap atomically charges one attempt for (userID, day) as long
// as the counter stays below cap. It never does a read-then-write: the
// increment is a conditional UPDATE, and the first attempt of the day is an
// INSERT guarded by the unique (user_id, day) index. Returns false when the
// cap is already reached.
func (r *GenerationAttemptRepository) IncrementWithCap(userID uint, day time.Time, limit int, now time.Time) (bool, error) {
	increment := func() (int64, error) {
		res := r.DB.Model(&model.GenerationAttempt{}).
			Where("user_id = ? AND day = ? AND attempts_used < ?", userID, day, limit).
			Updates(map[string]interface{}{
				"attempts_used":   gorm.Expr("attempts_used + 1"),
				"last_attempt_at": now,
			})
		return res.RowsAffected, res.Error
	}

	rows, err := increment()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}

	// Either no row exists yet or the row is at cap. Try the first-attempt
	// insert; a duplicate key means the row does exist, so one more
	// conditional update settles whether it was capped or we lost a race.
	rec := &model.GenerationAttempt{
		UserID:        userID,
		Day:           day,
		AttemptsUsed:  1,
		LastAttemptAt: now,
	}
	err = r.DB.Create(rec).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	rows, err = increment()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// CountSince sums attempts recorded on or after the given day, for reporting.
func (r *GenerationAttemptRepository) CountSince(userID uint, day time.Time) (int64, error) {
	var total int64
	err := r.DB.Model(&model.GenerationAttempt{}).
		Select("COALESCE(SUM(attempts_used), 0)").
		Where("user_id = ? AND day >= ?", userID, day).
		Scan(&total).Error
	return total, err
}
