package repository

import (
	"quizforge_backend/internal/model"

	"gorm.io/gorm"
)

type QuizResultRepository struct {
	DB *gorm.DB
}

func NewQuizResultRepository(db *gorm.DB) *QuizResultRepository {
	return &QuizResultRepository{DB: db}
}

func (r *QuizResultRepository) Create(result *model.QuizResult) error {
	return r.DB.Create(result).Error
}

func (r *QuizResultRepository) ListByUser(userID uint, limit int) ([]model.QuizResult, error) {
	var results []model.QuizResult
	err := r.DB.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// LeaderboardEntry is one scored row of a leaderboard.
type LeaderboardEntry struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// TopByQuiz returns each user's best score on the quiz, highest first.
func (r *QuizResultRepository) TopByQuiz(quizID uint, limit int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := r.DB.Table("quiz_results").
		Select("quiz_results.user_id AS user_id, users.name AS name, MAX(quiz_results.score) AS score").
		Joins("JOIN users ON users.id = quiz_results.user_id").
		Where("quiz_results.quiz_id = ?", quizID).
		Group("quiz_results.user_id, users.name").
		Order("score DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// TopGlobal ranks users by total points across all quizzes they have taken.
func (r *QuizResultRepository) TopGlobal(limit int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := r.DB.Table("quiz_results").
		Select("quiz_results.user_id AS user_id, users.name AS name, SUM(quiz_results.score) AS score").
		Joins("JOIN users ON users.id = quiz_results.user_id").
		Group("quiz_results.user_id, users.name").
		Order("score DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
