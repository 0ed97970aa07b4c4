package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"quizforge_backend/internal/model"
	"quizforge_backend/internal/repository"
	"quizforge_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const leaderboardCacheTTL = 5 * time.Minute

// ResultService scores quiz submissions and serves leaderboards. The
// leaderboard queries are cached in Redis and invalidated on submit.
type ResultService struct {
	ResultRepo *repository.QuizResultRepository
	QuizRepo   *repository.QuizRepository
	Redis      *redis.Client
	clock      util.Clock
}

func NewResultService(resultRepo *repository.QuizResultRepository, quizRepo *repository.QuizRepository, rdb *redis.Client) *ResultService {
	return &ResultService{
		ResultRepo: resultRepo,
		QuizRepo:   quizRepo,
		Redis:      rdb,
		clock:      util.SystemClock{},
	}
}

type SubmitAnswersInput struct {
	// Answers maps question ID to the chosen option ID.
	Answers map[uint]uint `json:"answers" binding:"required"`
}

// Submit scores one run of the quiz and records the result.
func (s *ResultService) Submit(ctx context.Context, userID, quizID uint, input SubmitAnswersInput) (*model.QuizResult, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if quiz.Visibility != model.VisibilityPublic && quiz.AuthorID != userID {
		return nil, util.ErrQuizNotTakeable
	}

	score := 0
	for _, question := range quiz.Questions {
		chosen, answered := input.Answers[question.ID]
		if !answered {
			continue
		}
		for _, option := range question.Options {
			if option.ID == chosen {
				score += option.Points
				break
			}
		}
	}

	answersJSON, err := json.Marshal(input.Answers)
	if err != nil {
		return nil, err
	}

	result := &model.QuizResult{
		UserID:      userID,
		QuizID:      quizID,
		Score:       score,
		MaxScore:    quiz.MaxPoints,
		Answers:     answersJSON,
		CompletedAt: s.clock.Now(),
	}
	if err := s.ResultRepo.Create(result); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		s.Redis.Del(ctx, quizLeaderboardKey(quizID), globalLeaderboardKey())
	}

	return result, nil
}

func (s *ResultService) MyResults(userID uint, limit int) ([]model.QuizResult, error) {
	return s.ResultRepo.ListByUser(userID, limit)
}

// QuizLeaderboard returns each user's best score on the quiz, cached.
func (s *ResultService) QuizLeaderboard(ctx context.Context, quizID uint, limit int) ([]repository.LeaderboardEntry, error) {
	return s.cachedLeaderboard(ctx, quizLeaderboardKey(quizID), func() ([]repository.LeaderboardEntry, error) {
		return s.ResultRepo.TopByQuiz(quizID, limit)
	})
}

// GlobalLeaderboard ranks users by total points across all quizzes, cached.
func (s *ResultService) GlobalLeaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	return s.cachedLeaderboard(ctx, globalLeaderboardKey(), func() ([]repository.LeaderboardEntry, error) {
		return s.ResultRepo.TopGlobal(limit)
	})
}

func (s *ResultService) cachedLeaderboard(ctx context.Context, key string, load func() ([]repository.LeaderboardEntry, error)) ([]repository.LeaderboardEntry, error) {
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var entries []repository.LeaderboardEntry
			if err := json.Unmarshal([]byte(val), &entries); err == nil {
				return entries, nil
			}
		}
		// cache misses and Redis outages both fall through to the query
	}

	entries, err := load()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			s.Redis.Set(ctx, key, data, leaderboardCacheTTL)
		}
	}

	return entries, nil
}

func quizLeaderboardKey(quizID uint) string {
	return fmt.Sprintf("leaderboard:quiz:%d", quizID)
}

func globalLeaderboardKey() string {
	return "leaderboard:global"
}
