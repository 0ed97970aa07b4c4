package service

import (
	"context"
	"errors"
	"fmt"
	"quizforge_backend/internal/model"
	"quizforge_backend/internal/repository"
	"quizforge_backend/internal/util"
	"quizforge_backend/pkg/logger"
	"quizforge_backend/pkg/monitoring"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Quota and shape constants for the AI generation pipeline. The daily cap
// is the single authoritative value surfaced everywhere.
const (
	DailyGenerationCap   = 10
	MaxOwnedQuizzes      = 10
	QuestionsPerQuiz     = 10
	OptionsPerQuestion   = 4
	MinAcceptedQuestions = 5
	MaxAcceptedQuestions = 15
	PointsPerQuestion    = 5

	TextMinLength  = 50
	TextMaxLength  = 10000
	TopicMinLength = 3
	TopicMaxLength = 200

	GeneratedQuizTag = "ai-generated"
)

type GenerationMode string

const (
	ModeText  GenerationMode = "text"
	ModeTopic GenerationMode = "topic"
)

// QuizGenerator is the outbound provider call. AIService implements it; the
// pipeline tests stub it.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, mode GenerationMode, content string) (string, error)
}

// GenerationService runs the AI quiz generation pipeline: quiz-count guard,
// daily attempt guard, content validation, provider call, normalization,
// persistence and attempt accounting, in that order, failing closed at each
// stage.
type GenerationService struct {
	quizRepo    *repository.QuizRepository
	attemptRepo *repository.GenerationAttemptRepository
	provider    QuizGenerator
	clock       util.Clock
}

func NewGenerationService(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.GenerationAttemptRepository,
	provider QuizGenerator,
	clock util.Clock,
) *GenerationService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &GenerationService{
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		provider:    provider,
		clock:       clock,
	}
}

type GenerateQuizRequest struct {
	Mode    GenerationMode `json:"mode" binding:"required,oneof=text topic"`
	Content string         `json:"content" binding:"required"`
}

type AttemptStatus struct {
	AttemptsUsed      int       `json:"attemptsUsed"`
	RemainingAttempts int       `json:"remainingAttempts"`
	CanAttempt        bool      `json:"canAttempt"`
	ResetsAt          time.Time `json:"resetsAt"`
}

type GenerationResult struct {
	QuizID        uint          `json:"quizId"`
	Quiz          *model.Quiz   `json:"quiz"`
	AttemptInfo   AttemptStatus `json:"attemptInfo"`
	QuestionCount int           `json:"questionCount"`
}

// AttemptStatusFor reads the day's ledger state. A missing record counts as
// zero attempts used. ResetsAt is the next local midnight.
func (s *GenerationService) AttemptStatusFor(userID uint) (*AttemptStatus, error) {
	now := s.clock.Now()
	rec, err := s.attemptRepo.FindByUserAndDay(userID, util.StartOfDay(now))
	if err != nil {
		return nil, err
	}

	used := 0
	if rec != nil {
		used = rec.AttemptsUsed
	}
	remaining := DailyGenerationCap - used
	if remaining < 0 {
		remaining = 0
	}

	return &AttemptStatus{
		AttemptsUsed:      used,
		RemainingAttempts: remaining,
		CanAttempt:        used < DailyGenerationCap,
		ResetsAt:          util.StartOfNextDay(now),
	}, nil
}

// ValidateContent trims the content and checks the length bounds for the
// mode. Returns the trimmed content on success.
func ValidateContent(mode GenerationMode, content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	length := utf8.RuneCountInString(trimmed)

	switch mode {
	case ModeText:
		if length < TextMinLength || length > TextMaxLength {
			return "", &InvalidInputError{
				Field:   "content",
				Message: fmt.Sprintf("text must be between %d and %d characters, got %d", TextMinLength, TextMaxLength, length),
			}
		}
	case ModeTopic:
		if length < TopicMinLength || length > TopicMaxLength {
			return "", &InvalidInputError{
				Field:   "content",
				Message: fmt.Sprintf("topic must be between %d and %d characters, got %d", TopicMinLength, TopicMaxLength, length),
			}
		}
	default:
		return "", &InvalidInputError{Field: "mode", Message: "mode must be \"text\" or \"topic\""}
	}

	return trimmed, nil
}

// Generate runs the whole pipeline for one authenticated user.
func (s *GenerationService) Generate(ctx context.Context, userID uint, req GenerateQuizRequest) (*GenerationResult, error) {
	result, err := s.generate(ctx, userID, req)
	monitoring.GenerationCounter.WithLabelValues(outcomeLabel(err)).Inc()
	return result, err
}

func (s *GenerationService) generate(ctx context.Context, userID uint, req GenerateQuizRequest) (*GenerationResult, error) {
	// Owned-quiz cap first: a request that cannot be persisted must not
	// reach the provider or charge an attempt.
	count, err := s.quizRepo.CountByAuthor(userID)
	if err != nil {
		return nil, err
	}
	if count >= MaxOwnedQuizzes {
		return nil, &QuotaExceededError{
			Kind:         QuotaKindQuizLimit,
			CurrentCount: int(count),
			MaxLimit:     MaxOwnedQuizzes,
		}
	}

	status, err := s.AttemptStatusFor(userID)
	if err != nil {
		return nil, err
	}
	if !status.CanAttempt {
		return nil, &QuotaExceededError{
			Kind:              QuotaKindDailyAttempts,
			AttemptsUsed:      status.AttemptsUsed,
			RemainingAttempts: status.RemainingAttempts,
		}
	}

	content, err := ValidateContent(req.Mode, req.Content)
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.GenerateQuiz(ctx, req.Mode, content)
	if err != nil {
		return nil, err
	}

	quiz, truncatedFrom, err := NormalizeGeneratedQuiz(raw, req.Mode, content, userID)
	if err != nil {
		return nil, err
	}
	if truncatedFrom > 0 {
		logger.Log.Info("provider returned too many questions, truncated",
			zap.Uint("userId", userID),
			zap.Int("returned", truncatedFrom),
			zap.Int("kept", len(quiz.Questions)))
	}

	// Persist the quiz before charging the attempt so a ledger failure can
	// never consume quota without producing content. The reverse asymmetry
	// (saved quiz, uncharged attempt) is accepted and logged.
	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	charged, err := s.attemptRepo.IncrementWithCap(userID, util.StartOfDay(now), DailyGenerationCap, now)
	if err != nil || !charged {
		logger.Log.Warn("quiz saved but generation attempt was not recorded",
			zap.Uint("userId", userID),
			zap.Uint("quizId", quiz.ID),
			zap.Bool("charged", charged),
			zap.Error(err))
	}

	attemptInfo, err := s.AttemptStatusFor(userID)
	if err != nil {
		// The quiz exists; report conservative numbers instead of failing.
		logger.Log.Warn("failed to re-read attempt status", zap.Uint("userId", userID), zap.Error(err))
		attemptInfo = &AttemptStatus{
			AttemptsUsed:      status.AttemptsUsed + 1,
			RemainingAttempts: status.RemainingAttempts - 1,
			CanAttempt:        status.AttemptsUsed+1 < DailyGenerationCap,
			ResetsAt:          status.ResetsAt,
		}
	}

	return &GenerationResult{
		QuizID:        quiz.ID,
		Quiz:          quiz,
		AttemptInfo:   *attemptInfo,
		QuestionCount: len(quiz.Questions),
	}, nil
}

// outcomeLabel maps a pipeline error onto the metrics label set.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}

	var quotaErr *QuotaExceededError
	if errors.As(err, &quotaErr) {
		return quotaErr.Kind
	}
	var inputErr *InvalidInputError
	if errors.As(err, &inputErr) {
		return "invalid_input"
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return string(provErr.Kind)
	}
	var normErr *NormalizationError
	if errors.As(err, &normErr) {
		return string(normErr.Kind)
	}
	if errors.Is(err, ErrProviderMisconfigured) {
		return "provider_misconfigured"
	}
	return "internal_error"
}
