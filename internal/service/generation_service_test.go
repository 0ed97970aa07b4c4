package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"quizforge_backend/internal/model"
	"quizforge_backend/internal/repository"
	"quizforge_backend/internal/util"
	"quizforge_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type stubProvider struct {
	raw   string
	err   error
	calls int
}

func (p *stubProvider) GenerateQuiz(ctx context.Context, mode GenerationMode, content string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.raw, nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type generationFixture struct {
	db       *gorm.DB
	quizRepo *repository.QuizRepository
	attempts *repository.GenerationAttemptRepository
	provider *stubProvider
	clock    *fixedClock
	svc      *GenerationService
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizOption{},
		&model.GenerationAttempt{},
	))

	f := &generationFixture{
		db:       db,
		quizRepo: repository.NewQuizRepository(db),
		attempts: repository.NewGenerationAttemptRepository(db),
		provider: &stubProvider{raw: providerPayload(10)},
		clock:    &fixedClock{now: time.Date(2026, time.August, 29, 10, 0, 0, 0, time.Local)},
	}
	f.svc = NewGenerationService(f.quizRepo, f.attempts, f.provider, f.clock)
	return f
}

func (f *generationFixture) attemptsUsed(t *testing.T, userID uint) int {
	t.Helper()
	rec, err := f.attempts.FindByUserAndDay(userID, util.StartOfDay(f.clock.now))
	require.NoError(t, err)
	if rec == nil {
		return 0
	}
	return rec.AttemptsUsed
}

func topicRequest(topic string) GenerateQuizRequest {
	return GenerateQuizRequest{Mode: ModeTopic, Content: topic}
}

func TestGeneratePersistsQuizAndChargesAttempt(t *testing.T) {
	f := newGenerationFixture(t)

	result, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))
	require.NoError(t, err)

	assert.NotZero(t, result.QuizID)
	assert.Equal(t, 10, result.QuestionCount)
	assert.Equal(t, 1, result.AttemptInfo.AttemptsUsed)
	assert.Equal(t, DailyGenerationCap-1, result.AttemptInfo.RemainingAttempts)
	assert.True(t, result.AttemptInfo.CanAttempt)
	assert.Equal(t, util.StartOfNextDay(f.clock.now), result.AttemptInfo.ResetsAt)

	saved, err := f.quizRepo.FindByID(result.QuizID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), saved.AuthorID)
	assert.Equal(t, model.VisibilityPrivate, saved.Visibility)
	assert.Equal(t, model.SourceAIGenerated, saved.Source)
	assert.Equal(t, 10*PointsPerQuestion, saved.MaxPoints)
	assert.Len(t, saved.Questions, 10)
	assert.Equal(t, 1, f.attemptsUsed(t, 1))
}

func TestGenerateQuizLimitBlocksBeforeProvider(t *testing.T) {
	f := newGenerationFixture(t)
	for i := 0; i < MaxOwnedQuizzes; i++ {
		require.NoError(t, f.quizRepo.Create(&model.Quiz{
			Title:    fmt.Sprintf("quiz %d", i),
			AuthorID: 1,
		}))
	}

	_, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, QuotaKindQuizLimit, quotaErr.Kind)
	assert.Equal(t, MaxOwnedQuizzes, quotaErr.CurrentCount)
	assert.Equal(t, MaxOwnedQuizzes, quotaErr.MaxLimit)

	assert.Zero(t, f.provider.calls, "provider must not be called")
	assert.Zero(t, f.attemptsUsed(t, 1), "no attempt may be charged")
}

func TestGenerateDailyCapBlocksBeforeProvider(t *testing.T) {
	f := newGenerationFixture(t)
	require.NoError(t, f.db.Create(&model.GenerationAttempt{
		UserID:        1,
		Day:           util.StartOfDay(f.clock.now),
		AttemptsUsed:  DailyGenerationCap,
		LastAttemptAt: f.clock.now,
	}).Error)

	_, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, QuotaKindDailyAttempts, quotaErr.Kind)
	assert.Equal(t, DailyGenerationCap, quotaErr.AttemptsUsed)
	assert.Zero(t, quotaErr.RemainingAttempts)

	assert.Zero(t, f.provider.calls)
}

func TestGenerateInvalidContentIsFree(t *testing.T) {
	f := newGenerationFixture(t)

	_, err := f.svc.Generate(context.Background(), 1, topicRequest("ab"))

	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "content", inputErr.Field)

	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.attemptsUsed(t, 1))
}

func TestGenerateProviderFailurePersistsNothing(t *testing.T) {
	f := newGenerationFixture(t)
	f.provider.err = &ProviderError{Kind: ProviderUnavailable, Transient: true}

	_, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)

	count, err := f.quizRepo.CountByAuthor(1)
	require.NoError(t, err)
	assert.Zero(t, count, "no quiz may be saved")
	assert.Zero(t, f.attemptsUsed(t, 1), "failed generations are free")
}

func TestGenerateUnusableOutputPersistsNothing(t *testing.T) {
	f := newGenerationFixture(t)
	f.provider.raw = "I could not generate a quiz, sorry."

	_, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))

	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, MalformedProviderOutput, normErr.Kind)

	count, err := f.quizRepo.CountByAuthor(1)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.attemptsUsed(t, 1))
}

func TestGenerateTruncatesOversizedProviderOutput(t *testing.T) {
	f := newGenerationFixture(t)
	f.provider.raw = providerPayload(16)

	result, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))
	require.NoError(t, err)
	assert.Equal(t, QuestionsPerQuiz, result.QuestionCount)
}

func TestAttemptStatusResetsOnDayRollover(t *testing.T) {
	f := newGenerationFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Generate(context.Background(), 1, topicRequest("Go concurrency"))
		require.NoError(t, err)
	}

	status, err := f.svc.AttemptStatusFor(1)
	require.NoError(t, err)
	assert.Equal(t, 3, status.AttemptsUsed)
	assert.Equal(t, DailyGenerationCap-3, status.RemainingAttempts)

	f.clock.now = f.clock.now.AddDate(0, 0, 1)

	status, err = f.svc.AttemptStatusFor(1)
	require.NoError(t, err)
	assert.Zero(t, status.AttemptsUsed)
	assert.Equal(t, DailyGenerationCap, status.RemainingAttempts)
	assert.True(t, status.CanAttempt)
	assert.Equal(t, util.StartOfNextDay(f.clock.now), status.ResetsAt)
}

func TestValidateContent(t *testing.T) {
	longText := strings.Repeat("a", TextMinLength)

	tests := []struct {
		name    string
		mode    GenerationMode
		content string
		wantErr bool
	}{
		{"text at minimum length", ModeText, longText, false},
		{"text too short", ModeText, strings.Repeat("a", TextMinLength-1), true},
		{"text too long", ModeText, strings.Repeat("a", TextMaxLength+1), true},
		{"topic at minimum length", ModeTopic, "Gin", false},
		{"topic too short", ModeTopic, "Go", true},
		{"topic too long", ModeTopic, strings.Repeat("a", TopicMaxLength+1), true},
		{"unknown mode", GenerationMode("essay"), longText, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateContent(tt.mode, tt.content)
			if tt.wantErr {
				var inputErr *InvalidInputError
				assert.ErrorAs(t, err, &inputErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateContentTrimsBeforeMeasuring(t *testing.T) {
	padded := "   " + strings.Repeat("a", TextMinLength) + "   "
	trimmed, err := ValidateContent(ModeText, padded)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", TextMinLength), trimmed)

	// whitespace padding alone must not rescue a too-short topic
	_, err = ValidateContent(ModeTopic, "  ab   ")
	assert.Error(t, err)
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", outcomeLabel(nil))
	assert.Equal(t, QuotaKindQuizLimit, outcomeLabel(&QuotaExceededError{Kind: QuotaKindQuizLimit}))
	assert.Equal(t, "invalid_input", outcomeLabel(&InvalidInputError{Field: "content"}))
	assert.Equal(t, string(ProviderRateLimited), outcomeLabel(&ProviderError{Kind: ProviderRateLimited}))
	assert.Equal(t, string(TooFewQuestions), outcomeLabel(&NormalizationError{Kind: TooFewQuestions}))
	assert.Equal(t, "provider_misconfigured", outcomeLabel(ErrProviderMisconfigured))
	assert.Equal(t, "internal_error", outcomeLabel(context.Canceled))
}
