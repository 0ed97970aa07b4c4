package service

import (
	"context"
	"testing"
	"time"

	"quizforge_backend/internal/model"
	"quizforge_backend/internal/repository"
	"quizforge_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type resultFixture struct {
	db   *gorm.DB
	svc  *ResultService
	quiz *model.Quiz
}

// newResultFixture sets up a public three-question quiz owned by user 1,
// worth 5 points per question.
func newResultFixture(t *testing.T) *resultFixture {
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
		&model.User{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizOption{},
		&model.QuizResult{},
	))

	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, db.Create(&model.User{
			Name:      name,
			Email:     name + "@example.com",
			Password:  "x",
			LastLogin: time.Now(),
		}).Error)
	}

	quizRepo := repository.NewQuizRepository(db)
	quiz := &model.Quiz{
		Title:      "Scoring",
		AuthorID:   1,
		Visibility: model.VisibilityPublic,
		MaxPoints:  15,
	}
	for i := 0; i < 3; i++ {
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Order:        i,
			QuestionText: "q",
			Options: []model.QuizOption{
				{Order: 0, Text: "right", Points: 5, IsCorrect: true},
				{Order: 1, Text: "wrong", Points: 0},
			},
		})
	}
	require.NoError(t, quizRepo.Create(quiz))

	svc := NewResultService(repository.NewQuizResultRepository(db), quizRepo, nil)
	return &resultFixture{db: db, svc: svc, quiz: quiz}
}

// answers picks the correct option for the first n questions and the wrong
// one for the rest.
func (f *resultFixture) answers(n int) SubmitAnswersInput {
	input := SubmitAnswersInput{Answers: map[uint]uint{}}
	for i, q := range f.quiz.Questions {
		if i < n {
			input.Answers[q.ID] = q.Options[0].ID
		} else {
			input.Answers[q.ID] = q.Options[1].ID
		}
	}
	return input
}

func TestSubmitScoresAnswers(t *testing.T) {
	f := newResultFixture(t)

	result, err := f.svc.Submit(context.Background(), 2, f.quiz.ID, f.answers(2))
	require.NoError(t, err)

	assert.Equal(t, 10, result.Score)
	assert.Equal(t, 15, result.MaxScore)
	assert.Equal(t, uint(2), result.UserID)
	assert.Equal(t, f.quiz.ID, result.QuizID)
}

func TestSubmitSkippedQuestionsScoreNothing(t *testing.T) {
	f := newResultFixture(t)

	input := SubmitAnswersInput{Answers: map[uint]uint{
		f.quiz.Questions[0].ID: f.quiz.Questions[0].Options[0].ID,
	}}
	result, err := f.svc.Submit(context.Background(), 2, f.quiz.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Score)
}

func TestSubmitUnknownOptionScoresNothing(t *testing.T) {
	f := newResultFixture(t)

	input := SubmitAnswersInput{Answers: map[uint]uint{
		f.quiz.Questions[0].ID: 99999,
	}}
	result, err := f.svc.Submit(context.Background(), 2, f.quiz.ID, input)
	require.NoError(t, err)
	assert.Zero(t, result.Score)
}

func TestSubmitPrivateQuizOnlyForOwner(t *testing.T) {
	f := newResultFixture(t)
	require.NoError(t, f.db.Model(&model.Quiz{}).
		Where("id = ?", f.quiz.ID).
		Update("visibility", model.VisibilityPrivate).Error)

	_, err := f.svc.Submit(context.Background(), 2, f.quiz.ID, f.answers(3))
	assert.ErrorIs(t, err, util.ErrQuizNotTakeable)

	result, err := f.svc.Submit(context.Background(), 1, f.quiz.ID, f.answers(3))
	require.NoError(t, err)
	assert.Equal(t, 15, result.Score)
}

func TestSubmitMissingQuiz(t *testing.T) {
	f := newResultFixture(t)

	_, err := f.svc.Submit(context.Background(), 2, 99999, f.answers(0))
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestQuizLeaderboardUsesBestScorePerUser(t *testing.T) {
	f := newResultFixture(t)

	// bob improves over two runs, carol stays behind
	_, err := f.svc.Submit(context.Background(), 2, f.quiz.ID, f.answers(1))
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), 2, f.quiz.ID, f.answers(3))
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), 3, f.quiz.ID, f.answers(2))
	require.NoError(t, err)

	entries, err := f.svc.QuizLeaderboard(context.Background(), f.quiz.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint(2), entries[0].UserID)
	assert.Equal(t, "bob", entries[0].Name)
	assert.Equal(t, 15, entries[0].Score)
	assert.Equal(t, uint(3), entries[1].UserID)
	assert.Equal(t, 10, entries[1].Score)
}

func TestGlobalLeaderboardSumsScores(t *testing.T) {
	f := newResultFixture(t)

	_, err := f.svc.Submit(context.Background(), 3, f.quiz.ID, f.answers(1))
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), 3, f.quiz.ID, f.answers(1))
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), 2, f.quiz.ID, f.answers(1))
	require.NoError(t, err)

	entries, err := f.svc.GlobalLeaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint(3), entries[0].UserID)
	assert.Equal(t, 10, entries[0].Score)
	assert.Equal(t, uint(2), entries[1].UserID)
	assert.Equal(t, 5, entries[1].Score)
}
