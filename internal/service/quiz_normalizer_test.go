package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"quizforge_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerPayload builds a well-formed provider response with n questions,
// each with four options and the first one correct.
func providerPayload(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"title":"Go Basics","description":"A quiz about Go","questions":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"question":"Question %d?","explanation":"Because.","options":[`, i+1)
		sb.WriteString(`{"text":"right","isCorrect":true},`)
		sb.WriteString(`{"text":"wrong a","isCorrect":false},`)
		sb.WriteString(`{"text":"wrong b","isCorrect":false},`)
		sb.WriteString(`{"text":"wrong c","isCorrect":false}]}`)
	}
	sb.WriteString("]}")
	return sb.String()
}

func normalizationKind(t *testing.T, err error) *NormalizationError {
	t.Helper()
	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	return normErr
}

func TestNormalizeValidPayload(t *testing.T) {
	quiz, truncatedFrom, err := NormalizeGeneratedQuiz(providerPayload(10), ModeTopic, "Go Basics", 7)
	require.NoError(t, err)
	assert.Zero(t, truncatedFrom)

	assert.Equal(t, "Go Basics", quiz.Title)
	assert.Equal(t, "A quiz about Go", quiz.Description)
	assert.Equal(t, uint(7), quiz.AuthorID)
	assert.Equal(t, model.VisibilityPrivate, quiz.Visibility)
	assert.Equal(t, model.SourceAIGenerated, quiz.Source)
	assert.Equal(t, 10*PointsPerQuestion, quiz.MaxPoints)
	require.Len(t, quiz.Questions, 10)

	var tags []string
	require.NoError(t, json.Unmarshal(quiz.Tags, &tags))
	assert.Equal(t, []string{GeneratedQuizTag}, tags)

	q := quiz.Questions[0]
	assert.Equal(t, 0, q.Order)
	assert.Equal(t, "Question 1?", q.QuestionText)
	assert.Equal(t, "Because.", q.Explanation)
	require.Len(t, q.Options, OptionsPerQuestion)
	assert.True(t, q.Options[0].IsCorrect)
	assert.Equal(t, PointsPerQuestion, q.Options[0].Points)
	assert.False(t, q.Options[1].IsCorrect)
	assert.Zero(t, q.Options[1].Points)
}

func TestNormalizeStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + providerPayload(10) + "\n```"
	quiz, _, err := NormalizeGeneratedQuiz(fenced, ModeTopic, "Go Basics", 1)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 10)

	bare := "```\n" + providerPayload(10) + "\n```"
	quiz, _, err = NormalizeGeneratedQuiz(bare, ModeTopic, "Go Basics", 1)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 10)
}

func TestNormalizeMalformedJSON(t *testing.T) {
	_, _, err := NormalizeGeneratedQuiz("here is your quiz: {", ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, MalformedProviderOutput, normErr.Kind)
	assert.Equal(t, -1, normErr.QuestionIndex)
}

func TestNormalizeMissingQuestions(t *testing.T) {
	_, _, err := NormalizeGeneratedQuiz(`{"title":"t","description":"d"}`, ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, InvalidShape, normErr.Kind)
	assert.Equal(t, -1, normErr.QuestionIndex)
}

func TestNormalizeQuestionsNotAList(t *testing.T) {
	_, _, err := NormalizeGeneratedQuiz(`{"title":"t","questions":"none"}`, ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, InvalidShape, normErr.Kind)
}

func TestNormalizeTooFewQuestions(t *testing.T) {
	_, _, err := NormalizeGeneratedQuiz(providerPayload(MinAcceptedQuestions-1), ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, TooFewQuestions, normErr.Kind)
}

func TestNormalizeKeepsShortButAcceptableQuiz(t *testing.T) {
	quiz, truncatedFrom, err := NormalizeGeneratedQuiz(providerPayload(8), ModeTopic, "Go", 1)
	require.NoError(t, err)
	assert.Zero(t, truncatedFrom)
	assert.Len(t, quiz.Questions, 8)
	assert.Equal(t, 8*PointsPerQuestion, quiz.MaxPoints)
}

func TestNormalizeTruncatesOversizedQuiz(t *testing.T) {
	quiz, truncatedFrom, err := NormalizeGeneratedQuiz(providerPayload(16), ModeTopic, "Go", 1)
	require.NoError(t, err)
	assert.Equal(t, 16, truncatedFrom)
	assert.Len(t, quiz.Questions, QuestionsPerQuiz)
	assert.Equal(t, QuestionsPerQuiz*PointsPerQuestion, quiz.MaxPoints)
}

func TestNormalizeAtUpperBoundIsNotTruncated(t *testing.T) {
	quiz, truncatedFrom, err := NormalizeGeneratedQuiz(providerPayload(MaxAcceptedQuestions), ModeTopic, "Go", 1)
	require.NoError(t, err)
	assert.Zero(t, truncatedFrom)
	assert.Len(t, quiz.Questions, MaxAcceptedQuestions)
}

func TestNormalizeEmptyQuestionText(t *testing.T) {
	var payload rawQuizPayload
	raw := providerPayload(10)
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	var questions []rawQuestion
	require.NoError(t, json.Unmarshal(payload.Questions, &questions))
	questions[2].Question = "   "
	broken := rebuild(t, payload, questions)

	_, _, err := NormalizeGeneratedQuiz(broken, ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, InvalidShape, normErr.Kind)
	assert.Equal(t, 2, normErr.QuestionIndex)
}

func TestNormalizeWrongOptionCount(t *testing.T) {
	var payload rawQuizPayload
	require.NoError(t, json.Unmarshal([]byte(providerPayload(10)), &payload))

	var questions []rawQuestion
	require.NoError(t, json.Unmarshal(payload.Questions, &questions))
	questions[5].Options = questions[5].Options[:3]
	broken := rebuild(t, payload, questions)

	_, _, err := NormalizeGeneratedQuiz(broken, ModeTopic, "Go", 1)
	normErr := normalizationKind(t, err)
	assert.Equal(t, InvalidShape, normErr.Kind)
	assert.Equal(t, 5, normErr.QuestionIndex)
}

func TestNormalizeCorrectAnswerCount(t *testing.T) {
	for name, mutate := range map[string]func([]rawOption){
		"two correct": func(opts []rawOption) { opts[1].IsCorrect = true },
		"none correct": func(opts []rawOption) {
			for i := range opts {
				opts[i].IsCorrect = false
			}
		},
	} {
		t.Run(name, func(t *testing.T) {
			var payload rawQuizPayload
			require.NoError(t, json.Unmarshal([]byte(providerPayload(10)), &payload))

			var questions []rawQuestion
			require.NoError(t, json.Unmarshal(payload.Questions, &questions))
			mutate(questions[4].Options)
			broken := rebuild(t, payload, questions)

			_, _, err := NormalizeGeneratedQuiz(broken, ModeTopic, "Go", 1)
			normErr := normalizationKind(t, err)
			assert.Equal(t, InvalidCorrectAnswerCount, normErr.Kind)
			assert.Equal(t, 4, normErr.QuestionIndex)
		})
	}
}

func TestNormalizeTitleFallback(t *testing.T) {
	var payload rawQuizPayload
	require.NoError(t, json.Unmarshal([]byte(providerPayload(10)), &payload))
	payload.Title = "  "

	var questions []rawQuestion
	require.NoError(t, json.Unmarshal(payload.Questions, &questions))
	raw := rebuild(t, payload, questions)

	quiz, _, err := NormalizeGeneratedQuiz(raw, ModeTopic, "Concurrency patterns", 1)
	require.NoError(t, err)
	assert.Equal(t, "Concurrency patterns", quiz.Title)

	quiz, _, err = NormalizeGeneratedQuiz(raw, ModeText, "a long source text ...", 1)
	require.NoError(t, err)
	assert.Equal(t, "AI-generated quiz", quiz.Title)
}

// rebuild re-serializes a mutated payload for the failure-path tests.
func rebuild(t *testing.T, payload rawQuizPayload, questions []rawQuestion) string {
	t.Helper()
	qs, err := json.Marshal(questions)
	require.NoError(t, err)
	payload.Questions = qs
	out, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(out)
}
