package service

import (
	"encoding/json"
	"fmt"
	"quizforge_backend/internal/model"
	"strings"
)

// Raw provider output shapes. The prompt in ai_service.go demands exactly
// this structure; the normalizer trusts nothing about it.
type rawQuizPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   json.RawMessage `json:"questions"`
}

type rawQuestion struct {
	Question    string      `json:"question"`
	Explanation string      `json:"explanation"`
	Options     []rawOption `json:"options"`
}

type rawOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// NormalizeGeneratedQuiz turns raw provider output into a validated Quiz.
// It is a pure transformation: no retries, no persistence. truncatedFrom is
// non-zero when the provider returned more than MaxAcceptedQuestions and the
// list was cut to QuestionsPerQuiz; the caller decides how to log that.
func NormalizeGeneratedQuiz(raw string, mode GenerationMode, content string, authorID uint) (quiz *model.Quiz, truncatedFrom int, err error) {
	stripped := stripCodeFence(raw)

	var payload rawQuizPayload
	if jsonErr := json.Unmarshal([]byte(stripped), &payload); jsonErr != nil {
		return nil, 0, &NormalizationError{
			Kind:          MalformedProviderOutput,
			QuestionIndex: -1,
			Detail:        jsonErr.Error(),
		}
	}

	if len(payload.Questions) == 0 {
		return nil, 0, &NormalizationError{
			Kind:          InvalidShape,
			QuestionIndex: -1,
			Detail:        "missing questions field",
		}
	}

	var rawQuestions []rawQuestion
	if jsonErr := json.Unmarshal(payload.Questions, &rawQuestions); jsonErr != nil {
		return nil, 0, &NormalizationError{
			Kind:          InvalidShape,
			QuestionIndex: -1,
			Detail:        "questions is not a list of question objects",
		}
	}

	if len(rawQuestions) < MinAcceptedQuestions {
		return nil, 0, &NormalizationError{
			Kind:          TooFewQuestions,
			QuestionIndex: -1,
			Detail:        fmt.Sprintf("got %d questions, need at least %d", len(rawQuestions), MinAcceptedQuestions),
		}
	}
	if len(rawQuestions) > MaxAcceptedQuestions {
		truncatedFrom = len(rawQuestions)
		rawQuestions = rawQuestions[:QuestionsPerQuiz]
	}

	questions := make([]model.QuizQuestion, 0, len(rawQuestions))
	for i, rq := range rawQuestions {
		if strings.TrimSpace(rq.Question) == "" {
			return nil, 0, &NormalizationError{
				Kind:          InvalidShape,
				QuestionIndex: i,
				Detail:        "question text is empty",
			}
		}
		if len(rq.Options) != OptionsPerQuestion {
			return nil, 0, &NormalizationError{
				Kind:          InvalidShape,
				QuestionIndex: i,
				Detail:        fmt.Sprintf("got %d options, need exactly %d", len(rq.Options), OptionsPerQuestion),
			}
		}

		correct := 0
		for _, o := range rq.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return nil, 0, &NormalizationError{
				Kind:          InvalidCorrectAnswerCount,
				QuestionIndex: i,
				Detail:        fmt.Sprintf("got %d correct options, need exactly 1", correct),
			}
		}

		options := make([]model.QuizOption, 0, OptionsPerQuestion)
		for j, o := range rq.Options {
			points := 0
			if o.IsCorrect {
				points = PointsPerQuestion
			}
			options = append(options, model.QuizOption{
				Order:     j,
				Text:      o.Text,
				Points:    points,
				IsCorrect: o.IsCorrect,
			})
		}

		questions = append(questions, model.QuizQuestion{
			Order:        i,
			QuestionText: rq.Question,
			Explanation:  rq.Explanation,
			Options:      options,
		})
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		if mode == ModeTopic {
			title = content
		} else {
			title = "AI-generated quiz"
		}
	}

	tags, _ := json.Marshal([]string{GeneratedQuizTag})

	quiz = &model.Quiz{
		Title:       title,
		Description: payload.Description,
		Tags:        tags,
		AuthorID:    authorID,
		Visibility:  model.VisibilityPrivate,
		Source:      model.SourceAIGenerated,
		MaxPoints:   len(questions) * PointsPerQuestion,
		Questions:   questions,
	}
	return quiz, truncatedFrom, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, before structural parsing.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return ""
	}
	s = s[i+1:]

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
