package model

import "encoding/json"

type QuizVisibility string

const (
	VisibilityPrivate QuizVisibility = "private"
	VisibilityPublic  QuizVisibility = "public"
)

type QuizSource string

const (
	SourceAuthored    QuizSource = "authored"
	SourceAIGenerated QuizSource = "ai_generated"
)

// Quiz is a multiple-choice quiz owned by a single author. MaxPoints is
// derived from the questions and kept consistent on every write path.
// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Tags        json.RawMessage `gorm:"type:json" json:"tags"` // JSON: []string
	AuthorID    uint            `gorm:"index;type:bigint unsigned;not null" json:"authorId"`
	Visibility  QuizVisibility  `gorm:"size:20;default:'private'" json:"visibility"`
	Source      QuizSource      `gorm:"size:20;default:'authored'" json:"source"`
	MaxPoints   int             `gorm:"default:0" json:"maxPoints"`
	CoverURL    string          `gorm:"size:255" json:"coverUrl"`
	Questions   []QuizQuestion  `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID       uint         `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Order        int          `gorm:"default:0" json:"order"`
	QuestionText string       `gorm:"type:text;not null" json:"questionText"`
	Explanation  string       `gorm:"type:text" json:"explanation"`
	Options      []QuizOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// swagger:model QuizOption
type QuizOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	Order      int    `gorm:"default:0" json:"order"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Points     int    `gorm:"default:0" json:"points"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (QuizOption) TableName() string {
	return "quiz_options"
}

// MaxQuestionPoints returns the highest option score of the question.
func (q *QuizQuestion) MaxQuestionPoints() int {
	max := 0
	for _, o := range q.Options {
		if o.Points > max {
			max = o.Points
		}
	}
	return max
}

// ComputeMaxPoints sums the maximum achievable points over all questions.
func (q *Quiz) ComputeMaxPoints() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].MaxQuestionPoints()
	}
	return total
}
