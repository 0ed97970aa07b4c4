package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"quizforge_backend/internal/model"
	"quizforge_backend/internal/repository"
	"quizforge_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// QuizService covers the authored-quiz CRUD path. AI-generated quizzes come
// out of GenerationService but live in the same store and obey the same
// ownership cap.
type QuizService struct {
	QuizRepo *repository.QuizRepository
	Storage  *StorageService
}

func NewQuizService(quizRepo *repository.QuizRepository, storage *StorageService) *QuizService {
	return &QuizService{QuizRepo: quizRepo, Storage: storage}
}

type QuizOptionInput struct {
	Text      string `json:"text" binding:"required"`
	Points    int    `json:"points" binding:"min=0"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuizQuestionInput struct {
	QuestionText string            `json:"questionText" binding:"required"`
	Explanation  string            `json:"explanation"`
	Options      []QuizOptionInput `json:"options" binding:"required,min=2,max=6,dive"`
}

type QuizInput struct {
	Title       string              `json:"title" binding:"required,max=255"`
	Description string              `json:"description"`
	Tags        []string            `json:"tags"`
	Visibility  string              `json:"visibility" binding:"omitempty,oneof=private public"`
	Questions   []QuizQuestionInput `json:"questions" binding:"required,min=1,dive"`
}

// buildQuiz validates the exactly-one-correct invariant and assembles the
// model with a consistent MaxPoints.
func buildQuiz(authorID uint, input QuizInput) (*model.Quiz, error) {
	questions := make([]model.QuizQuestion, 0, len(input.Questions))
	for i, q := range input.Questions {
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return nil, &InvalidInputError{
				Field:   "questions",
				Message: fmt.Sprintf("question %d must have exactly one correct option, got %d", i, correct),
			}
		}

		options := make([]model.QuizOption, 0, len(q.Options))
		for j, o := range q.Options {
			options = append(options, model.QuizOption{
				Order:     j,
				Text:      o.Text,
				Points:    o.Points,
				IsCorrect: o.IsCorrect,
			})
		}
		questions = append(questions, model.QuizQuestion{
			Order:        i,
			QuestionText: q.QuestionText,
			Explanation:  q.Explanation,
			Options:      options,
		})
	}

	visibility := model.QuizVisibility(input.Visibility)
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	quiz := &model.Quiz{
		Title:       input.Title,
		Description: input.Description,
		Tags:        tagsJSON,
		AuthorID:    authorID,
		Visibility:  visibility,
		Source:      model.SourceAuthored,
		Questions:   questions,
	}
	quiz.MaxPoints = quiz.ComputeMaxPoints()
	return quiz, nil
}

func (s *QuizService) Create(authorID uint, input QuizInput) (*model.Quiz, error) {
	count, err := s.QuizRepo.CountByAuthor(authorID)
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

	quiz, err := buildQuiz(authorID, input)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Get returns the quiz if the user may see it: public, or their own.
func (s *QuizService) Get(userID, quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if quiz.Visibility != model.VisibilityPublic && quiz.AuthorID != userID {
		return nil, util.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) Update(userID uint, quizID uint, input QuizInput) (*model.Quiz, error) {
	existing, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != userID {
		return nil, util.ErrPermissionDenied
	}

	updated, err := buildQuiz(userID, input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Source = existing.Source
	updated.CoverURL = existing.CoverURL

	if err := s.QuizRepo.ReplaceQuestions(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *QuizService) Delete(userID uint, role model.UserRole, quizID uint) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	}
	if err != nil {
		return err
	}
	if quiz.AuthorID != userID && role != model.RoleAdmin {
		return util.ErrPermissionDenied
	}
	return s.QuizRepo.Delete(quizID)
}

func (s *QuizService) ListOwn(userID uint, page, limit int) ([]model.Quiz, int64, error) {
	return s.QuizRepo.List(repository.QuizFilter{AuthorID: userID}, page, limit)
}

func (s *QuizService) Browse(userID uint, tag, search string, page, limit int) ([]model.Quiz, int64, error) {
	return s.QuizRepo.ListVisibleTo(userID, tag, search, page, limit)
}

// UploadCover validates the image and attaches it to the quiz.
func (s *QuizService) UploadCover(ctx context.Context, userID, quizID uint, fileHeader *multipart.FileHeader) (string, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", util.ErrQuizNotFound
	}
	if err != nil {
		return "", err
	}
	if quiz.AuthorID != userID {
		return "", util.ErrPermissionDenied
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	filename := fmt.Sprintf("covers/%d_%s%s", quizID, model.GenerateUUID(), ext)

	url, err := s.Storage.Upload(ctx, filename, file, fileHeader.Size, mimeType)
	if err != nil {
		return "", err
	}

	quiz.CoverURL = url
	if err := s.QuizRepo.DB.Model(&model.Quiz{}).Where("id = ?", quizID).Update("cover_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}
