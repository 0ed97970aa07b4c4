package controller

import (
	"errors"
	"net/http"
	"quizforge_backend/internal/service"
	"quizforge_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
	AuthService *service.AuthService
}

func NewQuizController(quizService *service.QuizService, authService *service.AuthService) *QuizController {
	return &QuizController{QuizService: quizService, AuthService: authService}
}

// writeQuizError maps quiz-path service failures onto the response envelope.
func writeQuizError(ctx *gin.Context, err error) {
	var inputErr *service.InvalidInputError
	if errors.As(err, &inputErr) {
		util.BadRequest(ctx, inputErr.Message)
		return
	}
	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		util.ErrorWithData(ctx, http.StatusTooManyRequests, quotaErr.Error(), gin.H{
			"kind":         quotaErr.Kind,
			"currentCount": quotaErr.CurrentCount,
			"maxLimit":     quotaErr.MaxLimit,
		})
		return
	}
	switch {
	case errors.Is(err, util.ErrQuizNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrQuizNotTakeable):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// Create godoc
// @Summary Create a quiz
// @Tags quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.QuizInput true "quiz payload"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.QuizInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Create(claims.UserID, input)
	if err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// List godoc
// @Summary List the current user's quizzes
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /quizzes/mine [get]
func (c *QuizController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := pagination(ctx)
	quizzes, total, err := c.QuizService.ListOwn(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// Browse godoc
// @Summary Browse public quizzes plus your own
// @Description Anonymous callers see public quizzes only.
// @Tags quiz
// @Produce json
// @Param tag query string false "filter by tag"
// @Param search query string false "title search"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /quizzes [get]
func (c *QuizController) Browse(ctx *gin.Context) {
	var userID uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		userID = claims.UserID
	}

	page, limit := pagination(ctx)
	quizzes, total, err := c.QuizService.Browse(userID, ctx.Query("tag"), ctx.Query("search"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// Get godoc
// @Summary Fetch one quiz with questions
// @Description Anonymous callers can fetch public quizzes only.
// @Tags quiz
// @Produce json
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	var userID uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		userID = claims.UserID
	}

	quiz, err := c.QuizService.Get(userID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Update godoc
// @Summary Replace a quiz you own
// @Tags quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "quiz id"
// @Param request body service.QuizInput true "quiz payload"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.QuizInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Update(claims.UserID, util.MustParseUint(ctx.Param("id")), input)
	if err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Delete godoc
// @Summary Delete a quiz you own
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "quiz id"
// @Success 200 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.QuizService.Delete(claims.UserID, claims.Role, util.MustParseUint(ctx.Param("id"))); err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadCover godoc
// @Summary Upload a cover image for a quiz
// @Tags quiz
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "quiz id"
// @Param file formData file true "image file"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/cover/upload [post]
func (c *QuizController) UploadCover(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}

	url, err := c.QuizService.UploadCover(ctx.Request.Context(), claims.UserID, util.MustParseUint(ctx.Param("id")), fileHeader)
	if err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

func pagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
