package controller

import (
	"errors"
	"net/http"
	"quizforge_backend/internal/service"
	"quizforge_backend/internal/util"
	"quizforge_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GenerationController struct {
	GenerationService *service.GenerationService
}

func NewGenerationController(generationService *service.GenerationService) *GenerationController {
	return &GenerationController{GenerationService: generationService}
}

// Generate godoc
// @Summary Generate a quiz from a text or topic prompt
// @Description Runs the AI generation pipeline: ownership cap, daily attempt
// @Description quota, content validation, provider call, normalization and
// @Description persistence. Quota errors carry the concrete numbers.
// @Tags generation
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.GenerateQuizRequest true "mode and content"
// @Success 201 {object} util.Response{data=service.GenerationResult}
// @Failure 400 {object} util.Response
// @Failure 429 {object} util.Response
// @Failure 502 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /quizzes/generate [post]
func (c *GenerationController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GenerationService.Generate(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		writeGenerationError(ctx, claims.UserID, err)
		return
	}
	util.Created(ctx, result)
}

// Status godoc
// @Summary Remaining AI generation attempts for today
// @Tags generation
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AttemptStatus}
// @Router /quizzes/generate/status [get]
func (c *GenerationController) Status(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.GenerationService.AttemptStatusFor(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// writeGenerationError maps pipeline failures onto HTTP responses. Quota
// errors expose their numbers; provider and normalization failures stay
// generic for the caller and detailed in the log.
func writeGenerationError(ctx *gin.Context, userID uint, err error) {
	var inputErr *service.InvalidInputError
	if errors.As(err, &inputErr) {
		util.BadRequest(ctx, inputErr.Message)
		return
	}

	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		data := gin.H{"kind": quotaErr.Kind}
		if quotaErr.Kind == service.QuotaKindQuizLimit {
			data["currentCount"] = quotaErr.CurrentCount
			data["maxLimit"] = quotaErr.MaxLimit
		} else {
			data["attemptsUsed"] = quotaErr.AttemptsUsed
			data["remainingAttempts"] = quotaErr.RemainingAttempts
		}
		util.ErrorWithData(ctx, http.StatusTooManyRequests, quotaErr.Error(), data)
		return
	}

	if errors.Is(err, service.ErrProviderMisconfigured) {
		util.Error(ctx, http.StatusServiceUnavailable, "quiz generation is not available right now")
		return
	}

	var provErr *service.ProviderError
	if errors.As(err, &provErr) {
		logger.Log.Warn("quiz generation provider failure",
			zap.Uint("userId", userID),
			zap.String("kind", string(provErr.Kind)),
			zap.Error(provErr))
		util.Error(ctx, http.StatusServiceUnavailable, "the quiz generator is unavailable, please try again shortly")
		return
	}

	var normErr *service.NormalizationError
	if errors.As(err, &normErr) {
		logger.Log.Warn("quiz generation produced unusable output",
			zap.Uint("userId", userID),
			zap.String("kind", string(normErr.Kind)),
			zap.Int("questionIndex", normErr.QuestionIndex),
			zap.String("detail", normErr.Detail))
		util.Error(ctx, http.StatusBadGateway, "the generated quiz was not usable, please try again")
		return
	}

	util.LogInternalError(ctx, err)
}
