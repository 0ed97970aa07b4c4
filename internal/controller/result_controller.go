package controller

import (
	"quizforge_backend/internal/service"
	"quizforge_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService *service.ResultService
}

func NewResultController(resultService *service.ResultService) *ResultController {
	return &ResultController{ResultService: resultService}
}

// Submit godoc
// @Summary Submit answers for a quiz and get the score
// @Tags result
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "quiz id"
// @Param request body service.SubmitAnswersInput true "answers"
// @Success 200 {object} util.Response{data=model.QuizResult}
// @Failure 404 {object} util.Response
// @Router /quizzes/{id}/submit [post]
func (c *ResultController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.SubmitAnswersInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ResultService.Submit(ctx.Request.Context(), claims.UserID, util.MustParseUint(ctx.Param("id")), input)
	if err != nil {
		writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// MyResults godoc
// @Summary Recent results of the current user
// @Tags result
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "max rows" default(20)
// @Success 200 {object} util.Response{data=[]model.QuizResult}
// @Router /results/mine [get]
func (c *ResultController) MyResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	results, err := c.ResultService.MyResults(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// QuizLeaderboard godoc
// @Summary Best score per user for one quiz
// @Tags result
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "quiz id"
// @Param limit query int false "max rows" default(10)
// @Success 200 {object} util.Response{data=[]repository.LeaderboardEntry}
// @Router /quizzes/{id}/leaderboard [get]
func (c *ResultController) QuizLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	entries, err := c.ResultService.QuizLeaderboard(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// GlobalLeaderboard godoc
// @Summary Users ranked by total points
// @Tags result
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "max rows" default(10)
// @Success 200 {object} util.Response{data=[]repository.LeaderboardEntry}
// @Router /leaderboard [get]
func (c *ResultController) GlobalLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	entries, err := c.ResultService.GlobalLeaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
