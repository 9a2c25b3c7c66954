package http

import (
	"net/http"

	xpDto "anoa.com/studentcommunity/internal/modules/xp/dto"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type XpHandler struct {
	service xpService.XpService
}

func NewXpHandler(service xpService.XpService) *XpHandler {
	return &XpHandler{service: service}
}

func (h *XpHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query xpDto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.History(c.Request.Context(), userID, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *XpHandler) GetLeaderboard(c *gin.Context) {
	var query xpDto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	var caller *uuid.UUID
	if userID, err := response.GetUserID(c); err == nil {
		caller = &userID
	}

	res, err := h.service.Leaderboard(c.Request.Context(), query.Limit, caller)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *XpHandler) GetMyRank(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.MyRank(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GrantXp is an admin tool for manual awards.
func (h *XpHandler) GrantXp(c *gin.Context) {
	var req xpDto.GrantXpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	in := xpService.GrantInput{
		UserID: uuid.MustParse(req.UserID),
		Type:   req.Type,
		Amount: req.Amount,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	res, err := h.service.GrantXp(c.Request.Context(), in)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, xpService.ToGrantXpResponse(res))
}

func (h *XpHandler) CheckLevelUp(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		response.ResponseError(c, apperror.New(http.StatusBadRequest, "invalid user_id", apperror.ErrBadRequest))
		return
	}

	res, err := h.service.CheckLevelUp(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
