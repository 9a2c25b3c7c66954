package dto

import (
	commonDto "anoa.com/studentcommunity/pkg/dto"
)

type ListUsersQuery struct {
	Search     string `form:"search" binding:"omitempty,max=100"`
	Rank       string `form:"rank" binding:"omitempty,oneof=JUNIOR SENIOR MASTER"`
	Department string `form:"department" binding:"omitempty,max=100"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type UserListResponse struct {
	Data []commonDto.UserSummary  `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
