package dto

import (
	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
)

type CreateUserInput struct {
	Name       string  `json:"name" form:"name" binding:"required,min=2,max=100"`
	Email      string  `json:"email" form:"email" binding:"required,email"`
	Password   string  `json:"password" form:"password" binding:"required,min=8"`
	Role       string  `json:"role" form:"role" binding:"required,oneof=admin student"`
	Department *string `json:"department" form:"department" binding:"omitempty,max=100"`
	Grade      *int    `json:"grade" form:"grade" binding:"omitempty,min=1,max=6"`
	Bio        *string `json:"bio" form:"bio" binding:"omitempty,max=1000"`
	Rank       string  `json:"rank" form:"rank" binding:"omitempty,oneof=JUNIOR SENIOR MASTER"`
}

// UpdateAdminUserInput only changes the fields that are present.
type UpdateAdminUserInput struct {
	Name       *string `json:"name" form:"name" binding:"omitempty,min=2,max=100"`
	Email      *string `json:"email" form:"email" binding:"omitempty,email"`
	Password   *string `json:"password" form:"password" binding:"omitempty,min=8"`
	Role       *string `json:"role" form:"role" binding:"omitempty,oneof=admin student"`
	Department *string `json:"department" form:"department" binding:"omitempty,max=100"`
	Grade      *int    `json:"grade" form:"grade" binding:"omitempty,min=1,max=6"`
	Bio        *string `json:"bio" form:"bio" binding:"omitempty,max=1000"`
	Rank       *string `json:"rank" form:"rank" binding:"omitempty,oneof=JUNIOR SENIOR MASTER"`
}

type AdminUserResponse struct {
	User *entity.User `json:"user"`
}

type ListUsersQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type AdminUserListResponse struct {
	Data []*entity.User           `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
