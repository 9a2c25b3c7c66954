package service

import (
	"context"

	"anoa.com/studentcommunity/internal/entity"
	userDto "anoa.com/studentcommunity/internal/modules/user/dto"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	commonDto "anoa.com/studentcommunity/pkg/dto"
)

const defaultPageSize = 20

// UserService is the read side of the user directory.
type UserService interface {
	ListUsers(ctx context.Context, query userDto.ListUsersQuery) (*userDto.UserListResponse, error)
}

type userService struct {
	repo userRepo.UserRepository
}

func NewUserService(repo userRepo.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) ListUsers(ctx context.Context, query userDto.ListUsersQuery) (*userDto.UserListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageSize
	}

	users, total, err := s.repo.List(ctx, userRepo.UserFilter{
		Search:     query.Search,
		Rank:       entity.Rank(query.Rank),
		Department: query.Department,
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	data := make([]commonDto.UserSummary, 0, len(users))
	for i := range users {
		data = append(data, users[i].Summary())
	}

	return &userDto.UserListResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}
