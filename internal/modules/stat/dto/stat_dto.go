package dto

import qnaDto "anoa.com/studentcommunity/internal/modules/qna/dto"

type OverviewResponse struct {
	TotalUsers  int64            `json:"total_users"`
	UsersByRank map[string]int64 `json:"users_by_rank"`
	Questions   QuestionStats    `json:"questions"`
	Mentorships MentorshipStats  `json:"mentorships"`
}

type QuestionStats struct {
	Total    int64 `json:"total"`
	Open     int64 `json:"open"`
	Answered int64 `json:"answered"`
	Closed   int64 `json:"closed"`
}

type MentorshipStats struct {
	Pending   int64 `json:"pending"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

type TrendingQuestionsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
	Days  int `form:"days" binding:"omitempty,min=1,max=90"`
}

type TrendingQuestionsResponse struct {
	Data []qnaDto.QuestionResponse `json:"data"`
}
