package dto

import (
	"time"

	"anoa.com/studentcommunity/internal/entity"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
)

// CreateCourseInput derives the slug from the title when Slug is empty.
type CreateCourseInput struct {
	Title       string             `json:"title" binding:"required,min=3,max=200"`
	Slug        string             `json:"slug" binding:"omitempty,max=200"`
	Description string             `json:"description" binding:"required"`
	Thumbnail   *string            `json:"thumbnail" binding:"omitempty,url"`
	Level       entity.CourseLevel `json:"level" binding:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Duration    int                `json:"duration" binding:"omitempty,min=0"`
	Category    *string            `json:"category" binding:"omitempty,max=100"`
	Tags        []string           `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	Published   bool               `json:"published"`
	Featured    bool               `json:"featured"`
}

// UpdateCourseInput leaves nil fields untouched.
type UpdateCourseInput struct {
	Title       *string             `json:"title" binding:"omitempty,min=3,max=200"`
	Slug        *string             `json:"slug" binding:"omitempty,min=1,max=200"`
	Description *string             `json:"description" binding:"omitempty,min=1"`
	Thumbnail   *string             `json:"thumbnail" binding:"omitempty,url"`
	Level       *entity.CourseLevel `json:"level" binding:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Duration    *int                `json:"duration" binding:"omitempty,min=0"`
	Category    *string             `json:"category" binding:"omitempty,max=100"`
	Tags        []string            `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	Published   *bool               `json:"published"`
	Featured    *bool               `json:"featured"`
}

type ListCoursesQuery struct {
	Level     string `form:"level" binding:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Category  string `form:"category"`
	Tags      string `form:"tags"`
	Search    string `form:"search"`
	Featured  *bool  `form:"featured"`
	Published *bool  `form:"published"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type ChapterInput struct {
	Title    string  `json:"title" binding:"required,min=1,max=200"`
	Slug     string  `json:"slug" binding:"omitempty,max=200"`
	Content  *string `json:"content"`
	VideoURL *string `json:"video_url" binding:"omitempty,url"`
	Order    *int    `json:"order" binding:"omitempty,min=0"`
	Duration int     `json:"duration" binding:"omitempty,min=0"`
}

type UpdateChapterInput struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"`
	VideoURL *string `json:"video_url" binding:"omitempty,url"`
	Order    *int    `json:"order" binding:"omitempty,min=0"`
	Duration *int    `json:"duration" binding:"omitempty,min=0"`
}

// ProgressInput is the learner's position in a chapter video, in seconds.
type ProgressInput struct {
	LastPosition int `json:"last_position" binding:"min=0"`
}

type CourseResponse struct {
	ID           uuid.UUID          `json:"id"`
	Title        string             `json:"title"`
	Slug         string             `json:"slug"`
	Description  string             `json:"description"`
	Thumbnail    *string            `json:"thumbnail"`
	Level        entity.CourseLevel `json:"level"`
	Duration     int                `json:"duration"`
	Category     *string            `json:"category"`
	Tags         []string           `json:"tags"`
	Published    bool               `json:"published"`
	Featured     bool               `json:"featured"`
	ChapterCount int64              `json:"chapter_count"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type ChapterResponse struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   *string   `json:"content"`
	VideoURL  *string   `json:"video_url"`
	Order     int       `json:"order"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

type CourseDetailResponse struct {
	CourseResponse
	Chapters []ChapterResponse `json:"chapters"`
}

type CourseListResponse struct {
	Data []CourseResponse         `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

// ChapterProgressItem is one chapter as seen by an enrolled learner.
type ChapterProgressItem struct {
	ChapterID    uuid.UUID  `json:"chapter_id"`
	Title        string     `json:"title"`
	Order        int        `json:"order"`
	Completed    bool       `json:"completed"`
	LastPosition int        `json:"last_position"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type ChapterDetailResponse struct {
	ChapterResponse
	Progress *ChapterProgressItem `json:"progress"`
}

type CourseProgressResponse struct {
	CourseID          uuid.UUID             `json:"course_id"`
	CourseTitle       string                `json:"course_title"`
	EnrolledAt        time.Time             `json:"enrolled_at"`
	Progress          int                   `json:"progress"`
	CompletedAt       *time.Time            `json:"completed_at"`
	TotalChapters     int                   `json:"total_chapters"`
	CompletedChapters int                   `json:"completed_chapters"`
	Chapters          []ChapterProgressItem `json:"chapters"`
}

type EnrollmentResponse struct {
	ID          uuid.UUID      `json:"id"`
	Course      CourseResponse `json:"course"`
	Progress    int            `json:"progress"`
	CompletedAt *time.Time     `json:"completed_at"`
	EnrolledAt  time.Time      `json:"enrolled_at"`
	XpAwarded   int            `json:"xp_awarded,omitempty"`
}

// CompletionResponse reports a chapter completion and its effect on the course.
type CompletionResponse struct {
	ChapterID       uuid.UUID `json:"chapter_id"`
	CourseID        uuid.UUID `json:"course_id"`
	Progress        int       `json:"progress"`
	CourseCompleted bool      `json:"course_completed"`
	XpAwarded       int       `json:"xp_awarded"`
}

func ToCourseResponse(c *entity.Course, chapterCount int64) CourseResponse {
	tags := []string(c.Tags)
	if tags == nil {
		tags = []string{}
	}
	return CourseResponse{
		ID:           c.ID,
		Title:        c.Title,
		Slug:         c.Slug,
		Description:  c.Description,
		Thumbnail:    c.Thumbnail,
		Level:        c.Level,
		Duration:     c.Duration,
		Category:     c.Category,
		Tags:         tags,
		Published:    c.Published,
		Featured:     c.Featured,
		ChapterCount: chapterCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func ToChapterResponse(ch *entity.Chapter) ChapterResponse {
	return ChapterResponse{
		ID:        ch.ID,
		CourseID:  ch.CourseID,
		Title:     ch.Title,
		Slug:      ch.Slug,
		Content:   ch.Content,
		VideoURL:  ch.VideoURL,
		Order:     ch.Order,
		Duration:  ch.Duration,
		CreatedAt: ch.CreatedAt,
	}
}

func ToCourseDetailResponse(c *entity.Course) CourseDetailResponse {
	chapters := make([]ChapterResponse, 0, len(c.Chapters))
	for i := range c.Chapters {
		chapters = append(chapters, ToChapterResponse(&c.Chapters[i]))
	}
	return CourseDetailResponse{
		CourseResponse: ToCourseResponse(c, int64(len(c.Chapters))),
		Chapters:       chapters,
	}
}

// ToProgressItem merges a chapter with the learner's row, which may be nil.
func ToProgressItem(ch *entity.Chapter, p *entity.ChapterProgress) ChapterProgressItem {
	item := ChapterProgressItem{ChapterID: ch.ID, Title: ch.Title, Order: ch.Order}
	if p != nil {
		item.Completed = p.Completed
		item.LastPosition = p.LastPosition
		item.CompletedAt = p.CompletedAt
	}
	return item
}
