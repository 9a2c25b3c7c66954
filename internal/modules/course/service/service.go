package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/course/dto"
	"anoa.com/studentcommunity/internal/modules/course/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"anoa.com/studentcommunity/pkg/slug"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 12
	maxSlugLength    = 200
)

// XpLedger is the slice of the XP service courses use.
type XpLedger interface {
	GrantXpTx(ctx context.Context, tx *gorm.DB, in xpService.GrantInput) (*xpService.GrantResult, error)
	AnnounceProgress(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult)
}

type CourseService interface {
	// ListCourses shows only published courses unless includeUnpublished is set.
	ListCourses(ctx context.Context, query dto.ListCoursesQuery, includeUnpublished bool) (*dto.CourseListResponse, error)
	GetCourse(ctx context.Context, id uuid.UUID, includeUnpublished bool) (*dto.CourseDetailResponse, error)
	CreateCourse(ctx context.Context, input dto.CreateCourseInput) (*dto.CourseDetailResponse, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, input dto.UpdateCourseInput) (*dto.CourseDetailResponse, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error

	AddChapter(ctx context.Context, courseID uuid.UUID, input dto.ChapterInput) (*dto.ChapterResponse, error)
	UpdateChapter(ctx context.Context, id uuid.UUID, input dto.UpdateChapterInput) (*dto.ChapterResponse, error)
	DeleteChapter(ctx context.Context, id uuid.UUID) error
	GetChapter(ctx context.Context, id, userID uuid.UUID) (*dto.ChapterDetailResponse, error)

	Enroll(ctx context.Context, courseID, userID uuid.UUID) (*dto.EnrollmentResponse, error)
	CancelEnrollment(ctx context.Context, courseID, userID uuid.UUID) error
	UpdateProgress(ctx context.Context, chapterID, userID uuid.UUID, input dto.ProgressInput) (*dto.ChapterProgressItem, error)
	CompleteChapter(ctx context.Context, chapterID, userID uuid.UUID) (*dto.CompletionResponse, error)
	GetCourseProgress(ctx context.Context, courseID, userID uuid.UUID) (*dto.CourseProgressResponse, error)
	GetUserEnrollments(ctx context.Context, userID uuid.UUID) ([]dto.EnrollmentResponse, error)
}

// Deps groups the collaborators of the course service. Xp is optional.
type Deps struct {
	Courses     repository.CourseRepository
	Enrollments repository.EnrollmentRepository
	Transactor  database.Transactor
	Xp          XpLedger
}

type courseService struct {
	Deps
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
	now    func() time.Time
}

func NewCourseService(deps Deps) CourseService {
	return &courseService{
		Deps:   deps,
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

func (s *courseService) cleanText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(text)))
}

func (s *courseService) cleanTags(tags []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(s.cleanText(tag))
		if _, dup := seen[tag]; dup || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// grant joins tx and skips awards the ledger already holds for this course,
// so leaving and rejoining a course pays nothing twice.
func (s *courseService) grant(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, activity entity.XpActivityType, description string) (*xpService.GrantResult, error) {
	if s.Xp == nil {
		return nil, nil
	}
	earned, err := s.Enrollments.WithTx(tx).XpEarned(ctx, userID, courseID, activity)
	if err != nil || earned {
		return nil, err
	}
	result, err := s.Xp.GrantXpTx(ctx, tx, xpService.GrantInput{
		UserID:      userID,
		Type:        activity,
		Reference:   entity.MustReference(entity.ReferenceCourse, courseID),
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award xp: %w", err)
	}
	return result, nil
}

func (s *courseService) announce(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult) {
	if s.Xp != nil && result != nil {
		s.Xp.AnnounceProgress(ctx, userID, result)
	}
}

func awarded(result *xpService.GrantResult) int {
	if result == nil {
		return 0
	}
	return result.Activity.Amount
}

func (s *courseService) ListCourses(ctx context.Context, query dto.ListCoursesQuery, includeUnpublished bool) (*dto.CourseListResponse, error) {
	page := max(query.Page, 1)
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	filter := repository.CourseFilter{
		Level:     entity.CourseLevel(query.Level),
		Category:  strings.TrimSpace(query.Category),
		Tags:      splitTags(query.Tags),
		Search:    query.Search,
		Featured:  query.Featured,
		Published: query.Published,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}
	if !includeUnpublished {
		published := true
		filter.Published = &published
	}

	courses, total, err := s.Courses.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	counts, err := s.Courses.ChapterCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	data := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		data = append(data, dto.ToCourseResponse(&courses[i], counts[courses[i].ID]))
	}
	return &dto.CourseListResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

// visibleCourse hides unpublished courses from learners behind a not found.
func (s *courseService) visibleCourse(ctx context.Context, id uuid.UUID, includeUnpublished bool) (*entity.Course, error) {
	course, err := s.Courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Published && !includeUnpublished {
		return nil, fmt.Errorf("course not found: %w", apperror.ErrNotFound)
	}
	return course, nil
}

func (s *courseService) GetCourse(ctx context.Context, id uuid.UUID, includeUnpublished bool) (*dto.CourseDetailResponse, error) {
	course, err := s.visibleCourse(ctx, id, includeUnpublished)
	if err != nil {
		return nil, err
	}
	res := dto.ToCourseDetailResponse(course)
	return &res, nil
}

func (s *courseService) courseSlug(ctx context.Context, explicit, title string, except uuid.UUID) (string, error) {
	courseSlug := strings.TrimSpace(explicit)
	if courseSlug == "" {
		courseSlug = slug.Make(title, maxSlugLength)
	}
	if !slug.Valid(courseSlug) {
		return "", fmt.Errorf("slug must be lowercase words joined by hyphens: %w", apperror.ErrBadRequest)
	}
	taken, err := s.Courses.SlugTaken(ctx, courseSlug, except)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("course slug %q already exists: %w", courseSlug, apperror.ErrConflict)
	}
	return courseSlug, nil
}

func (s *courseService) CreateCourse(ctx context.Context, input dto.CreateCourseInput) (*dto.CourseDetailResponse, error) {
	title := s.cleanText(input.Title)
	description := strings.TrimSpace(s.ugc.Sanitize(input.Description))
	if title == "" || description == "" {
		return nil, fmt.Errorf("title and description must not be empty: %w", apperror.ErrBadRequest)
	}
	courseSlug, err := s.courseSlug(ctx, input.Slug, title, uuid.Nil)
	if err != nil {
		return nil, err
	}

	course := &entity.Course{
		Title:       title,
		Slug:        courseSlug,
		Description: description,
		Thumbnail:   input.Thumbnail,
		Level:       input.Level,
		Duration:    input.Duration,
		Category:    input.Category,
		Tags:        s.cleanTags(input.Tags),
		Published:   input.Published,
		Featured:    input.Featured,
	}
	if err := s.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	log.Printf("Course %q created", course.Slug)

	return s.GetCourse(ctx, course.ID, true)
}

func (s *courseService) UpdateCourse(ctx context.Context, id uuid.UUID, input dto.UpdateCourseInput) (*dto.CourseDetailResponse, error) {
	course, err := s.Courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Title != nil {
		title := s.cleanText(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["title"] = title
	}
	if input.Slug != nil && *input.Slug != course.Slug {
		courseSlug, err := s.courseSlug(ctx, *input.Slug, course.Title, id)
		if err != nil {
			return nil, err
		}
		fields["slug"] = courseSlug
	}
	if input.Description != nil {
		description := strings.TrimSpace(s.ugc.Sanitize(*input.Description))
		if description == "" {
			return nil, fmt.Errorf("description must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["description"] = description
	}
	if input.Thumbnail != nil {
		fields["thumbnail"] = *input.Thumbnail
	}
	if input.Level != nil {
		fields["level"] = *input.Level
	}
	if input.Duration != nil {
		fields["duration"] = *input.Duration
	}
	if input.Category != nil {
		fields["category"] = *input.Category
	}
	if input.Tags != nil {
		fields["tags"] = s.cleanTags(input.Tags)
	}
	if input.Published != nil {
		fields["published"] = *input.Published
	}
	if input.Featured != nil {
		fields["featured"] = *input.Featured
	}

	if len(fields) > 0 {
		if err := s.Courses.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.GetCourse(ctx, id, true)
}

func (s *courseService) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if err := s.Courses.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Course %s deleted", id)
	return nil
}

func (s *courseService) AddChapter(ctx context.Context, courseID uuid.UUID, input dto.ChapterInput) (*dto.ChapterResponse, error) {
	if _, err := s.Courses.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	title := s.cleanText(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrBadRequest)
	}
	chapterSlug := strings.TrimSpace(input.Slug)
	if chapterSlug == "" {
		chapterSlug = slug.Make(title, maxSlugLength)
	}
	if !slug.Valid(chapterSlug) {
		return nil, fmt.Errorf("slug must be lowercase words joined by hyphens: %w", apperror.ErrBadRequest)
	}
	taken, err := s.Courses.ChapterSlugTaken(ctx, courseID, chapterSlug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("chapter slug %q already exists in this course: %w", chapterSlug, apperror.ErrConflict)
	}

	order := 0
	if input.Order != nil {
		order = *input.Order
	} else if order, err = s.Courses.NextChapterOrder(ctx, courseID); err != nil {
		return nil, err
	}

	chapter := &entity.Chapter{
		CourseID: courseID,
		Title:    title,
		Slug:     chapterSlug,
		Content:  s.cleanContent(input.Content),
		VideoURL: input.VideoURL,
		Order:    order,
		Duration: input.Duration,
	}
	if err := s.Courses.CreateChapter(ctx, chapter); err != nil {
		return nil, err
	}
	res := dto.ToChapterResponse(chapter)
	return &res, nil
}

func (s *courseService) cleanContent(content *string) *string {
	if content == nil {
		return nil
	}
	cleaned := strings.TrimSpace(s.ugc.Sanitize(*content))
	return &cleaned
}

func (s *courseService) UpdateChapter(ctx context.Context, id uuid.UUID, input dto.UpdateChapterInput) (*dto.ChapterResponse, error) {
	fields := map[string]any{}
	if input.Title != nil {
		title := s.cleanText(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["title"] = title
	}
	if input.Content != nil {
		fields["content"] = *s.cleanContent(input.Content)
	}
	if input.VideoURL != nil {
		fields["video_url"] = *input.VideoURL
	}
	if input.Order != nil {
		fields["sort_order"] = *input.Order
	}
	if input.Duration != nil {
		fields["duration"] = *input.Duration
	}

	if len(fields) > 0 {
		if err := s.Courses.UpdateChapterFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	chapter, err := s.Courses.FindChapter(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToChapterResponse(chapter)
	return &res, nil
}

func (s *courseService) DeleteChapter(ctx context.Context, id uuid.UUID) error {
	return s.Courses.DeleteChapter(ctx, id)
}
