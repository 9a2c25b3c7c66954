package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/course/dto"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// percent rounds to the nearest whole percentage.
func percent(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func (s *courseService) Enroll(ctx context.Context, courseID, userID uuid.UUID) (*dto.EnrollmentResponse, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, fmt.Errorf("course is not open for enrollment: %w", apperror.ErrBadRequest)
	}
	existing, err := s.Enrollments.Find(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already enrolled in this course: %w", apperror.ErrConflict)
	}

	enrollment := &entity.Enrollment{UserID: userID, CourseID: courseID}
	var award *xpService.GrantResult
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.Enrollments.WithTx(tx).Create(ctx, enrollment); err != nil {
			return err
		}
		result, err := s.grant(ctx, tx, userID, courseID, entity.XpCourseEnrolled, fmt.Sprintf("Enrolled in %q", course.Title))
		award = result
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, userID, award)

	return &dto.EnrollmentResponse{
		ID:         enrollment.ID,
		Course:     dto.ToCourseResponse(course, int64(len(course.Chapters))),
		Progress:   enrollment.Progress,
		EnrolledAt: enrollment.CreatedAt,
		XpAwarded:  awarded(award),
	}, nil
}

// CancelEnrollment drops the enrollment and the learner's chapter progress.
// XP already earned stays in the ledger.
func (s *courseService) CancelEnrollment(ctx context.Context, courseID, userID uuid.UUID) error {
	if _, err := s.Courses.FindByID(ctx, courseID); err != nil {
		return err
	}
	return s.Enrollments.Delete(ctx, userID, courseID)
}

// enrolledChapter loads a chapter the user may study.
func (s *courseService) enrolledChapter(ctx context.Context, chapterID, userID uuid.UUID) (*entity.Chapter, error) {
	chapter, err := s.Courses.FindChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.Enrollments.Find(ctx, userID, chapter.CourseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enroll in the course to track progress: %w", apperror.ErrForbidden)
	}
	return chapter, nil
}

func (s *courseService) UpdateProgress(ctx context.Context, chapterID, userID uuid.UUID, input dto.ProgressInput) (*dto.ChapterProgressItem, error) {
	if input.LastPosition < 0 {
		return nil, fmt.Errorf("position must not be negative: %w", apperror.ErrBadRequest)
	}
	chapter, err := s.enrolledChapter(ctx, chapterID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Enrollments.SavePosition(ctx, userID, chapterID, input.LastPosition); err != nil {
		return nil, err
	}

	progress, err := s.Enrollments.FindProgress(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}
	item := dto.ToProgressItem(chapter, progress)
	return &item, nil
}

// CompleteChapter marks the chapter done and recomputes the course
// percentage. Reaching 100% stamps the enrollment and pays the completion
// award in the same transaction.
func (s *courseService) CompleteChapter(ctx context.Context, chapterID, userID uuid.UUID) (*dto.CompletionResponse, error) {
	chapter, err := s.enrolledChapter(ctx, chapterID, userID)
	if err != nil {
		return nil, err
	}
	course, err := s.Courses.FindByID(ctx, chapter.CourseID)
	if err != nil {
		return nil, err
	}

	res := &dto.CompletionResponse{ChapterID: chapterID, CourseID: course.ID}
	var award *xpService.GrantResult
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		enrollments := s.Enrollments.WithTx(tx)
		enrollment, err := enrollments.FindForUpdate(ctx, userID, course.ID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return fmt.Errorf("enroll in the course to track progress: %w", apperror.ErrForbidden)
		}

		now := s.now()
		if err := enrollments.MarkCompleted(ctx, userID, chapterID, now); err != nil {
			return err
		}
		completed, err := enrollments.CountCompleted(ctx, userID, course.ID)
		if err != nil {
			return err
		}
		counts, err := s.Courses.WithTx(tx).ChapterCounts(ctx, []uuid.UUID{course.ID})
		if err != nil {
			return err
		}

		res.Progress = percent(completed, counts[course.ID])
		var completedAt *time.Time
		if res.Progress >= 100 {
			completedAt = enrollment.CompletedAt
			if completedAt == nil {
				completedAt = &now
			}
			res.CourseCompleted = true
		}
		if err := enrollments.SetProgress(ctx, enrollment.ID, res.Progress, completedAt); err != nil {
			return err
		}

		if !res.CourseCompleted {
			return nil
		}
		award, err = s.grant(ctx, tx, userID, course.ID, entity.XpCourseDone, fmt.Sprintf("Completed %q", course.Title))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, userID, award)

	res.XpAwarded = awarded(award)
	return res, nil
}

func (s *courseService) GetChapter(ctx context.Context, id, userID uuid.UUID) (*dto.ChapterDetailResponse, error) {
	chapter, err := s.Courses.FindChapter(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleCourse(ctx, chapter.CourseID, false); err != nil {
		return nil, err
	}

	res := &dto.ChapterDetailResponse{ChapterResponse: dto.ToChapterResponse(chapter)}
	progress, err := s.Enrollments.FindProgress(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		item := dto.ToProgressItem(chapter, progress)
		res.Progress = &item
	}
	return res, nil
}

func (s *courseService) GetCourseProgress(ctx context.Context, courseID, userID uuid.UUID) (*dto.CourseProgressResponse, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.Enrollments.Find(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("not enrolled in this course: %w", apperror.ErrNotFound)
	}
	progress, err := s.Enrollments.ProgressByChapter(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	res := &dto.CourseProgressResponse{
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		EnrolledAt:    enrollment.CreatedAt,
		Progress:      enrollment.Progress,
		CompletedAt:   enrollment.CompletedAt,
		TotalChapters: len(course.Chapters),
		Chapters:      make([]dto.ChapterProgressItem, 0, len(course.Chapters)),
	}
	for i := range course.Chapters {
		item := dto.ToProgressItem(&course.Chapters[i], progress[course.Chapters[i].ID])
		if item.Completed {
			res.CompletedChapters++
		}
		res.Chapters = append(res.Chapters, item)
	}
	return res, nil
}

func (s *courseService) GetUserEnrollments(ctx context.Context, userID uuid.UUID) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	counts, err := s.Courses.ChapterCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		e := &enrollments[i]
		out = append(out, dto.EnrollmentResponse{
			ID:          e.ID,
			Course:      dto.ToCourseResponse(&e.Course, counts[e.CourseID]),
			Progress:    e.Progress,
			CompletedAt: e.CompletedAt,
			EnrolledAt:  e.CreatedAt,
		})
	}
	return out, nil
}
