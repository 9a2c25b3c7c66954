package http

import (
	"net/http"

	"anoa.com/studentcommunity/internal/modules/course/dto"
	courseService "anoa.com/studentcommunity/internal/modules/course/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	service courseService.CourseService
}

func NewCourseHandler(service courseService.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// RegisterRoutes mounts the learner routes and the admin-only catalog routes.
func (h *CourseHandler) RegisterRoutes(courses, chapters, enrollments, adminCourses, adminChapters gin.IRoutes) {
	courses.GET("", h.ListCourses)
	courses.GET("/:id", h.GetCourse)
	courses.POST("/:id/enroll", h.Enroll)
	courses.DELETE("/:id/enroll", h.CancelEnrollment)
	courses.GET("/:id/progress", h.GetCourseProgress)

	chapters.GET("/:id", h.GetChapter)
	chapters.PATCH("/:id/progress", h.UpdateProgress)
	chapters.POST("/:id/complete", h.CompleteChapter)

	enrollments.GET("/me", h.GetMyEnrollments)

	adminCourses.GET("", h.ListAllCourses)
	adminCourses.POST("", h.CreateCourse)
	adminCourses.GET("/:id", h.GetAnyCourse)
	adminCourses.PATCH("/:id", h.UpdateCourse)
	adminCourses.DELETE("/:id", h.DeleteCourse)
	adminCourses.POST("/:id/chapters", h.AddChapter)

	adminChapters.PATCH("/:id", h.UpdateChapter)
	adminChapters.DELETE("/:id", h.DeleteChapter)
}

func (h *CourseHandler) list(c *gin.Context, includeUnpublished bool) {
	var query dto.ListCoursesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.ListCourses(c.Request.Context(), query, includeUnpublished)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	h.list(c, false)
}

func (h *CourseHandler) ListAllCourses(c *gin.Context) {
	h.list(c, true)
}

func (h *CourseHandler) get(c *gin.Context, includeUnpublished bool) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetCourse(c.Request.Context(), id, includeUnpublished)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	h.get(c, false)
}

func (h *CourseHandler) GetAnyCourse(c *gin.Context) {
	h.get(c, true)
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var input dto.CreateCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.CreateCourse(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateCourse(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

func (h *CourseHandler) AddChapter(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.ChapterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.AddChapter(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CourseHandler) UpdateChapter(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateChapterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateChapter(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) DeleteChapter(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteChapter(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chapter deleted successfully"})
}

func (h *CourseHandler) GetChapter(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetChapter(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Enroll(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CourseHandler) CancelEnrollment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.CancelEnrollment(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Enrollment cancelled"})
}

func (h *CourseHandler) GetCourseProgress(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetCourseProgress(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) UpdateProgress(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.ProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateProgress(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) CompleteChapter(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.CompleteChapter(c.Request.Context(), id, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) GetMyEnrollments(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetUserEnrollments(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
