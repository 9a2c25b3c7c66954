package http

import (
	"net/http"

	"anoa.com/studentcommunity/internal/modules/category/dto"
	categoryService "anoa.com/studentcommunity/internal/modules/category/service"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	service categoryService.CategoryService
}

func NewCategoryHandler(service categoryService.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// RegisterRoutes mounts the read routes for members and the write routes on
// an admin-only group.
func (h *CategoryHandler) RegisterRoutes(categories, admin gin.IRoutes) {
	categories.GET("", h.ListCategories)
	categories.GET("/slug/:slug", h.GetCategoryBySlug)
	categories.GET("/:id", h.GetCategory)

	admin.GET("", h.ListAllCategories)
	admin.POST("", h.CreateCategory)
	admin.PUT("/reorder", h.ReorderCategories)
	admin.PUT("/:id", h.UpdateCategory)
	admin.DELETE("/:id", h.DeleteCategory)
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	res, err := h.service.ListCategories(c.Request.Context(), false)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *CategoryHandler) ListAllCategories(c *gin.Context) {
	var query dto.ListCategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.ListCategories(c.Request.Context(), query.IncludeInactive)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CategoryHandler) GetCategoryBySlug(c *gin.Context) {
	res, err := h.service.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var input dto.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.CreateCategory(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.UpdateCategory(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CategoryHandler) ReorderCategories(c *gin.Context) {
	var input dto.ReorderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.ReorderCategories(c.Request.Context(), input.IDs)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
