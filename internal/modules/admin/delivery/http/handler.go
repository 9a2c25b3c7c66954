package handler

import (
	"net/http"

	"anoa.com/studentcommunity/internal/modules/admin/dto"
	adminService "anoa.com/studentcommunity/internal/modules/admin/service"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// avatarFromForm opens the optional "avatar" part. The caller closes it.
func avatarFromForm(c *gin.Context) (*commonDto.AvatarFile, func(), error) {
	fileHeader, err := c.FormFile("avatar")
	if err != nil || fileHeader == nil {
		return nil, func() {}, nil
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, func() {}, apperror.New(http.StatusBadRequest, "failed to read avatar", apperror.ErrBadRequest)
	}
	return &commonDto.AvatarFile{Reader: file, FileName: fileHeader.Filename}, func() { _ = file.Close() }, nil
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var input dto.CreateUserInput
	if err := c.ShouldBind(&input); err != nil {
		response.BindError(c, err)
		return
	}

	avatar, closeAvatar, err := avatarFromForm(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer closeAvatar()

	res, err := h.adminService.CreateUser(c.Request.Context(), input, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.adminService.GetAllUsers(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateAdminUserInput
	if err := c.ShouldBind(&input); err != nil {
		response.BindError(c, err)
		return
	}

	avatar, closeAvatar, err := avatarFromForm(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer closeAvatar()

	res, err := h.adminService.UpdateUser(c.Request.Context(), id, input, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}
