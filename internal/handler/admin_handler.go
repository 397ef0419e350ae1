package handler

import (
	"errors"
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责管理员接口：用户、配额、问答记录与简历上传。
type AdminHandler struct {
	adminService  service.AdminService
	userService   service.UserService
	resumeService service.ResumeService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService, userService service.UserService, resumeService service.ResumeService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		userService:   userService,
		resumeService: resumeService,
	}
}

// ListUsers 处理分页获取用户列表的请求。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	userList, err := h.adminService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		log.Error("ListUsers: Failed to list users", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, userList)
}

// CreateUser 创建一个新账号。
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req service.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateUser: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		log.Warnf("CreateUser: failed for '%s': %v", req.Username, err)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": user})
}

// SetMaxMessagesRequest 定义了修改提问上限 API 的请求体结构。
type SetMaxMessagesRequest struct {
	MaxMessages *int `json:"maxMessages" binding:"required,min=0"`
}

// SetMaxMessages 修改指定用户的提问上限。
func (h *AdminHandler) SetMaxMessages(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var req SetMaxMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "maxMessages must be a non-negative integer")
		return
	}

	if err := h.adminService.SetMaxMessages(c.Request.Context(), uint(userID), *req.MaxMessages); err != nil {
		log.Warnf("SetMaxMessages: failed for user %d: %v", userID, err)
		respondServiceError(c, err)
		return
	}

	if admin, ok := middleware.CurrentUser(c); ok {
		log.Infof("Admin user '%s' set max messages of user %d to %d", admin.Username, userID, *req.MaxMessages)
	}
	respondOK(c, gin.H{"userId": userID, "maxMessages": *req.MaxMessages})
}

// GetAllConversations handles the request to get all conversation turns.
func (h *AdminHandler) GetAllConversations(c *gin.Context) {
	var userID *uint
	if userIDStr := c.Query("userid"); userIDStr != "" {
		id, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid user ID format")
			return
		}
		uid := uint(id)
		userID = &uid
	}

	var startTime, endTime *time.Time
	timeLayout := "2006-01-02"
	if startDateStr := c.Query("start_date"); startDateStr != "" {
		t, err := time.ParseInLocation(timeLayout, startDateStr, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid start_date format, use YYYY-MM-DD")
			return
		}
		startTime = &t
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		t, err := time.ParseInLocation(timeLayout, endDateStr, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid end_date format, use YYYY-MM-DD")
			return
		}
		// Include the whole day
		t = t.Add(24*time.Hour - time.Nanosecond)
		endTime = &t
	}

	conversations, err := h.adminService.GetAllConversations(c.Request.Context(), userID, startTime, endTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, conversations)
}

// UploadResume 接收简历文件（表单字段 file）并触发离线入库。
func (h *AdminHandler) UploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing file")
		return
	}
	if fileHeader.Size > service.MaxResumeSize {
		respondError(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot read file")
		return
	}
	defer file.Close()

	task, err := h.resumeService.UploadResume(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFileType) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("UploadResume: failed", err)
		respondError(c, http.StatusInternalServerError, "failed to upload resume")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "resume accepted for indexing", "data": task})
}
