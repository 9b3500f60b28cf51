package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, actor *models.Actor) (*models.ProfileView, error)
	Update(ctx context.Context, actor *models.Actor, req dto.UpdateProfileRequest) (*models.ProfileView, error)
	UpdateAccount(ctx context.Context, actor *models.Actor, req dto.UpdateAccountRequest) (*models.User, error)
}

type notificationService interface {
	ListUnread(ctx context.Context, actor *models.Actor) ([]models.Notification, error)
	MarkRead(ctx context.Context, actor *models.Actor, id string) error
}

// AccountHandler serves the caller's own profile and notifications.
type AccountHandler struct {
	profiles      profileService
	notifications notificationService
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(profiles profileService, notifications notificationService) *AccountHandler {
	return &AccountHandler{profiles: profiles, notifications: notifications}
}

// Profile godoc
// @Summary Own profile
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *AccountHandler) Profile(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Description The department is fixed once set unless the caller is staff.
// @Tags Account
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /profile [patch]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateAccount godoc
// @Summary Update own username, email or name
// @Tags Account
// @Accept json
// @Produce json
// @Param payload body dto.UpdateAccountRequest true "Account changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profile/account [patch]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid account payload"))
		return
	}
	user, err := h.profiles.UpdateAccount(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Notifications godoc
// @Summary Unread notifications
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *AccountHandler) Notifications(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	items, err := h.notifications.ListUnread(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// MarkNotificationRead godoc
// @Summary Mark a notification read
// @Tags Account
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *AccountHandler) MarkNotificationRead(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
