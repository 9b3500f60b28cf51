package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/internal/service"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context) ([]models.AcademicSession, error)
	Get(ctx context.Context, id string) (*models.AcademicSession, error)
	GetActive(ctx context.Context) (*models.AcademicSession, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateSessionRequest) (*models.AcademicSession, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.CreateSessionRequest) (*models.AcademicSession, error)
	Activate(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*models.AcademicSession, error)
	Deactivate(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*models.AcademicSession, error)
}

type departmentService interface {
	List(ctx context.Context, actor *models.Actor) ([]models.Department, error)
	Get(ctx context.Context, id string) (*models.Department, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateDepartmentRequest) (*models.Department, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateDepartmentRequest, meta models.RequestMeta) (*models.Department, error)
}

type categoryService interface {
	List(ctx context.Context) ([]models.FileCategory, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateCategoryRequest) (*models.FileCategory, error)
}

type extensionService interface {
	List(ctx context.Context) (*service.ExtensionList, error)
	Add(ctx context.Context, actor *models.Actor, name string, meta models.RequestMeta) (*models.AllowedExtension, bool, error)
	Remove(ctx context.Context, actor *models.Actor, name string, meta models.RequestMeta) error
}

type browseService interface {
	PublicTree(ctx context.Context) (*dto.PublicTree, error)
	SessionBrowse(ctx context.Context, actor *models.Actor, sessionID, departmentID string) (*dto.SessionBrowseResponse, error)
}

// CatalogueHandler serves sessions, departments, categories, upload extensions and browsing.
type CatalogueHandler struct {
	sessions    sessionService
	departments departmentService
	categories  categoryService
	extensions  extensionService
	browse      browseService
}

// NewCatalogueHandler constructs the handler.
func NewCatalogueHandler(sessions sessionService, departments departmentService, categories categoryService,
	extensions extensionService, browse browseService) *CatalogueHandler {
	return &CatalogueHandler{
		sessions:    sessions,
		departments: departments,
		categories:  categories,
		extensions:  extensions,
		browse:      browse,
	}
}

// ListSessions godoc
// @Summary List academic sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *CatalogueHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// ActiveSession godoc
// @Summary Current active session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/active [get]
func (h *CatalogueHandler) ActiveSession(c *gin.Context) {
	session, err := h.sessions.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// GetSession godoc
// @Summary Get academic session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *CatalogueHandler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// CreateSession godoc
// @Summary Create academic session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *CatalogueHandler) CreateSession(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid session payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// UpdateSession godoc
// @Summary Update academic session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *CatalogueHandler) UpdateSession(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid session payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// ActivateSession godoc
// @Summary Make a session the only active one
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/activate [post]
func (h *CatalogueHandler) ActivateSession(c *gin.Context) {
	h.toggleSession(c, h.sessions.Activate)
}

// DeactivateSession godoc
// @Summary Deactivate a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/deactivate [post]
func (h *CatalogueHandler) DeactivateSession(c *gin.Context) {
	h.toggleSession(c, h.sessions.Deactivate)
}

func (h *CatalogueHandler) toggleSession(c *gin.Context, fn func(context.Context, *models.Actor, string, models.RequestMeta) (*models.AcademicSession, error)) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	session, err := fn(c.Request.Context(), actor, c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// ListDepartments godoc
// @Summary List departments
// @Description Staff see inactive departments as well.
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *CatalogueHandler) ListDepartments(c *gin.Context) {
	departments, err := h.departments.List(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, departments)
}

// GetDepartment godoc
// @Summary Get department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *CatalogueHandler) GetDepartment(c *gin.Context) {
	dept, err := h.departments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dept)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body dto.CreateDepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments [post]
func (h *CatalogueHandler) CreateDepartment(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department payload"))
		return
	}
	dept, err := h.departments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dept)
}

// UpdateDepartment godoc
// @Summary Update department head, status or session override
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body dto.UpdateDepartmentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [patch]
func (h *CatalogueHandler) UpdateDepartment(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department payload"))
		return
	}
	dept, err := h.departments.Update(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dept)
}

// ListCategories godoc
// @Summary List file categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CatalogueHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, categories)
}

// CreateCategory godoc
// @Summary Create file category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body dto.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /categories [post]
func (h *CatalogueHandler) CreateCategory(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid category payload"))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// ListExtensions godoc
// @Summary Effective upload extension allow list
// @Tags Extensions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /extensions [get]
func (h *CatalogueHandler) ListExtensions(c *gin.Context) {
	list, err := h.extensions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AddExtension godoc
// @Summary Allow an upload extension
// @Tags Extensions
// @Accept json
// @Produce json
// @Param payload body dto.ExtensionRequest true "Extension"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /extensions [post]
func (h *CatalogueHandler) AddExtension(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.ExtensionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid extension payload"))
		return
	}
	ext, created, err := h.extensions.Add(c.Request.Context(), actor, req.Name, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, ext, nil)
}

// RemoveExtension godoc
// @Summary Remove an administrator-added extension
// @Tags Extensions
// @Param name path string true "Extension"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /extensions/{name} [delete]
func (h *CatalogueHandler) RemoveExtension(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.extensions.Remove(c.Request.Context(), actor, c.Param("name"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PublicTree godoc
// @Summary Public content tree
// @Description Sessions, active departments and their public folders and files.
// @Tags Browse
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /browse [get]
func (h *CatalogueHandler) PublicTree(c *gin.Context) {
	tree, err := h.browse.PublicTree(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tree)
}

// SessionBrowse godoc
// @Summary Browse one session and department
// @Tags Browse
// @Produce json
// @Param session query string true "Session ID"
// @Param department query string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /browse/session [get]
func (h *CatalogueHandler) SessionBrowse(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session"))
	deptID := strings.TrimSpace(c.Query("department"))
	if sessionID == "" || deptID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session and department are required"))
		return
	}
	result, err := h.browse.SessionBrowse(c.Request.Context(), actorFromContext(c), sessionID, deptID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
