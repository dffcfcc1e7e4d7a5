package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/application"
	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-billing/pkg/response"
	"github.com/oksasatya/go-ddd-billing/pkg/validation"
)

type UserService interface {
	CreateUser(ctx context.Context, in application.CreateUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch entity.UserUpdate) (*entity.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.UserDocument, error)
}

// UserUnindexer is implemented by searchers that can drop a deleted user's document.
type UserUnindexer interface {
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	Svc    UserService
	Search UserSearcher
	Logger *logrus.Logger
}

// NewUserHandler builds the handler. search may be nil when Elasticsearch is not configured.
func NewUserHandler(svc UserService, search UserSearcher, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Search: search, Logger: logger}
}

type createUserRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required,personname"`
	Age   *int   `json:"age" binding:"omitempty,age"`
}

type updateUserRequest struct {
	Email *string              `json:"email"`
	Name  *string              `json:"name" binding:"omitempty,personname"`
	Age   entity.Optional[int] `json:"age"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,notblank"`
	Size int    `form:"size,default=10"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Age       *int      `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *entity.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), application.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
		Age:   req.Age,
	})
	if err != nil {
		respondError(c, h.Logger, err, toUserResponse(u))
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", validation.ToDetails(err))
		return
	}
	users, total, err := h.Svc.ListUsers(c.Request.Context(), q.limit(), q.offset())
	if err != nil {
		respondError[any](c, h.Logger, err, nil)
		return
	}
	out := make([]*userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	response.Success(c, http.StatusOK, out, "users fetched", response.NewPagination(q.Page, q.PageSize, total))
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", validation.ToDetails(err))
		return
	}
	if h.Search == nil {
		response.Success(c, http.StatusOK, []search.UserDocument{}, "search is not configured", gin.H{"count": 0})
		return
	}
	hits, err := h.Search.Search(c.Request.Context(), strings.TrimSpace(q.Q), search.ClampSize(q.Size))
	if err != nil {
		h.Logger.WithError(err).WithField("q", q.Q).Error("user search failed")
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.Svc.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError[any](c, h.Logger, err, nil)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user fetched", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), id, entity.UserUpdate{
		Email: req.Email,
		Name:  req.Name,
		Age:   req.Age,
	})
	if err != nil {
		respondError(c, h.Logger, err, toUserResponse(u))
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
		respondError[any](c, h.Logger, err, nil)
		return
	}
	h.unindex(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

// unindex is best effort; failures are logged and the delete still succeeds.
func (h *UserHandler) unindex(ctx context.Context, id uuid.UUID) {
	ux, ok := h.Search.(UserUnindexer)
	if !ok {
		return
	}
	if err := ux.Delete(ctx, id.String()); err != nil {
		h.Logger.WithError(err).WithField("user_id", id).Warn("remove user from search index failed")
	}
}
