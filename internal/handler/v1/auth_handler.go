package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`

	Specialty       string `json:"specialty"`
	AreaOfOperation string `json:"area_of_operation"`
	WorkerID        string `json:"worker_id"`
}

func (r registerRequest) command() service.RegisterCommand {
	return service.RegisterCommand{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		Phone:           r.Phone,
		Specialty:       r.Specialty,
		AreaOfOperation: r.AreaOfOperation,
		WorkerID:        r.WorkerID,
	}
}

func (h *Handler) RegisterPatient(c *gin.Context) {
	h.register(c, h.auth.RegisterPatient)
}

func (h *Handler) RegisterDoctor(c *gin.Context) {
	h.register(c, h.auth.RegisterDoctor)
}

func (h *Handler) RegisterCommunityWorker(c *gin.Context) {
	h.register(c, h.auth.RegisterCommunityWorker)
}

type registerFunc func(ctx context.Context, cmd service.RegisterCommand) (*domain.Account, error)

func (h *Handler) register(c *gin.Context, fn registerFunc) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := fn(c.Request.Context(), req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, a, "registration successful")
}

type loginRequest struct {
	Username string      `json:"username" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"`
}

type loginResponse struct {
	*domain.TokenPair
	Account *domain.Account `json:"account"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Role != "" && !req.Role.IsValid() {
		respondError(c, http.StatusBadRequest, "unknown role")
		return
	}

	pair, a, err := h.auth.Login(c.Request.Context(), service.LoginCommand{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	}, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, loginResponse{TokenPair: pair, Account: a})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), callerFrom(c).AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, nil, "password updated")
}

type profileRequest struct {
	Phone           *string `json:"phone"`
	Address         *string `json:"address"`
	Gender          *string `json:"gender"`
	Age             *int    `json:"age"`
	BloodGroup      *string `json:"blood_group"`
	DateOfBirth     *string `json:"date_of_birth"`
	AreaOfOperation *string `json:"area_of_operation"`
	WorkerID        *string `json:"worker_id"`
}

func (h *Handler) GetProfile(c *gin.Context) {
	a, err := h.accounts.GetProfile(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := &domain.ProfileUpdate{
		Phone:           req.Phone,
		Address:         req.Address,
		Gender:          req.Gender,
		Age:             req.Age,
		BloodGroup:      req.BloodGroup,
		AreaOfOperation: req.AreaOfOperation,
		WorkerID:        req.WorkerID,
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, ValidationErrorResponse{
				Error:  "validation failed",
				Fields: []string{"date_of_birth must be YYYY-MM-DD"},
			})
			return
		}
		upd.DateOfBirth = &dob
	}

	a, err := h.accounts.UpdateProfile(c.Request.Context(), callerFrom(c), upd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, a, "profile updated successfully")
}
