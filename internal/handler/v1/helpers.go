package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse[any]{Data: data, Message: message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// errorStatus maps sentinel errors to responses. The first match wins. An
// empty message echoes err.Error().
var errorStatus = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{domain.ErrAccountNotFound, http.StatusNotFound, "", ""},
	{appointment.ErrAppointmentNotFound, http.StatusNotFound, "", ""},
	{consultation.ErrConsultationNotFound, http.StatusNotFound, "", ""},
	{practitioner.ErrPractitionerNotFound, http.StatusNotFound, "", ""},
	{prescription.ErrPrescriptionNotFound, http.StatusNotFound, "", ""},

	{domain.ErrAccountExists, http.StatusConflict, "ACCOUNT_EXISTS", ""},
	{appointment.ErrInvalidStatusTransition, http.StatusConflict, "INVALID_TRANSITION", ""},

	{appointment.ErrTimeSlotRequired, http.StatusBadRequest, "", ""},
	{appointment.ErrSpecialtyRequired, http.StatusBadRequest, "", ""},
	{practitioner.ErrSpecialtyRequired, http.StatusBadRequest, "", ""},
	{prescription.ErrMissingFileName, http.StatusBadRequest, "", ""},
	{prescription.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "", "invalid file type, allowed: pdf, doc, docx"},
	{prescription.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "", ""},

	{service.ErrProfileIncomplete, http.StatusPreconditionFailed, "PROFILE_INCOMPLETE", ""},
	{service.ErrServiceUnavailable, http.StatusServiceUnavailable, "", ""},
	{notify.ErrTransientNotification, http.StatusBadGateway, "SMS_FAILED", "failed to deliver sms"},

	{service.ErrForbidden, http.StatusForbidden, "", "access denied"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "", "invalid credentials"},
	{service.ErrAccountLocked, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "account temporarily locked"},
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	for _, m := range errorStatus {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		c.JSON(m.status, ErrorResponse{Error: msg, Code: m.code})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// callerFrom builds the service caller from what Authenticate stored.
func callerFrom(c *gin.Context) service.Caller {
	claims := claimsFrom(c)
	return service.Caller{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		IPAddress: c.ClientIP(),
		RequestID: c.GetString(ctxRequestID),
	}
}

func claimsFrom(c *gin.Context) *domain.Claims {
	if v, ok := c.Get(ctxClaims); ok {
		if claims, ok := v.(*domain.Claims); ok {
			return claims
		}
	}
	return &domain.Claims{}
}
