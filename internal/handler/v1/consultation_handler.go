package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/triage"
)

// consultationRequest accepts either a symptom list or the comma separated
// text typed into the chatbot.
type consultationRequest struct {
	Symptoms []string `json:"symptoms"`
	Text     string   `json:"text"`
}

type consultationResponse struct {
	*service.ConsultationResult
	JoinURL string `json:"join_url"`
}

func (h *Handler) RequestConsultation(c *gin.Context) {
	var req consultationRequest
	if !bindJSON(c, &req) {
		return
	}

	symptoms := req.Symptoms
	if len(symptoms) == 0 && strings.TrimSpace(req.Text) != "" {
		symptoms = triage.ParseSymptoms(req.Text)
	}

	res, err := h.coord.RequestConsultation(c.Request.Context(), callerFrom(c), symptoms)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, consultationResponse{
		ConsultationResult: res,
		JoinURL:            joinURL(c, res.ConsultationID.String()),
	})
}

// joinURL points at the join endpoint on the host the client used.
func joinURL(c *gin.Context, consultationID string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/v1/consultations/" + consultationID + "/join"
}

func (h *Handler) ConsultationStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	status, err := h.coord.ConsultationStatus(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, status)
}

func (h *Handler) JoinAsPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.coord.JoinAsPatient(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) JoinAsDoctor(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.coord.JoinAsDoctor(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

type alertRequest struct {
	DoctorPhoneNumber string `json:"doctor_phone_number" binding:"required"`
	PatientName       string `json:"patient_name" binding:"required"`
}

func (h *Handler) SendSMSAlert(c *gin.Context) {
	var req alertRequest
	if !bindJSON(c, &req) {
		return
	}

	sid, err := h.alerts.SendSMSAlert(c.Request.Context(), req.DoctorPhoneNumber, req.PatientName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, gin.H{"message_sid": sid}, "sms sent")
}
