package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
)

type bookAppointmentRequest struct {
	TimeSlot     string `json:"time_slot" binding:"required"`
	TypeOfDoctor string `json:"type_of_doctor" binding:"required"`
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.coord.BookAppointment(c.Request.Context(), callerFrom(c), appointment.BookAppointmentCommand{
		PatientID:    callerFrom(c).AccountID,
		TimeSlot:     req.TimeSlot,
		TypeOfDoctor: req.TypeOfDoctor,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		s := appointment.Status(raw)
		q.Status = &s
	}

	page, err := h.coord.ListAppointments(c.Request.Context(), callerFrom(c), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *Handler) ApproveAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.coord.ApproveAppointment(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, a, "appointment approved")
}

func (h *Handler) UploadPrescription(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondServiceError(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer f.Close()

	a, err := h.coord.UploadPrescription(c.Request.Context(), callerFrom(c), id, &prescription.Upload{
		Name:    fh.Filename,
		Size:    fh.Size,
		Content: f,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, a, "prescription uploaded successfully")
}

func (h *Handler) ViewPrescription(c *gin.Context) {
	h.servePrescription(c, false)
}

func (h *Handler) DownloadPrescription(c *gin.Context) {
	h.servePrescription(c, true)
}

func (h *Handler) servePrescription(c *gin.Context, asAttachment bool) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	dl, err := h.coord.FetchPrescription(c.Request.Context(), callerFrom(c), id, asAttachment)
	if err != nil {
		if errors.Is(err, prescription.ErrPrescriptionNotFound) {
			respondError(c, http.StatusNotFound, "no prescription uploaded for this appointment")
			return
		}
		respondServiceError(c, err)
		return
	}
	defer dl.Content.Close()

	disposition := "inline"
	if asAttachment {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Content, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, dl.FileName),
	})
}
