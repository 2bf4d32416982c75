package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

func (h *Handler) ListPractitioners(c *gin.Context) {
	list, err := h.directory.ListPractitioners(c.Request.Context(), c.Query("specialty"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	respondOK(c, h.alerts.RecentNotifications(c.Request.Context(), parseQueryInt(c, "limit", 50)))
}

func (h *Handler) PostNotification(c *gin.Context) {
	var payload map[string]any
	if !bindJSON(c, &payload) {
		return
	}
	respondCreated(c, h.alerts.PostNotification(c.Request.Context(), payload))
}

var welcomeMessages = map[notify.Channel]string{
	notify.ChannelDoctor:          "Connected to doctor dashboard",
	notify.ChannelCommunityWorker: "Connected to Asha worker dashboard",
}

// channelAliases keeps the dashboard paths older clients connect to.
var channelAliases = map[string]notify.Channel{
	"asha_worker": notify.ChannelCommunityWorker,
}

// Subscribe upgrades to a websocket on the role channel named in the path.
// Doctors and workers may only listen on their own channel.
func (h *Handler) Subscribe(c *gin.Context) {
	ch := notify.Channel(c.Param("channel"))
	if alias, ok := channelAliases[string(ch)]; ok {
		ch = alias
	}
	if !ch.IsValid() {
		respondError(c, http.StatusNotFound, "unknown channel")
		return
	}

	switch role := claimsFrom(c).Role; {
	case role == domain.RoleAdmin:
	case role == domain.RoleDoctor && ch == notify.ChannelDoctor:
	case role == domain.RoleCommunityWorker && ch == notify.ChannelCommunityWorker:
	default:
		respondError(c, http.StatusForbidden, "access denied")
		return
	}

	welcome := notify.NewEvent(ch, notify.EventMessage, map[string]any{"message": welcomeMessages[ch]})
	if err := h.hub.Serve(c.Writer, c.Request, ch, &welcome); err != nil {
		h.log.Warn("websocket subscribe failed",
			zap.String("channel", string(ch)),
			zap.Error(err),
		)
	}
}

func (h *Handler) ListAccounts(c *gin.Context) {
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		if !r.IsValid() {
			respondError(c, http.StatusBadRequest, "unknown role")
			return
		}
		role = &r
	}

	list, err := h.accounts.ListAccounts(c.Request.Context(), callerFrom(c), role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), callerFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.coord.DeleteAppointment(c.Request.Context(), callerFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
