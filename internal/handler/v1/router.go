package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/realtime"
)

type RouterDeps struct {
	Config *config.Config

	Auth         *service.AuthService
	Accounts     *service.AccountService
	Coordination *service.CoordinationService
	Directory    *service.DirectoryService
	Alerts       *service.AlertService

	JWT     *auth.JWTManager
	Hub     *realtime.Hub
	Metrics *metrics.Collector
	Log     *zap.Logger
}

type Handler struct {
	auth      *service.AuthService
	accounts  *service.AccountService
	coord     *service.CoordinationService
	directory *service.DirectoryService
	alerts    *service.AlertService
	hub       *realtime.Hub
	log       *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{
		auth:      d.Auth,
		accounts:  d.Accounts,
		coord:     d.Coordination,
		directory: d.Directory,
		alerts:    d.Alerts,
		hub:       d.Hub,
		log:       d.Log.Named("http"),
	}

	r := gin.New()
	r.MaxMultipartMemory = d.Config.Storage.MaxUploadBytes
	r.Use(
		RequestID(),
		Recovery(h.log),
		Logger(h.log),
		Metrics(d.Metrics),
		CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Config.App.Version})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api/v1", RateLimit(d.Config.RateLimit.RequestsPerSecond, d.Config.RateLimit.BurstSize))

	authGroup := api.Group("/auth", AuthRateLimit(d.Config.RateLimit.AuthRequestsPerMinute))
	authGroup.POST("/register/patient", h.RegisterPatient)
	authGroup.POST("/register/doctor", h.RegisterDoctor)
	authGroup.POST("/register/community-worker", h.RegisterCommunityWorker)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)

	secured := api.Group("", Authenticate(d.JWT))

	secured.GET("/profile", h.GetProfile)
	secured.PUT("/profile", h.UpdateProfile)
	secured.POST("/profile/password", h.ChangePassword)

	consultations := secured.Group("/consultations")
	consultations.POST("", RequireRole(domain.RolePatient), h.RequestConsultation)
	consultations.GET("/:id/status", h.ConsultationStatus)
	consultations.POST("/:id/join", h.JoinAsPatient)
	consultations.POST("/:id/doctor-join", RequireRole(domain.RoleDoctor), h.JoinAsDoctor)

	appointments := secured.Group("/appointments")
	appointments.GET("", h.ListAppointments)
	appointments.POST("", RequireRole(domain.RolePatient), h.BookAppointment)
	appointments.POST("/:id/approve", RequireRole(domain.RoleDoctor), h.ApproveAppointment)
	appointments.POST("/:id/prescription", RequireRole(domain.RoleDoctor), h.UploadPrescription)
	appointments.GET("/:id/prescription", h.ViewPrescription)
	appointments.GET("/:id/prescription/download", RequireRole(domain.RoleCommunityWorker), h.DownloadPrescription)

	secured.GET("/practitioners", h.ListPractitioners)

	secured.GET("/notifications", h.ListNotifications)
	secured.POST("/notifications", h.PostNotification)
	secured.POST("/sms-alerts", h.SendSMSAlert)

	secured.GET("/ws/:channel", RequireRole(domain.RoleDoctor, domain.RoleCommunityWorker, domain.RoleAdmin), h.Subscribe)

	admin := secured.Group("/admin", RequireRole(domain.RoleAdmin))
	admin.GET("/accounts", h.ListAccounts)
	admin.DELETE("/accounts/:id", h.DeleteAccount)
	admin.DELETE("/appointments/:id", h.DeleteAppointment)

	return r
}
