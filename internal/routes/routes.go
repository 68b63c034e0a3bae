package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	adminControllers "github.com/c14220110/klinik-booking-backend/internal/administrasi/controllers"
	adminModels "github.com/c14220110/klinik-booking-backend/internal/administrasi/models"
	adminServices "github.com/c14220110/klinik-booking-backend/internal/administrasi/services"
	bookingControllers "github.com/c14220110/klinik-booking-backend/internal/booking/controllers"
	bookingServices "github.com/c14220110/klinik-booking-backend/internal/booking/services"
	"github.com/c14220110/klinik-booking-backend/internal/common/middlewares"
	dokterControllers "github.com/c14220110/klinik-booking-backend/internal/dokter/controllers"
	dokterServices "github.com/c14220110/klinik-booking-backend/internal/dokter/services"
	transferControllers "github.com/c14220110/klinik-booking-backend/internal/transfer/controllers"
	"github.com/c14220110/klinik-booking-backend/ws"
)

// Checker memeriksa satu dependensi untuk /healthz.
type Checker func(ctx context.Context) error

// Deps berisi service yang sudah dirakit oleh main.
type Deps struct {
	Admin       *adminServices.AdministrasiService
	Booking     *bookingServices.BookingService
	Dokter      *dokterServices.DokterService
	Transfer    transferControllers.Transferer
	Pendaftaran transferControllers.PasienRegistrar

	Hub      *ws.Hub
	Gatherer prometheus.Gatherer
	Checks   map[string]Checker

	JWTSecret string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

// Init menginisialisasi semua routes menggunakan Echo framework
func Init(e *echo.Echo, d Deps) {
	e.Use(middlewares.Logger(d.Logger))
	e.Use(middlewares.Recovery(d.Logger))
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())

	adminController := adminControllers.NewAdministrasiController(d.Admin, d.JWTSecret, d.TokenTTL, d.Logger)
	var hub bookingControllers.Publisher
	if d.Hub != nil {
		hub = d.Hub
	}
	bookingController := bookingControllers.NewBookingController(d.Booking, hub, d.Logger)
	dokterController := dokterControllers.NewDokterController(d.Dokter, d.Logger)
	transferController := transferControllers.NewTransferController(d.Transfer, d.Pendaftaran, d.Logger)

	e.GET("/healthz", health(d.Checks))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")

	// Website publik
	api.POST("/booking", bookingController.CreateBooking)

	// **Grup Admin**
	api.POST("/admin/login", adminController.Login) // Tidak pakai JWT
	admin := api.Group("/admin", middlewares.JWTMiddleware(d.JWTSecret), middlewares.RequireRole(adminModels.RoleAdmin))

	booking := admin.Group("/booking")
	booking.GET("/:id", bookingController.GetBooking)
	booking.PUT("/:id/status", bookingController.UpdateStatus)
	booking.POST("/:id/transfer", transferController.TransferBooking)
	booking.POST("/:id/reconcile", transferController.ReconcileBooking)
	booking.POST("/:id/pasien-simrs", transferController.DaftarkanPasien)

	admin.PUT("/dokter/:id/mapping", dokterController.UpdateMapping)
	admin.GET("/nik/:nik", transferController.DecodeNIK)

	// Dashboard admin berlangganan event booking lewat websocket.
	if d.Hub != nil {
		e.GET("/ws", ws.ServeWS(d.Hub))
	}
}

func health(checks map[string]Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		return c.JSON(status, map[string]interface{}{
			"status":  status,
			"message": http.StatusText(status),
			"data":    result,
		})
	}
}
