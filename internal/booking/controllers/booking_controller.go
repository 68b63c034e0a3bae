package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/klinik-booking-backend/internal/booking/models"
	"github.com/c14220110/klinik-booking-backend/internal/booking/services"
	"github.com/c14220110/klinik-booking-backend/ws"
)

// Publisher menerima event perubahan booking.
type Publisher interface {
	Publish(eventType string, data interface{})
}

type BookingController struct {
	Service *services.BookingService
	Events  Publisher
	Logger  zerolog.Logger
}

func NewBookingController(service *services.BookingService, events Publisher, logger zerolog.Logger) *BookingController {
	return &BookingController{Service: service, Events: events, Logger: logger}
}

type CreateBookingRequest struct {
	NamaPasien string `json:"nama_pasien"`
	NIK        string `json:"nik"`
	Alamat     string `json:"alamat"`
	NoTelp     string `json:"no_telp"`
	Email      string `json:"email"`
	IDDokter   int64  `json:"id_dokter"`
	Tanggal    string `json:"tanggal"`
	Jam        string `json:"jam"`
	Keluhan    string `json:"keluhan"`
	KdPj       string `json:"kd_pj"`
}

type UpdateStatusRequest struct {
	Status       string `json:"status"`
	CatatanAdmin string `json:"catatan_admin"`
}

// CreateBooking menerima booking dari website publik.
func (bc *BookingController) CreateBooking(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload",
			"data":    nil,
		})
	}
	tanggal, err := time.Parse("2006-01-02", req.Tanggal)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "tanggal must be in YYYY-MM-DD format",
			"data":    nil,
		})
	}

	booking, err := bc.Service.Create(c.Request().Context(), models.BookingBaru{
		NamaPasien: req.NamaPasien,
		NIK:        strings.TrimSpace(req.NIK),
		Alamat:     req.Alamat,
		NoTelp:     req.NoTelp,
		Email:      req.Email,
		IDDokter:   req.IDDokter,
		Tanggal:    tanggal,
		Jam:        req.Jam,
		Keluhan:    req.Keluhan,
		KdPj:       req.KdPj,
	})
	if err != nil {
		if errors.Is(err, services.ErrDataTidakValid) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"status":  http.StatusBadRequest,
				"message": err.Error(),
				"data":    nil,
			})
		}
		bc.Logger.Error().Err(err).Msg("create booking")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to create booking",
			"data":    nil,
		})
	}

	bc.publish(booking)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  http.StatusCreated,
		"message": "Booking berhasil dibuat",
		"data":    booking,
	})
}

// GetBooking mengembalikan detail booking.
func (bc *BookingController) GetBooking(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "id must be a number",
			"data":    nil,
		})
	}
	booking, err := bc.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return bc.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Booking retrieved successfully",
		"data":    booking,
	})
}

// UpdateStatus memindahkan status booking. Status COMPLETED di sini adalah
// penyelesaian manual tanpa transfer ke SIMRS.
func (bc *BookingController) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "id must be a number",
			"data":    nil,
		})
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload",
			"data":    nil,
		})
	}
	status := models.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Unknown status " + req.Status,
			"data":    nil,
		})
	}

	booking, err := bc.Service.UpdateStatus(c.Request().Context(), id, status, req.CatatanAdmin)
	if err != nil {
		return bc.fail(c, err)
	}

	bc.publish(booking)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Status booking diperbarui",
		"data":    booking,
	})
}

func (bc *BookingController) publish(b *models.Booking) {
	if bc.Events == nil {
		return
	}
	bc.Events.Publish(ws.EventBookingStatus, map[string]interface{}{
		"id":           b.ID,
		"kode_booking": b.KodeBooking,
		"status":       b.Status,
	})
}

func (bc *BookingController) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, services.ErrBookingTidakDitemukan):
		status, message = http.StatusNotFound, "Booking tidak ditemukan"
	case errors.Is(err, services.ErrTransisiTidakValid):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, services.ErrStatusBerubah):
		status, message = http.StatusConflict, "Booking diubah oleh proses lain, silakan muat ulang"
	default:
		bc.Logger.Error().Err(err).Msg("booking request failed")
	}
	return c.JSON(status, map[string]interface{}{
		"status":  status,
		"message": message,
		"data":    nil,
	})
}
