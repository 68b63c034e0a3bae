package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	registryModels "github.com/c14220110/klinik-booking-backend/internal/registry/models"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/internal/transfer/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
	"github.com/c14220110/klinik-booking-backend/pkg/nik"
)

type Transferer interface {
	Transfer(ctx context.Context, id int64) (*services.TransferResult, error)
	Reconcile(ctx context.Context, id int64) (*services.TransferResult, error)
}

type PasienRegistrar interface {
	DaftarkanPasien(ctx context.Context, id int64) (*registryModels.Pasien, error)
}

type TransferController struct {
	Transfer    Transferer
	Pendaftaran PasienRegistrar
	Logger      zerolog.Logger
	Now         func() time.Time
}

func NewTransferController(t Transferer, p PasienRegistrar, logger zerolog.Logger) *TransferController {
	return &TransferController{Transfer: t, Pendaftaran: p, Logger: logger, Now: time.Now}
}

// TransferBooking membuat registrasi SIMRS dari booking CONFIRMED.
func (tc *TransferController) TransferBooking(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return badID(c)
	}
	res, err := tc.Transfer.Transfer(c.Request().Context(), id)
	if err != nil {
		return tc.fail(c, id, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Booking berhasil ditransfer ke SIMRS",
		"data":    res,
	})
}

// ReconcileBooking menautkan booking ke registrasi SIMRS yang sudah ada.
func (tc *TransferController) ReconcileBooking(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return badID(c)
	}
	res, err := tc.Transfer.Reconcile(c.Request().Context(), id)
	if err != nil {
		return tc.fail(c, id, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Booking berhasil ditautkan ke registrasi SIMRS",
		"data":    res,
	})
}

// DaftarkanPasien mendaftarkan pasien booking sebagai pasien baru SIMRS.
func (tc *TransferController) DaftarkanPasien(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return badID(c)
	}
	pasien, err := tc.Pendaftaran.DaftarkanPasien(c.Request().Context(), id)
	if err != nil {
		return tc.fail(c, id, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  http.StatusCreated,
		"message": "Pasien berhasil didaftarkan di SIMRS",
		"data":    pasien,
	})
}

// DecodeNIK menampilkan tanggal lahir dan jenis kelamin dari NIK.
func (tc *TransferController) DecodeNIK(c echo.Context) error {
	value := c.Param("nik")
	identity, err := nik.Decode(value, tc.Now())
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"status":  http.StatusUnprocessableEntity,
			"message": err.Error(),
			"data":    nil,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "NIK decoded",
		"data": map[string]interface{}{
			"tanggal_lahir": identity.TanggalLahir.Format("2006-01-02"),
			"jk":            identity.JenisKelamin.KodeJK(),
			"lengkap":       nik.Validate(value) == nil,
		},
	})
}

func (tc *TransferController) fail(c echo.Context, id int64, err error) error {
	status := http.StatusInternalServerError
	message := "Internal server error"
	var data interface{}

	var (
		dup       *services.DuplicateRegistrasiError
		reconcile *services.ReconcileRequiredError
	)
	kind := services.KindOf(err)
	switch {
	case errors.As(err, &reconcile):
		status = http.StatusAccepted
		message = "Registrasi SIMRS sudah dibuat tetapi booking gagal diperbarui. Jalankan rekonsiliasi."
		data = map[string]interface{}{"no_rawat": reconcile.NoRawat}
	case errors.As(err, &dup):
		status = http.StatusConflict
		message = "Pasien sudah terdaftar di poli yang sama pada tanggal tersebut"
		data = map[string]interface{}{"no_rawat": dup.NoRawat}
	case errors.Is(err, services.ErrPasienTidakDitemukan):
		status = http.StatusUnprocessableEntity
		message = fmt.Sprintf("Pasien belum terdaftar di SIMRS. Daftarkan dulu lewat /api/admin/booking/%d/pasien-simrs", id)
	case errors.Is(err, registryServices.ErrPasienSudahAda):
		status = http.StatusConflict
		message = "Pasien dengan NIK ini sudah terdaftar di SIMRS"
	case errors.Is(err, services.ErrBookingTidakDitemukan):
		status, message = http.StatusNotFound, "Booking tidak ditemukan"
	case errors.Is(err, registryServices.ErrRegistrasiTidakDitemukan):
		status, message = http.StatusNotFound, "Registrasi SIMRS untuk booking ini tidak ditemukan"
	case kind == services.KindPrecondition, kind == services.KindResolution:
		status, message = http.StatusUnprocessableEntity, err.Error()
	case kind == services.KindAllocation:
		message = "Gagal mengalokasikan nomor registrasi SIMRS"
	case errors.Is(err, lock.ErrTimeout):
		status, message = http.StatusServiceUnavailable, "Registrasi sedang sibuk, coba lagi"
	}

	if status >= http.StatusInternalServerError || status == http.StatusAccepted {
		tc.Logger.Error().Err(err).Int64("booking_id", id).Str("kind", kind.String()).Msg("transfer request failed")
	}
	return c.JSON(status, map[string]interface{}{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func bookingID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"status":  http.StatusBadRequest,
		"message": "id must be a number",
		"data":    nil,
	})
}
