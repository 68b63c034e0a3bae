package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/klinik-booking-backend/internal/dokter/models"
	"github.com/c14220110/klinik-booking-backend/internal/dokter/services"
)

type DokterController struct {
	Service *services.DokterService
	Logger  zerolog.Logger
}

func NewDokterController(service *services.DokterService, logger zerolog.Logger) *DokterController {
	return &DokterController{Service: service, Logger: logger}
}

// UpdateMapping menyimpan kode dokter dan kode poli SIMRS untuk seorang dokter.
func (dc *DokterController) UpdateMapping(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "id must be a number",
			"data":    nil,
		})
	}
	var req models.Mapping
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload",
			"data":    nil,
		})
	}

	dokter, err := dc.Service.UpdateMapping(c.Request().Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMappingKosong):
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"status":  http.StatusBadRequest,
				"message": err.Error(),
				"data":    nil,
			})
		case errors.Is(err, services.ErrKodeTidakDikenal):
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"status":  http.StatusUnprocessableEntity,
				"message": err.Error(),
				"data":    nil,
			})
		case errors.Is(err, services.ErrDokterTidakDitemukan):
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"status":  http.StatusNotFound,
				"message": "Dokter tidak ditemukan",
				"data":    nil,
			})
		}
		dc.Logger.Error().Err(err).Int64("id_dokter", id).Msg("update dokter mapping")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to update mapping",
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Mapping dokter diperbarui",
		"data":    dokter,
	})
}
