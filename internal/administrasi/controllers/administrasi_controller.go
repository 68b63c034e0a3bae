package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/klinik-booking-backend/internal/administrasi/services"
	"github.com/c14220110/klinik-booking-backend/pkg/utils"
)

type AdministrasiController struct {
	Service   *services.AdministrasiService
	JWTSecret string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

func NewAdministrasiController(service *services.AdministrasiService, secret string, ttl time.Duration, logger zerolog.Logger) *AdministrasiController {
	return &AdministrasiController{Service: service, JWTSecret: secret, TokenTTL: ttl, Logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login menangani permintaan login admin dan mengembalikan token JWT.
func (ac *AdministrasiController) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload",
			"data":    nil,
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Username and Password are required",
			"data":    nil,
		})
	}

	admin, err := ac.Service.AuthenticateAdmin(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"status":  http.StatusUnauthorized,
				"message": "Invalid username or password",
				"data":    nil,
			})
		}
		ac.Logger.Error().Err(err).Msg("admin login")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Login failed",
			"data":    nil,
		})
	}

	token, err := utils.GenerateJWTToken(ac.JWTSecret, admin.ID, admin.Username, admin.Role, time.Now().Add(ac.TokenTTL))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to generate token",
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Login successful",
		"data": map[string]interface{}{
			"id":       admin.ID,
			"nama":     admin.Nama,
			"username": admin.Username,
			"role":     admin.Role,
			"token":    token,
		},
	})
}
