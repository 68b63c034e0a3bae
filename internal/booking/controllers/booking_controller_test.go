package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/klinik-booking-backend/internal/booking/services"
	"github.com/c14220110/klinik-booking-backend/ws"
)

var bookingColumns = []string{
	"id", "kode_booking", "nama_pasien", "nik", "alamat", "no_telp", "email", "id_dokter",
	"tanggal", "jam", "keluhan", "kd_pj", "status", "catatan_admin", "no_rawat",
	"created_at", "updated_at",
}

type recorder struct{ events []string }

func (r *recorder) Publish(eventType string, _ interface{}) { r.events = append(r.events, eventType) }

func row(status string) *sqlmock.Rows {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingColumns).AddRow(
		int64(1), "BK0000000001", "Siti Aminah", nil, "Jl. Mawar 1", "0812", "", int64(7),
		time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), "09:30:00", "", nil, status, "", nil, now, now,
	)
}

func setup(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	events := &recorder{}
	bc := NewBookingController(services.NewBookingService(db), events, zerolog.Nop())
	e := echo.New()
	e.POST("/api/booking", bc.CreateBooking)
	e.GET("/api/admin/booking/:id", bc.GetBooking)
	e.PUT("/api/admin/booking/:id/status", bc.UpdateStatus)
	return e, mock, events
}

func send(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateBooking(t *testing.T) {
	e, mock, events := setup(t)
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`FROM bookings`).WillReturnRows(row("PENDING"))

	rec := send(e, http.MethodPost, "/api/booking",
		`{"nama_pasien":"Siti Aminah","id_dokter":7,"tanggal":"2026-10-20","jam":"09:30"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PENDING", body.Data.Status)
	assert.Equal(t, []string{ws.EventBookingStatus}, events.events)
}

func TestCreateBooking_BadInput(t *testing.T) {
	e, _, _ := setup(t)

	rec := send(e, http.MethodPost, "/api/booking", `{"nama_pasien":"Siti","id_dokter":7,"tanggal":"20-10-2026"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(e, http.MethodPost, "/api/booking", `{"id_dokter":7,"tanggal":"2026-10-20"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBooking_NotFound(t *testing.T) {
	e, mock, _ := setup(t)
	mock.ExpectQuery(`FROM bookings`).WillReturnRows(sqlmock.NewRows(bookingColumns))

	rec := send(e, http.MethodGet, "/api/admin/booking/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	e, mock, events := setup(t)
	mock.ExpectQuery(`FROM bookings`).WillReturnRows(row("PENDING"))
	mock.ExpectExec(`UPDATE bookings SET status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bookings`).WillReturnRows(row("CONFIRMED"))

	rec := send(e, http.MethodPut, "/api/admin/booking/1/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, events.events, 1)
}

func TestUpdateStatus_Rejected(t *testing.T) {
	e, mock, events := setup(t)

	rec := send(e, http.MethodPut, "/api/admin/booking/1/status", `{"status":"DONE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectQuery(`FROM bookings`).WillReturnRows(row("CANCELLED"))
	rec = send(e, http.MethodPut, "/api/admin/booking/1/status", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, events.events)
}
