package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c14220110/klinik-booking-backend/internal/booking/models"
	"github.com/c14220110/klinik-booking-backend/pkg/nik"
)

const selectBooking = `
	SELECT id, kode_booking, nama_pasien, nik, alamat, no_telp, email, id_dokter,
	       tanggal, jam, keluhan, kd_pj, status, catatan_admin, no_rawat,
	       created_at, updated_at
	FROM bookings
`

type BookingService struct {
	DB *sql.DB
}

func NewBookingService(db *sql.DB) *BookingService {
	return &BookingService{DB: db}
}

// Create menyimpan booking baru dengan status PENDING.
func (s *BookingService) Create(ctx context.Context, b models.BookingBaru) (*models.Booking, error) {
	if strings.TrimSpace(b.NamaPasien) == "" || b.IDDokter == 0 || b.Tanggal.IsZero() {
		return nil, fmt.Errorf("%w: nama_pasien, id_dokter, and tanggal are required", ErrDataTidakValid)
	}
	if b.NIK != "" {
		if err := nik.Validate(b.NIK); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataTidakValid, err)
		}
	}

	kode := "BK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	query := `
		INSERT INTO bookings
			(kode_booking, nama_pasien, nik, alamat, no_telp, email, id_dokter,
			 tanggal, jam, keluhan, kd_pj, status, catatan_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', NOW(), NOW())
	`
	res, err := s.DB.ExecContext(ctx, query,
		kode,
		b.NamaPasien,
		nullIfEmpty(b.NIK),
		b.Alamat,
		b.NoTelp,
		b.Email,
		b.IDDokter,
		b.Tanggal.Format("2006-01-02"),
		b.Jam,
		b.Keluhan,
		nullIfEmpty(b.KdPj),
		string(models.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert booking id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID mengambil satu booking.
func (s *BookingService) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.DB.QueryRowContext(ctx, selectBooking+` WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingTidakDitemukan
	}
	if err != nil {
		return nil, fmt.Errorf("query booking %d: %w", id, err)
	}
	return b, nil
}

// UpdateStatus memindahkan status booking sesuai aturan transisi. Status
// COMPLETED dari sini adalah penyelesaian manual dan tidak mengisi no_rawat.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, to models.Status, catatan string) (*models.Booking, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransisiTidakValid, current.Status, to)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE bookings SET status = ?, catatan_admin = ?, updated_at = NOW() WHERE id = ? AND status = ?`,
		string(to), catatan, id, string(current.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	} else if n == 0 {
		return nil, ErrStatusBerubah
	}
	return s.GetByID(ctx, id)
}

// MarkTransferred menandai booking CONFIRMED sebagai COMPLETED dengan no_rawat
// dari SIMRS. Hanya berhasil satu kali per booking.
func (s *BookingService) MarkTransferred(ctx context.Context, id int64, noRawat string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, no_rawat = ?, updated_at = NOW()
		WHERE id = ? AND status = ? AND no_rawat IS NULL`,
		string(models.StatusCompleted), noRawat, id, string(models.StatusConfirmed),
	)
	if err != nil {
		return fmt.Errorf("mark booking %d transferred: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark booking %d transferred: %w", id, err)
	}
	if n == 0 {
		return ErrStatusBerubah
	}
	return nil
}

// ListConfirmedSince mengembalikan booking CONFIRMED yang belum punya
// no_rawat dengan tanggal kunjungan mulai since.
func (s *BookingService) ListConfirmedSince(ctx context.Context, since time.Time) ([]models.Booking, error) {
	rows, err := s.DB.QueryContext(ctx,
		selectBooking+` WHERE status = ? AND no_rawat IS NULL AND tanggal >= ? ORDER BY tanggal, id`,
		string(models.StatusConfirmed), since.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}
	defer rows.Close()

	var result []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b       models.Booking
		nikVal  sql.NullString
		kdPj    sql.NullString
		noRawat sql.NullString
		status  string
	)
	err := row.Scan(
		&b.ID, &b.KodeBooking, &b.NamaPasien, &nikVal, &b.Alamat, &b.NoTelp, &b.Email, &b.IDDokter,
		&b.Tanggal, &b.Jam, &b.Keluhan, &kdPj, &status, &b.CatatanAdmin, &noRawat,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.NIK = nikVal.String
	b.KdPj = kdPj.String
	b.Status = models.Status(status)
	if noRawat.Valid {
		b.NoRawat = &noRawat.String
	}
	return &b, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
