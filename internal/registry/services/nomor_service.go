package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	noRegWidth      = 3
	noRawatWidth    = 6
	noRkmMedisWidth = 6
)

// NomorService mengalokasikan nomor berurutan di registry dengan pola
// baca-maksimum-lalu-tambah. Registry tidak menyediakan counter atomik, jadi
// pemanggil wajib memegang kunci per tanggal selama alokasi sampai insert.
type NomorService struct {
	DB *sql.DB
	// PerPoli membuat no_reg dihitung per tanggal dan per poli.
	PerPoli bool
}

func NewNomorService(db *sql.DB, perPoli bool) *NomorService {
	return &NomorService{DB: db, PerPoli: perPoli}
}

// NoRawatPrefix mengembalikan prefix no_rawat untuk tanggal tgl (YYYY/MM/DD/).
func NoRawatPrefix(tgl time.Time) string {
	return tgl.Format("2006/01/02") + "/"
}

// NextNoRawat mengembalikan no_rawat berikutnya untuk tanggal tgl dengan
// format YYYY/MM/DD/NNNNNN.
func (s *NomorService) NextNoRawat(ctx context.Context, tgl time.Time) (string, error) {
	prefix := NoRawatPrefix(tgl)

	var last string
	err := s.DB.QueryRowContext(ctx,
		`SELECT no_rawat FROM reg_periksa WHERE no_rawat LIKE ? ORDER BY no_rawat DESC LIMIT 1`,
		prefix+"%",
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query max no_rawat: %w", err)
	}

	next := 1
	if err == nil {
		n, perr := parseCounter(strings.TrimPrefix(last, prefix), noRawatWidth)
		if perr != nil || !strings.HasPrefix(last, prefix) {
			return "", fmt.Errorf("%w: no_rawat %q", ErrNomorRusak, last)
		}
		next = n + 1
	}
	if next > maxFor(noRawatWidth) {
		return "", fmt.Errorf("%w: no_rawat %s", ErrNomorHabis, prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, noRawatWidth, next), nil
}

// NextNoReg mengembalikan no_reg tiga digit berikutnya untuk tanggal tgl.
func (s *NomorService) NextNoReg(ctx context.Context, tgl time.Time, kdPoli string) (string, error) {
	query := `SELECT no_reg FROM reg_periksa WHERE tgl_registrasi = ? ORDER BY no_reg DESC LIMIT 1`
	args := []interface{}{tgl.Format("2006-01-02")}
	if s.PerPoli {
		query = `SELECT no_reg FROM reg_periksa WHERE tgl_registrasi = ? AND kd_poli = ? ORDER BY no_reg DESC LIMIT 1`
		args = append(args, kdPoli)
	}

	var last string
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query max no_reg: %w", err)
	}

	next := 1
	if err == nil {
		n, perr := parseCounter(last, noRegWidth)
		if perr != nil {
			return "", fmt.Errorf("%w: no_reg %q", ErrNomorRusak, last)
		}
		next = n + 1
	}
	if next > maxFor(noRegWidth) {
		return "", fmt.Errorf("%w: no_reg %s", ErrNomorHabis, tgl.Format("2006-01-02"))
	}
	return fmt.Sprintf("%0*d", noRegWidth, next), nil
}

// NextNoRkmMedis mengembalikan nomor rekam medis berikutnya. Nomor lama
// boleh lebih panjang dari enam digit, tetapi harus seluruhnya angka.
func (s *NomorService) NextNoRkmMedis(ctx context.Context) (string, error) {
	var last string
	err := s.DB.QueryRowContext(ctx,
		`SELECT no_rkm_medis FROM pasien ORDER BY LENGTH(no_rkm_medis) DESC, no_rkm_medis DESC LIMIT 1`,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query max no_rkm_medis: %w", err)
	}

	next := 1
	if err == nil {
		n, perr := parseCounter(last, len(last))
		if perr != nil || last == "" {
			return "", fmt.Errorf("%w: no_rkm_medis %q", ErrNomorRusak, last)
		}
		next = n + 1
	}
	return fmt.Sprintf("%0*d", noRkmMedisWidth, next), nil
}

// parseCounter membaca angka dengan lebar tepat width digit.
func parseCounter(s string, width int) (int, error) {
	if len(s) != width || width == 0 {
		return 0, fmt.Errorf("expected %d digits, got %q", width, s)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit in %q", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func maxFor(width int) int {
	m := 1
	for i := 0; i < width; i++ {
		m *= 10
	}
	return m - 1
}
