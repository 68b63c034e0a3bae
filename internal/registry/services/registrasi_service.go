package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/c14220110/klinik-booking-backend/internal/registry/models"
	"github.com/c14220110/klinik-booking-backend/pkg/storage/mariadb"
)

type RegistrasiService struct {
	DB *sql.DB
}

func NewRegistrasiService(db *sql.DB) *RegistrasiService {
	return &RegistrasiService{DB: db}
}

// FindRegistrasi mencari registrasi pasien pada tanggal dan poli yang sama.
func (s *RegistrasiService) FindRegistrasi(ctx context.Context, noRM string, tgl time.Time, kdPoli string) (*models.RegPeriksa, error) {
	query := `
		SELECT no_reg, no_rawat, tgl_registrasi, jam_reg, kd_dokter, no_rkm_medis, kd_poli
		FROM reg_periksa
		WHERE no_rkm_medis = ? AND tgl_registrasi = ? AND kd_poli = ?
		ORDER BY no_rawat ASC
		LIMIT 1
	`
	var r models.RegPeriksa
	err := s.DB.QueryRowContext(ctx, query, noRM, tgl.Format("2006-01-02"), kdPoli).Scan(
		&r.NoReg, &r.NoRawat, &r.TglRegistrasi, &r.JamReg, &r.KdDokter, &r.NoRkmMedis, &r.KdPoli,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrasiTidakDitemukan
	}
	if err != nil {
		return nil, fmt.Errorf("query reg_periksa: %w", err)
	}
	return &r, nil
}

// PernahDaftar melaporkan apakah pasien sudah punya registrasi apa pun.
func (s *RegistrasiService) PernahDaftar(ctx context.Context, noRM string) (bool, error) {
	return exists(ctx, s.DB, `SELECT 1 FROM reg_periksa WHERE no_rkm_medis = ? LIMIT 1`, noRM)
}

// PernahDaftarPoli melaporkan apakah pasien sudah pernah registrasi di poli kdPoli.
func (s *RegistrasiService) PernahDaftarPoli(ctx context.Context, noRM, kdPoli string) (bool, error) {
	return exists(ctx, s.DB, `SELECT 1 FROM reg_periksa WHERE no_rkm_medis = ? AND kd_poli = ? LIMIT 1`, noRM, kdPoli)
}

func exists(ctx context.Context, db *sql.DB, query string, args ...interface{}) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// BiayaRegistrasi mengembalikan biaya registrasi poli: registrasilama untuk
// pasien lama, registrasi untuk pasien baru. Poli yang tidak ada di tabel
// poliklinik dianggap gratis.
func (s *RegistrasiService) BiayaRegistrasi(ctx context.Context, kdPoli string, lama bool) (float64, error) {
	var baru, ulang float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT registrasi, registrasilama FROM poliklinik WHERE kd_poli = ?`, kdPoli,
	).Scan(&baru, &ulang)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query poliklinik: %w", err)
	}
	if lama {
		return ulang, nil
	}
	return baru, nil
}

// Insert menulis satu baris reg_periksa.
func (s *RegistrasiService) Insert(ctx context.Context, r models.RegPeriksa) error {
	query := `
		INSERT INTO reg_periksa
			(no_reg, no_rawat, tgl_registrasi, jam_reg, kd_dokter, no_rkm_medis, kd_poli,
			 p_jawab, almt_pj, hubunganpj, biaya_reg, stts, stts_daftar, status_lanjut,
			 kd_pj, umurdaftar, sttsumur, status_bayar, status_poli)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query,
		r.NoReg,
		r.NoRawat,
		r.TglRegistrasi.Format("2006-01-02"),
		r.JamReg,
		r.KdDokter,
		r.NoRkmMedis,
		r.KdPoli,
		r.PJawab,
		r.AlmtPj,
		r.HubunganPj,
		r.BiayaReg,
		r.Stts,
		r.SttsDaftar,
		r.StatusLanjut,
		r.KdPj,
		r.UmurDaftar,
		r.SttsUmur,
		r.StatusBayar,
		r.StatusPoli,
	)
	if mariadb.IsDuplicateKey(err) {
		return fmt.Errorf("%w: no_rawat %s", ErrNomorBentrok, r.NoRawat)
	}
	if err != nil {
		return fmt.Errorf("insert reg_periksa: %w", err)
	}
	return nil
}
