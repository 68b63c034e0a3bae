package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/c14220110/klinik-booking-backend/internal/registry/models"
	"github.com/c14220110/klinik-booking-backend/pkg/storage/mariadb"
	"github.com/c14220110/klinik-booking-backend/pkg/umur"
)

// kosong mengisi kolom wajib pasien yang tidak diketahui dari booking.
const kosong = "-"

type PasienService struct {
	DB *sql.DB
}

func NewPasienService(db *sql.DB) *PasienService {
	return &PasienService{DB: db}
}

// FindByNIK mencari pasien SIMRS berdasarkan no_ktp. Bila NIK terdaftar
// lebih dari sekali, nomor rekam medis terkecil yang dipakai.
func (s *PasienService) FindByNIK(ctx context.Context, nik string) (*models.Pasien, error) {
	query := `
		SELECT no_rkm_medis, nm_pasien, no_ktp, jk, tgl_lahir, alamat
		FROM pasien
		WHERE no_ktp = ?
		ORDER BY no_rkm_medis ASC
		LIMIT 1
	`
	var p models.Pasien
	err := s.DB.QueryRowContext(ctx, query, nik).Scan(
		&p.NoRkmMedis, &p.NmPasien, &p.NoKTP, &p.JK, &p.TglLahir, &p.Alamat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPasienTidakDitemukan
	}
	if err != nil {
		return nil, fmt.Errorf("query pasien by nik: %w", err)
	}
	return &p, nil
}

// Insert menulis pasien baru dengan nomor rekam medis noRM. Pemanggil
// bertanggung jawab memegang kunci alokasi no_rkm_medis.
func (s *PasienService) Insert(ctx context.Context, noRM string, p models.PasienBaru, tglDaftar time.Time) error {
	query := `
		INSERT INTO pasien
			(no_rkm_medis, nm_pasien, no_ktp, jk, tmp_lahir, tgl_lahir, nm_ibu, alamat,
			 gol_darah, pekerjaan, stts_nikah, agama, tgl_daftar, no_tlp, umur, pnd,
			 keluarga, namakeluarga, kd_pj, no_peserta, pekerjaanpj, alamatpj, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query,
		noRM,
		p.NmPasien,
		p.NoKTP,
		p.JK,
		orDash(p.TmpLahir),
		p.TglLahir.Format("2006-01-02"),
		orDash(p.NmIbu),
		orDash(p.Alamat),
		kosong,
		kosong,
		"BELUM MENIKAH",
		kosong,
		tglDaftar.Format("2006-01-02"),
		orDash(p.NoTlp),
		umur.Lengkap(p.TglLahir, tglDaftar),
		kosong,
		orDefault(p.Keluarga, "DIRI SENDIRI"),
		orDefault(p.NamaKeluarga, p.NmPasien),
		p.KdPj,
		kosong,
		kosong,
		orDash(p.Alamat),
		p.Email,
	)
	if mariadb.IsDuplicateKey(err) {
		return fmt.Errorf("%w: no_rkm_medis %s", ErrNomorBentrok, noRM)
	}
	if err != nil {
		return fmt.Errorf("insert pasien: %w", err)
	}
	return nil
}

func orDash(s string) string {
	return orDefault(s, kosong)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
