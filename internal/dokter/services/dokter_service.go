package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/c14220110/klinik-booking-backend/internal/dokter/models"
)

var (
	ErrDokterTidakDitemukan = errors.New("doctor not found")
	ErrKodeTidakDikenal     = errors.New("code not found in registry")
	ErrMappingKosong        = errors.New("kd_dokter_simrs and kd_poli_simrs are required")
)

// Referensi memeriksa bahwa kode dokter/poli memang ada di SIMRS.
type Referensi interface {
	DokterAda(ctx context.Context, kdDokter string) (bool, error)
	PoliAda(ctx context.Context, kdPoli string) (bool, error)
}

type DokterService struct {
	DB *sql.DB
	// Referensi boleh nil; pemetaan lalu disimpan tanpa pengecekan ke SIMRS.
	Referensi Referensi
}

func NewDokterService(db *sql.DB, ref Referensi) *DokterService {
	return &DokterService{DB: db, Referensi: ref}
}

// GetByID mengambil dokter beserta kode SIMRS-nya.
func (s *DokterService) GetByID(ctx context.Context, id int64) (*models.Dokter, error) {
	var (
		d        models.Dokter
		kdDokter sql.NullString
		kdPoli   sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, nama, spesialis, kd_dokter_simrs, kd_poli_simrs, created_at, updated_at
		 FROM dokter
		 WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Nama, &d.Spesialis, &kdDokter, &kdPoli, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDokterTidakDitemukan
	}
	if err != nil {
		return nil, fmt.Errorf("query dokter %d: %w", id, err)
	}
	d.KdDokterSIMRS = strings.TrimSpace(kdDokter.String)
	d.KdPoliSIMRS = strings.TrimSpace(kdPoli.String)
	return &d, nil
}

// UpdateMapping menyimpan kode dokter dan kode poli SIMRS untuk dokter id.
func (s *DokterService) UpdateMapping(ctx context.Context, id int64, m models.Mapping) (*models.Dokter, error) {
	m.KdDokter = strings.TrimSpace(m.KdDokter)
	m.KdPoli = strings.TrimSpace(m.KdPoli)
	if m.KdDokter == "" || m.KdPoli == "" {
		return nil, ErrMappingKosong
	}

	if s.Referensi != nil {
		ok, err := s.Referensi.DokterAda(ctx, m.KdDokter)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: kd_dokter %s", ErrKodeTidakDikenal, m.KdDokter)
		}
		ok, err = s.Referensi.PoliAda(ctx, m.KdPoli)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: kd_poli %s", ErrKodeTidakDikenal, m.KdPoli)
		}
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE dokter SET kd_dokter_simrs = ?, kd_poli_simrs = ?, updated_at = NOW() WHERE id = ?`,
		m.KdDokter, m.KdPoli, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update dokter mapping: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL melaporkan 0 bila nilainya sama, jadi pastikan dokternya ada.
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}
