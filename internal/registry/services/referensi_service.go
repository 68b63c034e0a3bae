package services

import (
	"context"
	"database/sql"
)

// ReferensiService memeriksa kode master SIMRS (dokter dan poliklinik).
type ReferensiService struct {
	DB *sql.DB
}

func NewReferensiService(db *sql.DB) *ReferensiService {
	return &ReferensiService{DB: db}
}

func (s *ReferensiService) DokterAda(ctx context.Context, kdDokter string) (bool, error) {
	return exists(ctx, s.DB, `SELECT 1 FROM dokter WHERE kd_dokter = ? LIMIT 1`, kdDokter)
}

func (s *ReferensiService) PoliAda(ctx context.Context, kdPoli string) (bool, error) {
	return exists(ctx, s.DB, `SELECT 1 FROM poliklinik WHERE kd_poli = ? LIMIT 1`, kdPoli)
}
