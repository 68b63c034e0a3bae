package models

import "time"

// Dokter merepresentasikan dokter klinik beserta pemetaannya ke kode SIMRS.
// Transfer booking ke SIMRS hanya bisa dilakukan bila KdDokterSIMRS dan
// KdPoliSIMRS sudah terisi.
type Dokter struct {
	ID            int64     `json:"id"`
	Nama          string    `json:"nama"`
	Spesialis     string    `json:"spesialis"`
	KdDokterSIMRS string    `json:"kd_dokter_simrs"`
	KdPoliSIMRS   string    `json:"kd_poli_simrs"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Mapping adalah pasangan kode dokter dan kode poli di SIMRS.
type Mapping struct {
	KdDokter string `json:"kd_dokter_simrs"`
	KdPoli   string `json:"kd_poli_simrs"`
}
