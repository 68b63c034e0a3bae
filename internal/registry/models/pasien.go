package models

import "time"

// Pasien mewakili baris tabel pasien di SIMRS. Kunci utamanya nomor rekam
// medis (no_rkm_medis).
type Pasien struct {
	NoRkmMedis string    `json:"no_rkm_medis" db:"no_rkm_medis"`
	NmPasien   string    `json:"nm_pasien" db:"nm_pasien"`
	NoKTP      string    `json:"no_ktp" db:"no_ktp"`
	JK         string    `json:"jk" db:"jk"`
	TglLahir   time.Time `json:"tgl_lahir" db:"tgl_lahir"`
	Alamat     string    `json:"alamat" db:"alamat"`
}

// PasienBaru adalah data untuk mendaftarkan pasien baru ke SIMRS.
type PasienBaru struct {
	NmPasien     string
	NoKTP        string
	JK           string
	TmpLahir     string
	TglLahir     time.Time
	NmIbu        string
	Alamat       string
	NoTlp        string
	Email        string
	KdPj         string
	NamaKeluarga string
	Keluarga     string
}
