package models

import "time"

// Nilai kolom reg_periksa yang dipakai SIMRS.
const (
	StatusBaru = "Baru"
	StatusLama = "Lama"

	SttsBelum        = "Belum"
	StatusRalan      = "Ralan"
	StatusBelumBayar = "Belum Bayar"
)

// RegPeriksa mewakili satu registrasi rawat jalan (reg_periksa).
type RegPeriksa struct {
	NoReg         string    `json:"no_reg" db:"no_reg"`
	NoRawat       string    `json:"no_rawat" db:"no_rawat"`
	TglRegistrasi time.Time `json:"tgl_registrasi" db:"tgl_registrasi"`
	JamReg        string    `json:"jam_reg" db:"jam_reg"`
	KdDokter      string    `json:"kd_dokter" db:"kd_dokter"`
	NoRkmMedis    string    `json:"no_rkm_medis" db:"no_rkm_medis"`
	KdPoli        string    `json:"kd_poli" db:"kd_poli"`
	PJawab        string    `json:"p_jawab" db:"p_jawab"`
	AlmtPj        string    `json:"almt_pj" db:"almt_pj"`
	HubunganPj    string    `json:"hubunganpj" db:"hubunganpj"`
	BiayaReg      float64   `json:"biaya_reg" db:"biaya_reg"`
	Stts          string    `json:"stts" db:"stts"`
	SttsDaftar    string    `json:"stts_daftar" db:"stts_daftar"`
	StatusLanjut  string    `json:"status_lanjut" db:"status_lanjut"`
	KdPj          string    `json:"kd_pj" db:"kd_pj"`
	UmurDaftar    int       `json:"umurdaftar" db:"umurdaftar"`
	SttsUmur      string    `json:"sttsumur" db:"sttsumur"`
	StatusBayar   string    `json:"status_bayar" db:"status_bayar"`
	StatusPoli    string    `json:"status_poli" db:"status_poli"`
}
