package services

import "errors"

var (
	ErrPasienTidakDitemukan     = errors.New("patient not registered in registry")
	ErrPasienSudahAda           = errors.New("patient with this NIK already exists in registry")
	ErrRegistrasiTidakDitemukan = errors.New("registration not found")
	// ErrNomorRusak berarti nomor yang sudah ada di registry tidak bisa
	// dibaca. Alokasi harus berhenti agar nomor lama tidak terpakai ulang.
	ErrNomorRusak = errors.New("malformed identifier in registry")
	ErrNomorHabis = errors.New("identifier sequence exhausted")
	// ErrNomorBentrok berarti insert ditolak karena nomor sudah dipakai
	// penulis lain yang tidak ikut mengunci.
	ErrNomorBentrok = errors.New("allocated identifier already taken in registry")
)
