package services

import "errors"

var (
	ErrBookingTidakDitemukan = errors.New("booking not found")
	ErrTransisiTidakValid    = errors.New("booking status transition not allowed")
	ErrDataTidakValid        = errors.New("invalid booking data")

	// ErrStatusBerubah berarti status booking diubah proses lain di antara
	// pembacaan dan penulisan.
	ErrStatusBerubah = errors.New("booking status changed concurrently")
)
