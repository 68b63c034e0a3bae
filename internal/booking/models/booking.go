package models

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusCheckin   Status = "CHECKIN"
)

// transitions berisi perpindahan status yang boleh dilakukan admin.
// COMPLETED dan CANCELLED adalah status akhir.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusCheckin},
	StatusCheckin:   {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusCheckin:
		return true
	}
	return false
}

// Terminal melaporkan apakah booking tidak bisa berpindah status lagi.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition melaporkan apakah booking boleh berpindah dari status from ke to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking adalah janji temu yang dibuat pasien lewat website klinik.
type Booking struct {
	ID           int64     `json:"id"`
	KodeBooking  string    `json:"kode_booking"`
	NamaPasien   string    `json:"nama_pasien"`
	NIK          string    `json:"nik"`
	Alamat       string    `json:"alamat"`
	NoTelp       string    `json:"no_telp"`
	Email        string    `json:"email"`
	IDDokter     int64     `json:"id_dokter"`
	Tanggal      time.Time `json:"tanggal"`
	Jam          string    `json:"jam"`
	Keluhan      string    `json:"keluhan"`
	KdPj         string    `json:"kd_pj"`
	Status       Status    `json:"status"`
	CatatanAdmin string    `json:"catatan_admin"`
	// NoRawat hanya terisi setelah booking berhasil ditransfer ke SIMRS.
	NoRawat   *string   `json:"no_rawat"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingBaru adalah data dari form booking publik.
type BookingBaru struct {
	NamaPasien string    `json:"nama_pasien"`
	NIK        string    `json:"nik"`
	Alamat     string    `json:"alamat"`
	NoTelp     string    `json:"no_telp"`
	Email      string    `json:"email"`
	IDDokter   int64     `json:"id_dokter"`
	Tanggal    time.Time `json:"tanggal"`
	Jam        string    `json:"jam"`
	Keluhan    string    `json:"keluhan"`
	KdPj       string    `json:"kd_pj"`
}
