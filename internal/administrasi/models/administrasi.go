package models

import "time"

const RoleAdmin = "admin"

// Administrasi adalah akun admin klinik yang mengelola booking.
type Administrasi struct {
	ID        int64     `json:"id"`
	Nama      string    `json:"nama"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
