// Package nik mendekode Nomor Induk Kependudukan (NIK) menjadi tanggal lahir
// dan jenis kelamin.
//
// Tahun lahir di NIK hanya dua digit. Abad ditentukan relatif terhadap tahun
// berjalan: dua digit yang lebih besar dari dua digit tahun sekarang dianggap
// 19xx, selain itu 20xx. Artinya orang berusia tepat 100 tahun atau lebih
// akan terdekode satu abad terlalu muda.
package nik

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Length adalah panjang NIK yang sah.
const Length = 16

const femaleDayOffset = 40

var (
	ErrTooShort = errors.New("nik: minimal 12 karakter untuk didekode")
	ErrInvalid  = errors.New("nik: tanggal lahir tidak valid")
	ErrFormat   = errors.New("nik: harus 16 digit angka")
)

type Sex int

const (
	Male Sex = iota + 1
	Female
)

// KodeJK mengembalikan kode jenis kelamin registry (L/P).
func (s Sex) KodeJK() string {
	if s == Female {
		return "P"
	}
	return "L"
}

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unknown"
	}
}

// Identity adalah data demografis yang terkandung di NIK.
type Identity struct {
	TanggalLahir time.Time
	JenisKelamin Sex
}

// Decode membaca tanggal lahir dan jenis kelamin dari NIK. now dipakai untuk
// menentukan abad tahun lahir.
func Decode(nik string, now time.Time) (Identity, error) {
	nik = strings.TrimSpace(nik)
	if len(nik) < 12 {
		return Identity{}, ErrTooShort
	}

	day, err := twoDigits(nik, 6)
	if err != nil {
		return Identity{}, err
	}
	month, err := twoDigits(nik, 8)
	if err != nil {
		return Identity{}, err
	}
	yy, err := twoDigits(nik, 10)
	if err != nil {
		return Identity{}, err
	}

	sex := Male
	if day > femaleDayOffset {
		sex = Female
		day -= femaleDayOffset
	}

	year := 2000 + yy
	if yy > now.Year()%100 {
		year = 1900 + yy
	}

	if month < 1 || month > 12 || day < 1 {
		return Identity{}, fmt.Errorf("%w: %02d-%02d-%d", ErrInvalid, day, month, year)
	}
	lahir := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if lahir.Day() != day || int(lahir.Month()) != month {
		return Identity{}, fmt.Errorf("%w: %02d-%02d-%d", ErrInvalid, day, month, year)
	}

	return Identity{TanggalLahir: lahir, JenisKelamin: sex}, nil
}

// Validate memastikan NIK terdiri dari tepat 16 digit.
func Validate(nik string) error {
	if len(nik) != Length {
		return ErrFormat
	}
	for i := 0; i < len(nik); i++ {
		if nik[i] < '0' || nik[i] > '9' {
			return ErrFormat
		}
	}
	return nil
}

func twoDigits(s string, at int) (int, error) {
	a, b := s[at], s[at+1]
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, fmt.Errorf("%w: karakter non-angka pada posisi %d", ErrInvalid, at)
	}
	return int(a-'0')*10 + int(b-'0'), nil
}
