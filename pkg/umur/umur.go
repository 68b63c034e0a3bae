// Package umur menghitung umur pasien dengan satuan bertingkat seperti yang
// ditampilkan SIMRS: tahun (Th), bulan (Bl), atau hari (Hr).
package umur

import (
	"errors"
	"fmt"
	"time"
)

const (
	Tahun = "Th"
	Bulan = "Bl"
	Hari  = "Hr"
)

const hariPerBulan = 30

var ErrTanggalLahir = errors.New("umur: tanggal lahir setelah tanggal registrasi")

// Umur adalah nilai umur beserta satuannya.
type Umur struct {
	Nilai  int
	Satuan string
}

func (u Umur) String() string {
	return fmt.Sprintf("%d %s", u.Nilai, u.Satuan)
}

// Hitung mengembalikan umur pada tanggal tgl. Bila selisih tahun penuh minimal
// 1, satuannya tahun. Bila belum, selisih hari dibagi 30; minimal 1 berarti
// bulan. Sisanya dalam hari.
func Hitung(lahir, tgl time.Time) (Umur, error) {
	lahir = dateOnly(lahir)
	tgl = dateOnly(tgl)
	if tgl.Before(lahir) {
		return Umur{}, ErrTanggalLahir
	}

	if years := wholeYears(lahir, tgl); years >= 1 {
		return Umur{Nilai: years, Satuan: Tahun}, nil
	}

	days := elapsedDays(lahir, tgl)
	if months := days / hariPerBulan; months >= 1 {
		return Umur{Nilai: months, Satuan: Bulan}, nil
	}
	return Umur{Nilai: days, Satuan: Hari}, nil
}

// Lengkap menghasilkan format "X Th Y Bl Z Hr" yang dipakai kolom pasien.umur.
func Lengkap(lahir, tgl time.Time) string {
	lahir = dateOnly(lahir)
	tgl = dateOnly(tgl)
	if tgl.Before(lahir) {
		return "0 Th 0 Bl 0 Hr"
	}

	y := wholeYears(lahir, tgl)
	anchor := lahir.AddDate(y, 0, 0)
	m := 0
	for !anchor.AddDate(0, m+1, 0).After(tgl) {
		m++
	}
	d := elapsedDays(anchor.AddDate(0, m, 0), tgl)
	return fmt.Sprintf("%d Th %d Bl %d Hr", y, m, d)
}

func wholeYears(lahir, tgl time.Time) int {
	years := tgl.Year() - lahir.Year()
	if tgl.Month() < lahir.Month() || (tgl.Month() == lahir.Month() && tgl.Day() < lahir.Day()) {
		years--
	}
	return years
}

func elapsedDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
