package services

import (
	"errors"
	"fmt"

	bookingServices "github.com/c14220110/klinik-booking-backend/internal/booking/services"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/pkg/nik"
	"github.com/c14220110/klinik-booking-backend/pkg/umur"
)

// Kind mengelompokkan error transfer untuk dipetakan ke respons HTTP.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindNotFound
	KindPrecondition
	KindResolution
	KindAllocation
	KindReconciliation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindResolution:
		return "resolution"
	case KindAllocation:
		return "allocation"
	case KindReconciliation:
		return "reconciliation"
	}
	return "infrastructure"
}

// Error adalah error transfer dengan jenis yang sudah diketahui.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }

var (
	ErrBookingTidakDitemukan = bookingServices.ErrBookingTidakDitemukan
	ErrPasienTidakDitemukan  = registryServices.ErrPasienTidakDitemukan

	ErrBookingBukanConfirmed = &Error{KindPrecondition, "booking is not CONFIRMED"}
	ErrNIKKosong             = &Error{KindPrecondition, "booking has no NIK"}
	ErrDokterTidakAda        = &Error{KindPrecondition, "booking references a doctor that no longer exists"}
	ErrDokterBelumMapping    = &Error{KindPrecondition, "doctor has no registry doctor code"}
	ErrPoliBelumMapping      = &Error{KindPrecondition, "doctor has no registry department code"}
)

// DuplicateRegistrasiError berarti pasien sudah terdaftar di poli yang sama
// pada tanggal yang sama. NoRawat adalah registrasi yang sudah ada.
type DuplicateRegistrasiError struct {
	NoRawat string
}

func (e *DuplicateRegistrasiError) Error() string {
	return fmt.Sprintf("patient already registered for this date and department: no_rawat %s", e.NoRawat)
}

func (e *DuplicateRegistrasiError) Kind() Kind { return KindResolution }

// ReconcileRequiredError berarti baris reg_periksa sudah tertulis tetapi
// booking gagal diperbarui. Booking perlu direkonsiliasi dengan NoRawat ini.
type ReconcileRequiredError struct {
	NoRawat string
	Err     error
}

func (e *ReconcileRequiredError) Error() string {
	return fmt.Sprintf("registry row %s written but booking update failed: %v", e.NoRawat, e.Err)
}

func (e *ReconcileRequiredError) Unwrap() error { return e.Err }
func (e *ReconcileRequiredError) Kind() Kind    { return KindReconciliation }

// KindOf mengembalikan jenis error err.
func KindOf(err error) Kind {
	if err == nil {
		return KindInfrastructure
	}
	var reconcile *ReconcileRequiredError
	if errors.As(err, &reconcile) {
		return KindReconciliation
	}
	var kinded interface{ Kind() Kind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	switch {
	case errors.Is(err, ErrBookingTidakDitemukan),
		errors.Is(err, registryServices.ErrRegistrasiTidakDitemukan):
		return KindNotFound
	case errors.Is(err, ErrPasienTidakDitemukan),
		errors.Is(err, registryServices.ErrPasienSudahAda),
		errors.Is(err, umur.ErrTanggalLahir):
		return KindResolution
	case errors.Is(err, nik.ErrTooShort),
		errors.Is(err, nik.ErrInvalid),
		errors.Is(err, nik.ErrFormat):
		return KindPrecondition
	case errors.Is(err, registryServices.ErrNomorRusak),
		errors.Is(err, registryServices.ErrNomorHabis),
		errors.Is(err, registryServices.ErrNomorBentrok):
		return KindAllocation
	}
	return KindInfrastructure
}
