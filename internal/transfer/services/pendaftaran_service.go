package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	bookingModels "github.com/c14220110/klinik-booking-backend/internal/booking/models"
	registryModels "github.com/c14220110/klinik-booking-backend/internal/registry/models"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
	"github.com/c14220110/klinik-booking-backend/pkg/nik"
)

const lockNoRkmMedis = "pasien:no_rkm_medis"

type BookingReader interface {
	GetByID(ctx context.Context, id int64) (*bookingModels.Booking, error)
}

type PasienRegistrar interface {
	FindByNIK(ctx context.Context, nik string) (*registryModels.Pasien, error)
	Insert(ctx context.Context, noRM string, p registryModels.PasienBaru, tglDaftar time.Time) error
}

type NoRkmMedisAllocator interface {
	NextNoRkmMedis(ctx context.Context) (string, error)
}

// PendaftaranService mendaftarkan pasien booking sebagai pasien baru SIMRS.
// Ini aksi terpisah dari transfer; transfer tidak pernah membuat pasien.
type PendaftaranService struct {
	Bookings    BookingReader
	Pasien      PasienRegistrar
	Nomor       NoRkmMedisAllocator
	Locker      lock.Locker
	Logger      zerolog.Logger
	DefaultKdPj string
	Now         func() time.Time
}

func NewPendaftaranService(bookings BookingReader, pasien PasienRegistrar, nomor NoRkmMedisAllocator, locker lock.Locker, defaultKdPj string, logger zerolog.Logger) *PendaftaranService {
	return &PendaftaranService{
		Bookings:    bookings,
		Pasien:      pasien,
		Nomor:       nomor,
		Locker:      locker,
		Logger:      logger.With().Str("component", "pendaftaran").Logger(),
		DefaultKdPj: defaultKdPj,
		Now:         time.Now,
	}
}

// DaftarkanPasien membuat baris pasien SIMRS dari data booking id. Jenis
// kelamin dan tanggal lahir diambil dari NIK.
func (s *PendaftaranService) DaftarkanPasien(ctx context.Context, id int64) (*registryModels.Pasien, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == bookingModels.StatusCancelled {
		return nil, fmt.Errorf("%w: status %s", ErrBookingBukanConfirmed, b.Status)
	}
	noKTP := strings.TrimSpace(b.NIK)
	if noKTP == "" {
		return nil, ErrNIKKosong
	}
	if err := nik.Validate(noKTP); err != nil {
		return nil, err
	}
	now := s.Now()
	identity, err := nik.Decode(noKTP, now)
	if err != nil {
		return nil, err
	}

	ctx, unlock, err := lock.Acquire(ctx, s.Locker, lockNoRkmMedis)
	if err != nil {
		return nil, fmt.Errorf("acquire no_rkm_medis lock: %w", err)
	}
	defer unlock()

	existing, err := s.Pasien.FindByNIK(ctx, noKTP)
	if err == nil {
		return existing, fmt.Errorf("%w: no_rkm_medis %s", registryServices.ErrPasienSudahAda, existing.NoRkmMedis)
	}
	if !errors.Is(err, registryServices.ErrPasienTidakDitemukan) {
		return nil, err
	}

	noRM, err := s.Nomor.NextNoRkmMedis(ctx)
	if err != nil {
		return nil, err
	}
	baru := registryModels.PasienBaru{
		NmPasien: strings.ToUpper(strings.TrimSpace(b.NamaPasien)),
		NoKTP:    noKTP,
		JK:       identity.JenisKelamin.KodeJK(),
		TglLahir: identity.TanggalLahir,
		Alamat:   b.Alamat,
		NoTlp:    b.NoTelp,
		Email:    b.Email,
		KdPj:     firstNonEmpty(b.KdPj, s.DefaultKdPj),
	}
	if err := s.Pasien.Insert(ctx, noRM, baru, now); err != nil {
		return nil, err
	}

	s.Logger.Info().Int64("booking_id", id).Str("no_rkm_medis", noRM).Msg("patient registered in registry")
	return &registryModels.Pasien{
		NoRkmMedis: noRM,
		NmPasien:   baru.NmPasien,
		NoKTP:      noKTP,
		JK:         baru.JK,
		TglLahir:   baru.TglLahir,
		Alamat:     baru.Alamat,
	}, nil
}
