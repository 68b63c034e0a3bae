package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	bookingModels "github.com/c14220110/klinik-booking-backend/internal/booking/models"
	dokterModels "github.com/c14220110/klinik-booking-backend/internal/dokter/models"
	dokterServices "github.com/c14220110/klinik-booking-backend/internal/dokter/services"
	"github.com/c14220110/klinik-booking-backend/internal/observability/metrics"
	registryModels "github.com/c14220110/klinik-booking-backend/internal/registry/models"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
	"github.com/c14220110/klinik-booking-backend/pkg/umur"
	"github.com/c14220110/klinik-booking-backend/ws"
)

var transferTracer = otel.Tracer("klinik.internal.transfer")

const hubunganDiriSendiri = "DIRI SENDIRI"

type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*bookingModels.Booking, error)
	MarkTransferred(ctx context.Context, id int64, noRawat string) error
	ListConfirmedSince(ctx context.Context, since time.Time) ([]bookingModels.Booking, error)
}

type DokterStore interface {
	GetByID(ctx context.Context, id int64) (*dokterModels.Dokter, error)
}

type PasienResolver interface {
	FindByNIK(ctx context.Context, nik string) (*registryModels.Pasien, error)
}

type Registrasi interface {
	FindRegistrasi(ctx context.Context, noRM string, tgl time.Time, kdPoli string) (*registryModels.RegPeriksa, error)
	PernahDaftar(ctx context.Context, noRM string) (bool, error)
	PernahDaftarPoli(ctx context.Context, noRM, kdPoli string) (bool, error)
	BiayaRegistrasi(ctx context.Context, kdPoli string, lama bool) (float64, error)
	Insert(ctx context.Context, r registryModels.RegPeriksa) error
}

type Allocator interface {
	NextNoRawat(ctx context.Context, tgl time.Time) (string, error)
	NextNoReg(ctx context.Context, tgl time.Time, kdPoli string) (string, error)
}

// Publisher menerima event untuk disiarkan ke dashboard admin.
type Publisher interface {
	Publish(eventType string, data interface{})
}

// Deps adalah kolaborator TransferService. Metrics dan Events boleh nil.
type Deps struct {
	Bookings    BookingStore
	Dokter      DokterStore
	Pasien      PasienResolver
	Registrasi  Registrasi
	Nomor       Allocator
	Locker      lock.Locker
	Metrics     *metrics.TransferMetrics
	Events      Publisher
	Logger      zerolog.Logger
	DefaultKdPj string
	Now         func() time.Time
}

// TransferService memindahkan booking CONFIRMED menjadi registrasi rawat
// jalan (reg_periksa) di SIMRS.
type TransferService struct {
	Deps
}

func NewTransferService(d Deps) *TransferService {
	if d.Locker == nil {
		panic("transfer: locker required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.DefaultKdPj == "" {
		d.DefaultKdPj = "UMU"
	}
	d.Logger = d.Logger.With().Str("component", "transfer").Logger()
	return &TransferService{Deps: d}
}

// TransferResult adalah registrasi yang dibuat atau ditautkan ke booking.
type TransferResult struct {
	BookingID  int64   `json:"booking_id"`
	NoRawat    string  `json:"no_rawat"`
	NoReg      string  `json:"no_reg"`
	NoRkmMedis string  `json:"no_rkm_medis"`
	NmPasien   string  `json:"nm_pasien"`
	KdPoli     string  `json:"kd_poli"`
	SttsDaftar string  `json:"stts_daftar,omitempty"`
	StatusPoli string  `json:"status_poli,omitempty"`
	Umur       string  `json:"umur,omitempty"`
	BiayaReg   float64 `json:"biaya_reg"`
}

// Transfer membuat satu baris reg_periksa untuk booking id lalu menandai
// booking COMPLETED dengan no_rawat tersebut.
func (s *TransferService) Transfer(ctx context.Context, id int64) (*TransferResult, error) {
	ctx, span := transferTracer.Start(ctx, "transfer.booking")
	defer span.End()
	span.SetAttributes(attribute.Int64("klinik.booking_id", id))

	start := time.Now()
	res, err := s.transfer(ctx, id)
	outcome := outcomeOf(err)
	s.Metrics.ObserveTransfer(outcome, time.Since(start).Seconds())

	logger := s.Logger.With().Int64("booking_id", id).Str("outcome", outcome).Logger()
	if err != nil {
		span.RecordError(err)
		switch KindOf(err) {
		case KindReconciliation, KindAllocation, KindInfrastructure:
			logger.Error().Err(err).Msg("booking transfer failed")
		default:
			logger.Info().Err(err).Msg("booking transfer rejected")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("klinik.no_rawat", res.NoRawat))
	logger.Info().Str("no_rawat", res.NoRawat).Str("no_rkm_medis", res.NoRkmMedis).Msg("booking transferred")
	s.publishTransferred(res)
	return res, nil
}

func (s *TransferService) transfer(ctx context.Context, id int64) (*TransferResult, error) {
	b, d, err := s.precheck(ctx, id)
	if err != nil {
		return nil, err
	}

	tgl := dateOnly(b.Tanggal)
	ctx, unlock, err := s.lockDay(ctx, tgl)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pasien, err := s.Pasien.FindByNIK(ctx, b.NIK)
	if err != nil {
		return nil, err
	}

	existing, err := s.Registrasi.FindRegistrasi(ctx, pasien.NoRkmMedis, tgl, d.KdPoliSIMRS)
	switch {
	case err == nil:
		return nil, &DuplicateRegistrasiError{NoRawat: existing.NoRawat}
	case !errors.Is(err, registryServices.ErrRegistrasiTidakDitemukan):
		return nil, err
	}

	noRawat, err := s.Nomor.NextNoRawat(ctx, tgl)
	if err != nil {
		return nil, err
	}
	noReg, err := s.Nomor.NextNoReg(ctx, tgl, d.KdPoliSIMRS)
	if err != nil {
		return nil, err
	}

	u, err := umur.Hitung(pasien.TglLahir, tgl)
	if err != nil {
		return nil, fmt.Errorf("umur pasien %s: %w", pasien.NoRkmMedis, err)
	}

	var lama, lamaPoli bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lama, err = s.Registrasi.PernahDaftar(gctx, pasien.NoRkmMedis)
		return err
	})
	g.Go(func() error {
		var err error
		lamaPoli, err = s.Registrasi.PernahDaftarPoli(gctx, pasien.NoRkmMedis, d.KdPoliSIMRS)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	biaya, err := s.Registrasi.BiayaRegistrasi(ctx, d.KdPoliSIMRS, lamaPoli)
	if err != nil {
		return nil, err
	}

	reg := registryModels.RegPeriksa{
		NoReg:         noReg,
		NoRawat:       noRawat,
		TglRegistrasi: tgl,
		JamReg:        s.jamReg(b.Jam),
		KdDokter:      d.KdDokterSIMRS,
		NoRkmMedis:    pasien.NoRkmMedis,
		KdPoli:        d.KdPoliSIMRS,
		PJawab:        firstNonEmpty(b.NamaPasien, pasien.NmPasien),
		AlmtPj:        firstNonEmpty(pasien.Alamat, b.Alamat, "-"),
		HubunganPj:    hubunganDiriSendiri,
		BiayaReg:      biaya,
		Stts:          registryModels.SttsBelum,
		SttsDaftar:    statusKunjungan(lama),
		StatusLanjut:  registryModels.StatusRalan,
		KdPj:          firstNonEmpty(b.KdPj, s.DefaultKdPj),
		UmurDaftar:    u.Nilai,
		SttsUmur:      u.Satuan,
		StatusBayar:   registryModels.StatusBelumBayar,
		StatusPoli:    statusKunjungan(lamaPoli),
	}
	if err := context.Cause(ctx); err != nil {
		return nil, fmt.Errorf("registration lock no longer held: %w", err)
	}
	if err := s.Registrasi.Insert(ctx, reg); err != nil {
		return nil, err
	}

	if err := s.Bookings.MarkTransferred(ctx, b.ID, noRawat); err != nil {
		s.Metrics.ObserveReconcileRequired()
		return nil, &ReconcileRequiredError{NoRawat: noRawat, Err: err}
	}

	return &TransferResult{
		BookingID:  b.ID,
		NoRawat:    noRawat,
		NoReg:      noReg,
		NoRkmMedis: pasien.NoRkmMedis,
		NmPasien:   pasien.NmPasien,
		KdPoli:     d.KdPoliSIMRS,
		SttsDaftar: reg.SttsDaftar,
		StatusPoli: reg.StatusPoli,
		Umur:       u.String(),
		BiayaReg:   biaya,
	}, nil
}

// precheck memeriksa syarat transfer secara berurutan. Tidak ada yang
// ditulis sebelum semua syarat terpenuhi.
func (s *TransferService) precheck(ctx context.Context, id int64) (*bookingModels.Booking, *dokterModels.Dokter, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if b.Status == bookingModels.StatusCompleted && b.NoRawat != nil {
		return nil, nil, &DuplicateRegistrasiError{NoRawat: *b.NoRawat}
	}
	if b.Status != bookingModels.StatusConfirmed || b.NoRawat != nil {
		return nil, nil, fmt.Errorf("%w: status %s", ErrBookingBukanConfirmed, b.Status)
	}
	b.NIK = strings.TrimSpace(b.NIK)
	if b.NIK == "" {
		return nil, nil, ErrNIKKosong
	}

	d, err := s.Dokter.GetByID(ctx, b.IDDokter)
	if errors.Is(err, dokterServices.ErrDokterTidakDitemukan) {
		return nil, nil, fmt.Errorf("%w: id_dokter %d", ErrDokterTidakAda, b.IDDokter)
	}
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(d.KdDokterSIMRS) == "" {
		return nil, nil, fmt.Errorf("%w: id_dokter %d", ErrDokterBelumMapping, d.ID)
	}
	if strings.TrimSpace(d.KdPoliSIMRS) == "" {
		return nil, nil, fmt.Errorf("%w: id_dokter %d", ErrPoliBelumMapping, d.ID)
	}
	return b, d, nil
}

// lockDay mengunci alokasi nomor untuk satu tanggal. Context yang
// dikembalikan dibatalkan bila kunci hilang sebelum dilepas.
func (s *TransferService) lockDay(ctx context.Context, tgl time.Time) (context.Context, lock.Unlock, error) {
	waitStart := time.Now()
	held, unlock, err := lock.Acquire(ctx, s.Locker, "transfer:"+tgl.Format("2006-01-02"))
	s.Metrics.ObserveLockWait(time.Since(waitStart).Seconds())
	if err != nil {
		return nil, nil, fmt.Errorf("acquire registration lock %s: %w", tgl.Format("2006-01-02"), err)
	}
	return held, unlock, nil
}

// jamReg menormalkan jam booking ke HH:MM:SS. Booking tanpa jam memakai jam
// saat transfer.
func (s *TransferService) jamReg(jam string) string {
	jam = strings.TrimSpace(jam)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, jam); err == nil {
			return t.Format("15:04:05")
		}
	}
	return s.Now().Format("15:04:05")
}

func (s *TransferService) publishTransferred(res *TransferResult) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ws.EventBookingTransferred, map[string]interface{}{
		"id":       res.BookingID,
		"status":   bookingModels.StatusCompleted,
		"no_rawat": res.NoRawat,
	})
}

func statusKunjungan(lama bool) string {
	if lama {
		return registryModels.StatusLama
	}
	return registryModels.StatusBaru
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var dup *DuplicateRegistrasiError
	switch {
	case errors.As(err, &dup):
		return "duplicate"
	case errors.Is(err, ErrPasienTidakDitemukan):
		return "patient_not_found"
	}
	switch KindOf(err) {
	case KindNotFound, KindPrecondition:
		return "precondition"
	case KindAllocation:
		return "allocation"
	case KindReconciliation:
		return "reconcile_required"
	case KindResolution:
		return "resolution"
	}
	return "error"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
