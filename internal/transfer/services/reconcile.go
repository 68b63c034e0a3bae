package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
)

// Reconcile menautkan booking CONFIRMED ke registrasi yang sudah ada di SIMRS
// untuk tanggal dan poli yang sama. Dipakai setelah transfer berakhir dengan
// ReconcileRequiredError, atau bila pasien sudah didaftarkan langsung di
// loket.
func (s *TransferService) Reconcile(ctx context.Context, id int64) (*TransferResult, error) {
	ctx, span := transferTracer.Start(ctx, "transfer.reconcile")
	defer span.End()
	span.SetAttributes(attribute.Int64("klinik.booking_id", id))

	res, err := s.reconcile(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.Logger.Info().Int64("booking_id", id).Str("no_rawat", res.NoRawat).Msg("booking reconciled")
	s.publishTransferred(res)
	return res, nil
}

func (s *TransferService) reconcile(ctx context.Context, id int64) (*TransferResult, error) {
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
	reg, err := s.Registrasi.FindRegistrasi(ctx, pasien.NoRkmMedis, tgl, d.KdPoliSIMRS)
	if err != nil {
		return nil, err
	}
	if err := s.Bookings.MarkTransferred(ctx, b.ID, reg.NoRawat); err != nil {
		return nil, fmt.Errorf("link booking %d to %s: %w", b.ID, reg.NoRawat, err)
	}

	return &TransferResult{
		BookingID:  b.ID,
		NoRawat:    reg.NoRawat,
		NoReg:      reg.NoReg,
		NoRkmMedis: pasien.NoRkmMedis,
		NmPasien:   pasien.NmPasien,
		KdPoli:     reg.KdPoli,
	}, nil
}

// ReconcileReport merangkum satu putaran ReconcileAll.
type ReconcileReport struct {
	Checked int              `json:"checked"`
	Linked  []TransferResult `json:"linked"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

// ReconcileAll memeriksa semua booking CONFIRMED sejak since dan menautkan
// yang registrasinya sudah ada di SIMRS. Booking yang belum punya registrasi
// atau belum lengkap datanya dilewati.
func (s *TransferService) ReconcileAll(ctx context.Context, since time.Time) (*ReconcileReport, error) {
	bookings, err := s.Bookings.ListConfirmedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Failed: map[int64]string{}}
	for _, b := range bookings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		res, err := s.Reconcile(ctx, b.ID)
		switch {
		case err == nil:
			report.Linked = append(report.Linked, *res)
		case errors.Is(err, registryServices.ErrRegistrasiTidakDitemukan),
			KindOf(err) == KindPrecondition,
			errors.Is(err, ErrPasienTidakDitemukan):
			// belum ada yang bisa ditautkan
		default:
			report.Failed[b.ID] = err.Error()
			s.Logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("reconcile booking failed")
		}
	}
	return report, nil
}
