package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingModels "github.com/c14220110/klinik-booking-backend/internal/booking/models"
	dokterModels "github.com/c14220110/klinik-booking-backend/internal/dokter/models"
	registryModels "github.com/c14220110/klinik-booking-backend/internal/registry/models"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
	"github.com/c14220110/klinik-booking-backend/ws"
)

const nikSiti = "3201234501029901"

var (
	tglKunjungan = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	fixedNow     = time.Date(2026, 10, 19, 14, 5, 0, 0, time.UTC)
)

func confirmedBooking(id int64) bookingModels.Booking {
	return bookingModels.Booking{
		ID:         id,
		NamaPasien: "Siti Aminah",
		NIK:        nikSiti,
		Alamat:     "Jl. Mawar 1",
		IDDokter:   7,
		Tanggal:    tglKunjungan,
		Jam:        "09:30",
		Status:     bookingModels.StatusConfirmed,
	}
}

func mappedDokter() fakeDokter {
	return fakeDokter{7: {ID: 7, Nama: "dr. Andi", KdDokterSIMRS: "D0001", KdPoliSIMRS: "U0001"}}
}

func registeredSiti() *fakeRegistry {
	return &fakeRegistry{
		pasien: []registryModels.Pasien{{
			NoRkmMedis: "000123",
			NmPasien:   "SITI AMINAH",
			NoKTP:      nikSiti,
			JK:         "P",
			TglLahir:   time.Date(2002, 1, 5, 0, 0, 0, 0, time.UTC),
			Alamat:     "Jl. Mawar 1",
		}},
		biaya: map[string][2]float64{"U0001": {15000, 10000}},
	}
}

type fixture struct {
	svc      *TransferService
	bookings *fakeBookings
	registry *fakeRegistry
	locker   *countingLocker
	events   *recordingPublisher
}

func newFixture(bookings *fakeBookings, dokter fakeDokter, registry *fakeRegistry) *fixture {
	locker := &countingLocker{Locker: lock.NewLocal(time.Second)}
	events := &recordingPublisher{}
	svc := NewTransferService(Deps{
		Bookings:   bookings,
		Dokter:     dokter,
		Pasien:     registry,
		Registrasi: registry,
		Nomor:      registry,
		Locker:     locker,
		Events:     events,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, bookings: bookings, registry: registry, locker: locker, events: events}
}

func TestTransfer_Success(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	f.registry.rows = []registryModels.RegPeriksa{{NoRawat: "2026/10/20/000041", NoReg: "041", TglRegistrasi: tglKunjungan, NoRkmMedis: "000999", KdPoli: "U0002"}}

	res, err := f.svc.Transfer(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "2026/10/20/000042", res.NoRawat)
	assert.Equal(t, "042", res.NoReg)
	assert.Equal(t, "000123", res.NoRkmMedis)
	assert.Equal(t, "SITI AMINAH", res.NmPasien)
	assert.Equal(t, "24 Th", res.Umur)

	require.Equal(t, 2, f.registry.rowCount())
	row := f.registry.rows[1]
	assert.Equal(t, "D0001", row.KdDokter)
	assert.Equal(t, "U0001", row.KdPoli)
	assert.Equal(t, "09:30:00", row.JamReg)
	assert.Equal(t, "UMU", row.KdPj)
	assert.Equal(t, registryModels.StatusBaru, row.SttsDaftar)
	assert.Equal(t, registryModels.StatusBaru, row.StatusPoli)
	assert.Equal(t, 15000.0, row.BiayaReg)
	assert.Equal(t, 24, row.UmurDaftar)
	assert.Equal(t, "Th", row.SttsUmur)
	assert.Equal(t, registryModels.SttsBelum, row.Stts)
	assert.Equal(t, registryModels.StatusRalan, row.StatusLanjut)
	assert.Equal(t, registryModels.StatusBelumBayar, row.StatusBayar)

	b := f.bookings.get(1)
	assert.Equal(t, bookingModels.StatusCompleted, b.Status)
	require.NotNil(t, b.NoRawat)
	assert.Equal(t, "2026/10/20/000042", *b.NoRawat)

	_, locked := f.locker.keys.Load("transfer:2026-10-20")
	assert.True(t, locked)
	assert.Equal(t, []string{ws.EventBookingTransferred}, f.events.events)
}

func TestTransfer_ReturningPatientUsesBookingKdPj(t *testing.T) {
	b := confirmedBooking(1)
	b.KdPj = "BPJ"
	b.Jam = ""
	f := newFixture(newFakeBookings(b), mappedDokter(), registeredSiti())
	f.registry.rows = []registryModels.RegPeriksa{
		{NoRawat: "2026/03/01/000001", NoReg: "001", TglRegistrasi: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), NoRkmMedis: "000123", KdPoli: "U0001"},
	}

	res, err := f.svc.Transfer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2026/10/20/000001", res.NoRawat)
	assert.Equal(t, "001", res.NoReg)

	row := f.registry.rows[1]
	assert.Equal(t, "BPJ", row.KdPj)
	assert.Equal(t, "14:05:00", row.JamReg)
	assert.Equal(t, registryModels.StatusLama, row.SttsDaftar)
	assert.Equal(t, registryModels.StatusLama, row.StatusPoli)
	assert.Equal(t, 10000.0, row.BiayaReg)
}

func TestTransfer_PreconditionOrder(t *testing.T) {
	noNIKUnmapped := confirmedBooking(3)
	noNIKUnmapped.NIK = "  "
	noNIKUnmapped.IDDokter = 8

	unmappedDoctor := confirmedBooking(4)
	unmappedDoctor.IDDokter = 8

	noPoli := confirmedBooking(5)
	noPoli.IDDokter = 9

	unknownDoctor := confirmedBooking(6)
	unknownDoctor.IDDokter = 404

	pending := confirmedBooking(2)
	pending.Status = bookingModels.StatusPending

	done := confirmedBooking(7)
	done.Status = bookingModels.StatusCompleted

	dokter := mappedDokter()
	dokter[8] = dokterModels.Dokter{ID: 8, KdPoliSIMRS: "U0001"}
	dokter[9] = dokterModels.Dokter{ID: 9, KdDokterSIMRS: "D0009"}

	bookings := newFakeBookings(pending, noNIKUnmapped, unmappedDoctor, noPoli, unknownDoctor, done)

	tests := []struct {
		name string
		id   int64
		want error
	}{
		{"missing booking", 99, ErrBookingTidakDitemukan},
		{"pending booking", 2, ErrBookingBukanConfirmed},
		{"completed booking", 7, ErrBookingBukanConfirmed},
		{"nik checked before doctor mapping", 3, ErrNIKKosong},
		{"doctor without registry code", 4, ErrDokterBelumMapping},
		{"doctor without department code", 5, ErrPoliBelumMapping},
		{"doctor row missing", 6, ErrDokterTidakAda},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(bookings, dokter, registeredSiti())

			_, err := f.svc.Transfer(context.Background(), tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.registry.rowCount())
			assert.Zero(t, f.locker.calls.Load(), "lock must not be taken before preconditions pass")
		})
	}

	assert.Equal(t, KindNotFound, KindOf(ErrBookingTidakDitemukan))
	assert.Equal(t, KindPrecondition, KindOf(fmt.Errorf("wrap: %w", ErrNIKKosong)))
}

func TestTransfer_PatientNotRegistered(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), &fakeRegistry{})

	_, err := f.svc.Transfer(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPasienTidakDitemukan)
	assert.Equal(t, KindResolution, KindOf(err))

	b := f.bookings.get(1)
	assert.Equal(t, bookingModels.StatusConfirmed, b.Status)
	assert.Nil(t, b.NoRawat)
	assert.Zero(t, f.registry.rowCount())
	assert.Empty(t, f.events.events)
}

func TestTransfer_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	f.registry.rows = []registryModels.RegPeriksa{
		{NoRawat: "2026/10/20/000007", NoReg: "007", TglRegistrasi: tglKunjungan, NoRkmMedis: "000123", KdPoli: "U0001"},
	}

	for i := 0; i < 2; i++ {
		_, err := f.svc.Transfer(context.Background(), 1)
		var dup *DuplicateRegistrasiError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "2026/10/20/000007", dup.NoRawat)
		assert.Equal(t, KindResolution, KindOf(err))
	}

	assert.Equal(t, 1, f.registry.rowCount())
	assert.Equal(t, bookingModels.StatusConfirmed, f.bookings.get(1).Status)
}

func TestTransfer_TwiceReportsFirstNoRawat(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())

	first, err := f.svc.Transfer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2026/10/20/000001", first.NoRawat)

	_, err = f.svc.Transfer(context.Background(), 1)
	var dup *DuplicateRegistrasiError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, first.NoRawat, dup.NoRawat)
	assert.Equal(t, KindResolution, KindOf(err))

	assert.Equal(t, 1, f.registry.rowCount())
	assert.Equal(t, bookingModels.StatusCompleted, f.bookings.get(1).Status)
}

func TestTransfer_AllocationFailureWritesNothing(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	f.registry.nomorErr = fmt.Errorf("%w: no_rawat %q", registryServices.ErrNomorRusak, "2026/10/20/ABC")

	_, err := f.svc.Transfer(context.Background(), 1)
	assert.ErrorIs(t, err, registryServices.ErrNomorRusak)
	assert.Equal(t, KindAllocation, KindOf(err))
	assert.Zero(t, f.registry.rowCount())
}

func TestTransfer_ReconcileRequired(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	f.bookings.markErr = errors.New("primary db down")

	_, err := f.svc.Transfer(context.Background(), 1)
	var rec *ReconcileRequiredError
	require.True(t, errors.As(err, &rec))
	assert.Equal(t, "2026/10/20/000001", rec.NoRawat)
	assert.Equal(t, KindReconciliation, KindOf(err))
	assert.Equal(t, 1, f.registry.rowCount())
	assert.Equal(t, bookingModels.StatusConfirmed, f.bookings.get(1).Status)

	// Transfer ulang tidak menulis baris kedua.
	f.bookings.markErr = nil
	_, err = f.svc.Transfer(context.Background(), 1)
	var dup *DuplicateRegistrasiError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, rec.NoRawat, dup.NoRawat)

	res, err := f.svc.Reconcile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, rec.NoRawat, res.NoRawat)
	assert.Equal(t, 1, f.registry.rowCount())

	b := f.bookings.get(1)
	assert.Equal(t, bookingModels.StatusCompleted, b.Status)
	assert.Equal(t, rec.NoRawat, *b.NoRawat)
}

func TestReconcile_NothingToLink(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())

	_, err := f.svc.Reconcile(context.Background(), 1)
	assert.ErrorIs(t, err, registryServices.ErrRegistrasiTidakDitemukan)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, bookingModels.StatusConfirmed, f.bookings.get(1).Status)
}

func TestReconcileAll(t *testing.T) {
	linked := confirmedBooking(1)
	pendingRegistry := confirmedBooking(2)
	pendingRegistry.NIK = "3201230101900001"
	noNIK := confirmedBooking(3)
	noNIK.NIK = ""
	old := confirmedBooking(4)
	old.Tanggal = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	f := newFixture(newFakeBookings(linked, pendingRegistry, noNIK, old), mappedDokter(), registeredSiti())
	f.registry.rows = []registryModels.RegPeriksa{
		{NoRawat: "2026/10/20/000003", NoReg: "003", TglRegistrasi: tglKunjungan, NoRkmMedis: "000123", KdPoli: "U0001"},
	}

	report, err := f.svc.ReconcileAll(context.Background(), time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Linked, 1)
	assert.Equal(t, int64(1), report.Linked[0].BookingID)
	assert.Empty(t, report.Failed)
	assert.Equal(t, bookingModels.StatusConfirmed, f.bookings.get(4).Status)
}

func TestTransfer_ConcurrentSameDayGetsDistinctNumbers(t *testing.T) {
	const n = 20
	var bookings []bookingModels.Booking
	registry := &fakeRegistry{biaya: map[string][2]float64{}}
	for i := 1; i <= n; i++ {
		b := confirmedBooking(int64(i))
		b.NIK = fmt.Sprintf("32012345010299%02d", i)
		bookings = append(bookings, b)
		registry.pasien = append(registry.pasien, registryModels.Pasien{
			NoRkmMedis: fmt.Sprintf("%06d", i),
			NoKTP:      b.NIK,
			TglLahir:   time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	f := newFixture(newFakeBookings(bookings...), mappedDokter(), registry)

	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			res, err := f.svc.Transfer(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			results <- res.NoRawat
		}(int64(i))
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for noRawat := range results {
		assert.False(t, seen[noRawat], "duplicate no_rawat %s", noRawat)
		seen[noRawat] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, registry.rowCount())
}

// leaseLostLocker memberi kunci yang lease-nya sudah hilang saat dipegang.
type leaseLostLocker struct{}

func (leaseLostLocker) Lock(context.Context, string) (lock.Unlock, error) { return func() {}, nil }

func (leaseLostLocker) LockGuarded(ctx context.Context, _ string) (context.Context, lock.Unlock, error) {
	held, cancel := context.WithCancelCause(ctx)
	cancel(lock.ErrLost)
	return held, func() {}, nil
}

func TestTransfer_LostLockWritesNothing(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	f.svc.Locker = leaseLostLocker{}

	_, err := f.svc.Transfer(context.Background(), 1)
	assert.ErrorIs(t, err, lock.ErrLost)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Zero(t, f.registry.rowCount())
	assert.Equal(t, bookingModels.StatusConfirmed, f.bookings.get(1).Status)
}

func TestTransfer_LockTimeout(t *testing.T) {
	f := newFixture(newFakeBookings(confirmedBooking(1)), mappedDokter(), registeredSiti())
	held := lock.NewLocal(20 * time.Millisecond)
	f.locker.Locker = held
	unlock, err := held.Lock(context.Background(), "transfer:2026-10-20")
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.Transfer(context.Background(), 1)
	assert.ErrorIs(t, err, lock.ErrTimeout)
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Zero(t, f.registry.rowCount())
}
