package services

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bookingModels "github.com/c14220110/klinik-booking-backend/internal/booking/models"
	bookingServices "github.com/c14220110/klinik-booking-backend/internal/booking/services"
	dokterModels "github.com/c14220110/klinik-booking-backend/internal/dokter/models"
	dokterServices "github.com/c14220110/klinik-booking-backend/internal/dokter/services"
	registryModels "github.com/c14220110/klinik-booking-backend/internal/registry/models"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
)

type fakeBookings struct {
	mu      sync.Mutex
	items   map[int64]*bookingModels.Booking
	markErr error
}

func newFakeBookings(bs ...bookingModels.Booking) *fakeBookings {
	f := &fakeBookings{items: map[int64]*bookingModels.Booking{}}
	for i := range bs {
		b := bs[i]
		f.items[b.ID] = &b
	}
	return f
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*bookingModels.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return nil, bookingServices.ErrBookingTidakDitemukan
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) MarkTransferred(_ context.Context, id int64, noRawat string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	b, ok := f.items[id]
	if !ok || b.Status != bookingModels.StatusConfirmed || b.NoRawat != nil {
		return bookingServices.ErrStatusBerubah
	}
	b.Status = bookingModels.StatusCompleted
	b.NoRawat = &noRawat
	return nil
}

func (f *fakeBookings) ListConfirmedSince(_ context.Context, since time.Time) ([]bookingModels.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []bookingModels.Booking
	for _, b := range f.items {
		if b.Status == bookingModels.StatusConfirmed && b.NoRawat == nil && !b.Tanggal.Before(since) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookings) get(id int64) bookingModels.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

type fakeDokter map[int64]dokterModels.Dokter

func (f fakeDokter) GetByID(_ context.Context, id int64) (*dokterModels.Dokter, error) {
	d, ok := f[id]
	if !ok {
		return nil, dokterServices.ErrDokterTidakDitemukan
	}
	return &d, nil
}

// fakeRegistry meniru tabel pasien, reg_periksa, dan poliklinik SIMRS.
type fakeRegistry struct {
	mu       sync.Mutex
	pasien   []registryModels.Pasien
	rows     []registryModels.RegPeriksa
	biaya    map[string][2]float64
	nomorErr error
	nextRM   int
	inserted []registryModels.PasienBaru
}

func (f *fakeRegistry) FindByNIK(_ context.Context, nik string) (*registryModels.Pasien, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pasien {
		if p.NoKTP == nik {
			cp := p
			return &cp, nil
		}
	}
	return nil, registryServices.ErrPasienTidakDitemukan
}

func (f *fakeRegistry) FindRegistrasi(_ context.Context, noRM string, tgl time.Time, kdPoli string) (*registryModels.RegPeriksa, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.NoRkmMedis == noRM && r.KdPoli == kdPoli && r.TglRegistrasi.Format("2006-01-02") == tgl.Format("2006-01-02") {
			cp := r
			return &cp, nil
		}
	}
	return nil, registryServices.ErrRegistrasiTidakDitemukan
}

func (f *fakeRegistry) PernahDaftar(_ context.Context, noRM string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.NoRkmMedis == noRM {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) PernahDaftarPoli(_ context.Context, noRM, kdPoli string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.NoRkmMedis == noRM && r.KdPoli == kdPoli {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) BiayaRegistrasi(_ context.Context, kdPoli string, lama bool) (float64, error) {
	b := f.biaya[kdPoli]
	if lama {
		return b[1], nil
	}
	return b[0], nil
}

func (f *fakeRegistry) Insert(_ context.Context, r registryModels.RegPeriksa) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.NoRawat == r.NoRawat {
			return fmt.Errorf("%w: no_rawat %s", registryServices.ErrNomorBentrok, r.NoRawat)
		}
	}
	f.rows = append(f.rows, r)
	return nil
}

// NextNoRawat sengaja melepas mutex sebelum mengembalikan nomor sehingga dua
// pemanggil tanpa kunci luar akan mendapat nomor yang sama.
func (f *fakeRegistry) NextNoRawat(_ context.Context, tgl time.Time) (string, error) {
	if f.nomorErr != nil {
		return "", f.nomorErr
	}
	prefix := tgl.Format("2006/01/02") + "/"
	f.mu.Lock()
	max := 0
	for _, r := range f.rows {
		if strings.HasPrefix(r.NoRawat, prefix) {
			n, _ := strconv.Atoi(strings.TrimPrefix(r.NoRawat, prefix))
			if n > max {
				max = n
			}
		}
	}
	f.mu.Unlock()
	runtime.Gosched()
	return fmt.Sprintf("%s%06d", prefix, max+1), nil
}

func (f *fakeRegistry) NextNoReg(_ context.Context, tgl time.Time, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, r := range f.rows {
		if r.TglRegistrasi.Format("2006-01-02") == tgl.Format("2006-01-02") {
			n, _ := strconv.Atoi(r.NoReg)
			if n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("%03d", max+1), nil
}

func (f *fakeRegistry) NextNoRkmMedis(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRM++
	return fmt.Sprintf("%06d", f.nextRM), nil
}

func (f *fakeRegistry) InsertPasien(noRM string, p registryModels.PasienBaru) {
	f.pasien = append(f.pasien, registryModels.Pasien{NoRkmMedis: noRM, NmPasien: p.NmPasien, NoKTP: p.NoKTP, JK: p.JK, TglLahir: p.TglLahir})
	f.inserted = append(f.inserted, p)
}

func (f *fakeRegistry) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakePasienRegistrar membungkus fakeRegistry dengan method Insert pasien.
type fakePasienRegistrar struct{ *fakeRegistry }

func (f fakePasienRegistrar) Insert(_ context.Context, noRM string, p registryModels.PasienBaru, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertPasien(noRM, p)
	return nil
}

type countingLocker struct {
	lock.Locker
	calls atomic.Int32
	keys  sync.Map
}

func (c *countingLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	c.calls.Add(1)
	c.keys.Store(key, true)
	return c.Locker.Lock(ctx, key)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}
