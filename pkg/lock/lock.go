// Package lock menyediakan kunci bernama untuk menserialkan pekerjaan per
// scope, misalnya alokasi nomor registrasi per tanggal.
package lock

import (
	"context"
	"errors"
)

var (
	ErrTimeout = errors.New("lock: timed out waiting for lock")
	// ErrLost dipakai sebagai cause context saat kunci berbasis lease hilang
	// sebelum Unlock dipanggil.
	ErrLost = errors.New("lock: lease lost while held")
)

// Unlock melepas kunci. Aman dipanggil lebih dari sekali.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Guarded dipenuhi oleh kunci yang bisa hilang selagi dipegang (lease).
// Context yang dikembalikan dibatalkan dengan cause ErrLost saat itu terjadi.
type Guarded interface {
	LockGuarded(ctx context.Context, key string) (context.Context, Unlock, error)
}

// Acquire mengambil kunci dan mengembalikan context yang harus dipakai untuk
// pekerjaan di dalam critical section. Untuk Locker biasa context itu hanya
// dibatalkan saat Unlock.
func Acquire(ctx context.Context, l Locker, key string) (context.Context, Unlock, error) {
	if g, ok := l.(Guarded); ok {
		return g.LockGuarded(ctx, key)
	}
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	held, cancel := context.WithCancel(ctx)
	return held, func() {
		unlock()
		cancel()
	}, nil
}
