package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MySQL memakai GET_LOCK milik server registry, sehingga kunci berlaku untuk
// semua instance yang menulis ke registry yang sama. Kunci terikat pada satu
// koneksi, jadi koneksi ditahan sampai Unlock dipanggil.
type MySQL struct {
	db      *sql.DB
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewMySQL(db *sql.DB, prefix string, timeout time.Duration, logger zerolog.Logger) *MySQL {
	if prefix == "" {
		prefix = "klinik:"
	}
	return &MySQL{db: db, prefix: prefix, timeout: timeout, logger: logger}
}

func (m *MySQL) Lock(ctx context.Context, key string) (Unlock, error) {
	name := m.prefix + key
	// MySQL membatasi nama lock 64 karakter.
	if len(name) > 64 {
		return nil, fmt.Errorf("lock: mysql lock name too long: %q", name)
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock: acquire connection: %w", err)
	}

	var got sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, m.timeout.Seconds()).Scan(&got)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("lock: get_lock %s: %w", name, err)
	}
	if !got.Valid || got.Int64 != 1 {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", name); err != nil {
			m.logger.Error().Err(err).Str("lock", name).Msg("gagal melepas mysql lock")
		}
	}, nil
}
