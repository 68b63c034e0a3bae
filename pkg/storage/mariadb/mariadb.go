package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/c14220110/klinik-booking-backend/config"
	"github.com/go-sql-driver/mysql"
)

// DSN menyusun data source name MariaDB.
// Format: username:password@tcp(host:port)/dbname?parseTime=true&loc=Asia%2FJakarta
func DSN(cfg config.DBConfig, params ...string) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, url.QueryEscape("Asia/Jakarta"))
	if len(params) > 0 {
		dsn += "&" + strings.Join(params, "&")
	}
	return dsn
}

// Open membuka koneksi tanpa pengaturan pool, misalnya untuk migrasi yang
// butuh parameter tambahan seperti multiStatements=true.
func Open(cfg config.DBConfig, params ...string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg, params...))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	return db, nil
}

// Connect membuka koneksi ke database MariaDB dan memastikan server bisa
// dihubungi. Dipakai untuk database booking maupun database SIMRS.
func Connect(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Name, err)
	}

	return db, nil
}

// IsDuplicateKey melaporkan apakah err adalah pelanggaran unique/primary key
// MySQL (error 1062).
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
