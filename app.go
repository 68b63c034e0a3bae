package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/c14220110/klinik-booking-backend/config"
	adminServices "github.com/c14220110/klinik-booking-backend/internal/administrasi/services"
	bookingServices "github.com/c14220110/klinik-booking-backend/internal/booking/services"
	dokterServices "github.com/c14220110/klinik-booking-backend/internal/dokter/services"
	"github.com/c14220110/klinik-booking-backend/internal/observability/metrics"
	registryServices "github.com/c14220110/klinik-booking-backend/internal/registry/services"
	"github.com/c14220110/klinik-booking-backend/internal/routes"
	transferServices "github.com/c14220110/klinik-booking-backend/internal/transfer/services"
	"github.com/c14220110/klinik-booking-backend/pkg/lock"
	"github.com/c14220110/klinik-booking-backend/pkg/logger"
	"github.com/c14220110/klinik-booking-backend/pkg/storage/mariadb"
	redisstore "github.com/c14220110/klinik-booking-backend/pkg/storage/redis"
	"github.com/c14220110/klinik-booking-backend/ws"
)

// app menyimpan semua koneksi dan service yang dipakai oleh subcommand.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	db    *sql.DB
	simrs *sql.DB
	redis *goredis.Client

	locker   lock.Locker
	hub      *ws.Hub
	registry *prometheus.Registry

	admin       *adminServices.AdministrasiService
	booking     *bookingServices.BookingService
	dokter      *dokterServices.DokterService
	transfer    *transferServices.TransferService
	pendaftaran *transferServices.PendaftaranService
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, log, nil
}

// newApp membuka kedua database lalu merakit service transfer. Hub hanya
// dibuat untuk server; subcommand CLI tidak menyiarkan event.
func newApp(ctx context.Context, withHub bool) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}

	if a.db, err = mariadb.Connect(ctx, cfg.DB); err != nil {
		return nil, fmt.Errorf("connect booking database: %w", err)
	}
	if a.simrs, err = mariadb.Connect(ctx, cfg.SIMRS); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect SIMRS database: %w", err)
	}
	if err := a.initLocker(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	transferMetrics := metrics.NewTransferMetrics(a.registry)

	var events transferServices.Publisher
	if withHub {
		a.hub = ws.NewHub(log)
		events = a.hub
	}

	nomor := registryServices.NewNomorService(a.simrs, cfg.NoRegPerPoli)
	pasien := registryServices.NewPasienService(a.simrs)
	registrasi := registryServices.NewRegistrasiService(a.simrs)
	referensi := registryServices.NewReferensiService(a.simrs)

	a.admin = adminServices.NewAdministrasiService(a.db)
	a.booking = bookingServices.NewBookingService(a.db)
	a.dokter = dokterServices.NewDokterService(a.db, referensi)

	a.transfer = transferServices.NewTransferService(transferServices.Deps{
		Bookings:    a.booking,
		Dokter:      a.dokter,
		Pasien:      pasien,
		Registrasi:  registrasi,
		Nomor:       nomor,
		Locker:      a.locker,
		Metrics:     transferMetrics,
		Events:      events,
		Logger:      log,
		DefaultKdPj: cfg.DefaultKdPj,
	})
	a.pendaftaran = transferServices.NewPendaftaranService(a.booking, pasien, nomor, a.locker, cfg.DefaultKdPj, log)

	log.Info().
		Str("lock_backend", cfg.LockBackend).
		Bool("no_reg_per_poli", cfg.NoRegPerPoli).
		Msg("services initialized")
	return a, nil
}

func (a *app) initLocker(ctx context.Context) error {
	switch a.cfg.LockBackend {
	case "redis":
		client, err := redisstore.Connect(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		a.locker = lock.NewRedis(client, lock.RedisOptions{TTL: a.cfg.LockTTL, Timeout: a.cfg.LockTimeout}, a.logger)
	case "mysql":
		// GET_LOCK pada database SIMRS supaya aplikasi lain yang menulis ke
		// reg_periksa bisa memakai nama kunci yang sama.
		a.locker = lock.NewMySQL(a.simrs, "", a.cfg.LockTimeout, a.logger)
	default:
		a.locker = lock.NewLocal(a.cfg.LockTimeout)
	}
	return nil
}

func (a *app) routes() routes.Deps {
	return routes.Deps{
		Admin:       a.admin,
		Booking:     a.booking,
		Dokter:      a.dokter,
		Transfer:    a.transfer,
		Pendaftaran: a.pendaftaran,
		Hub:         a.hub,
		Gatherer:    a.registry,
		Checks: map[string]routes.Checker{
			"db":    a.db.PingContext,
			"simrs": a.simrs.PingContext,
		},
		JWTSecret: a.cfg.JWTSecret,
		TokenTTL:  a.cfg.JWTTTL,
		Logger:    a.logger,
	}
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.simrs != nil {
		a.simrs.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
