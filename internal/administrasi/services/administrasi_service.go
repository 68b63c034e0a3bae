package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/c14220110/klinik-booking-backend/internal/administrasi/models"
	"github.com/c14220110/klinik-booking-backend/pkg/storage/mariadb"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

type AdministrasiService struct {
	DB *sql.DB
}

func NewAdministrasiService(db *sql.DB) *AdministrasiService {
	return &AdministrasiService{DB: db}
}

// AuthenticateAdmin memeriksa username dan password admin.
func (s *AdministrasiService) AuthenticateAdmin(ctx context.Context, username, password string) (*models.Administrasi, error) {
	var admin models.Administrasi
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, nama, username, password, role, created_at FROM admin WHERE username = ?`,
		username,
	).Scan(&admin.ID, &admin.Nama, &admin.Username, &admin.Password, &admin.Role, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &admin, nil
}

// CreateAdmin membuat akun admin baru dengan password yang di-hash bcrypt.
func (s *AdministrasiService) CreateAdmin(ctx context.Context, nama, username, password string) (*models.Administrasi, error) {
	username = strings.TrimSpace(username)
	if nama == "" || username == "" || password == "" {
		return nil, fmt.Errorf("nama, username, and password are required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO admin (nama, username, password, role, created_at) VALUES (?, ?, ?, ?, NOW())`,
		nama, username, string(hashed), models.RoleAdmin,
	)
	if mariadb.IsDuplicateKey(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert admin id: %w", err)
	}
	return &models.Administrasi{ID: id, Nama: nama, Username: username, Role: models.RoleAdmin}, nil
}
