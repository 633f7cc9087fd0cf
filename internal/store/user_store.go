package store

import (
	"context"

	"vahanbid/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, kyc_status, eligible_for_bid, registration_fee_paid)
		VALUES ($1, $2, $3, $4, 'pending', FALSE, FALSE)
	`, id, username, email, passwordHash)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, kyc_status, eligible_for_bid, registration_fee_paid, created_at
		FROM users
		WHERE id = $1
	`, userID)
	return row, err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, kyc_status, eligible_for_bid, registration_fee_paid, created_at
		FROM users
		WHERE email = $1
	`, email)
	return row, err
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, kyc_status, eligible_for_bid, registration_fee_paid, created_at
		FROM users
		WHERE username = $1
	`, username)
	return row, err
}

func (s *UserStore) SetKYCStatus(ctx context.Context, tx Execer, userID string, status models.KYCStatus, eligible bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET kyc_status = $1, eligible_for_bid = $2, updated_at = NOW()
		WHERE id = $3
	`, status, eligible, userID)
	return err
}

func (s *UserStore) MarkRegistrationPaid(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET registration_fee_paid = TRUE, updated_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, username, email, password_hash, kyc_status, eligible_for_bid, registration_fee_paid, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
