package store

import (
	"context"

	"vahanbid/internal/models"
)

type ListingStore struct {
	db DB
}

func NewListingStore(db DB) *ListingStore {
	return &ListingStore{db: db}
}

type ListingInput struct {
	ID                 string
	SellerID           string
	Title              string
	Category           string
	Brand              string
	Model              string
	Year               int
	RegistrationNo     string
	OEM                *string
	IsCertified        bool
	IsFinanceAvailable bool
	SaleMode           models.SaleMode
	ListingPrice       int64
	ReservePrice       *int64
}

func (s *ListingStore) Create(ctx context.Context, tx Execer, input ListingInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO listings (id, seller_id, title, category, brand, model, year, registration_no,
		                      oem, is_certified, is_finance_available, sale_mode, listing_price,
		                      reserve_price, moderation_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'PENDING')
	`, input.ID, input.SellerID, input.Title, input.Category, input.Brand, input.Model,
		input.Year, input.RegistrationNo, input.OEM, input.IsCertified, input.IsFinanceAvailable,
		input.SaleMode, input.ListingPrice, input.ReservePrice)
	return err
}

const listingColumns = `
	id, seller_id, title, category, brand, model, year, registration_no,
	oem, is_certified, is_finance_available, sale_mode, listing_price,
	reserve_price, moderation_state, rejection_reason, created_at, updated_at
`

func (s *ListingStore) GetByID(ctx context.Context, listingID string) (models.Listing, error) {
	var row models.Listing
	err := s.db.GetContext(ctx, &row, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1
	`, listingID)
	return row, err
}

func (s *ListingStore) GetForUpdate(ctx context.Context, tx Getter, listingID string) (models.Listing, error) {
	var row models.Listing
	err := tx.GetContext(ctx, &row, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1
		FOR UPDATE
	`, listingID)
	return row, err
}

func (s *ListingStore) SetModerationState(ctx context.Context, tx Execer, listingID string, state models.ModerationState, reason *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET moderation_state = $1, rejection_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, state, reason, listingID)
	return err
}

// ApplyApprovalOverrides writes the admin-supplied listing fields that ride
// along with an approval. Nil pointers leave the stored value untouched.
func (s *ListingStore) ApplyApprovalOverrides(ctx context.Context, tx Execer, listingID string, reservePrice *int64, oem *string, isCertified, isFinanceAvailable *bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET reserve_price        = COALESCE($1, reserve_price),
		    oem                  = COALESCE($2, oem),
		    is_certified         = COALESCE($3, is_certified),
		    is_finance_available = COALESCE($4, is_finance_available),
		    updated_at           = NOW()
		WHERE id = $5
	`, reservePrice, oem, isCertified, isFinanceAvailable, listingID)
	return err
}

func (s *ListingStore) List(ctx context.Context, state, sellerID string, limit, offset int) ([]models.Listing, error) {
	var rows []models.Listing
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE ($1 = '' OR moderation_state = $1)
		  AND ($2 = '' OR seller_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	err := s.db.SelectContext(ctx, &rows, query, state, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
