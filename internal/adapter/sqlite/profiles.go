package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/roomlist/internal/domain"
)

// Compile-time check: ProfileStore implements domain.ProfileDirectory.
var _ domain.ProfileDirectory = (*ProfileStore)(nil)

// ProfileStore keeps owner defaults in the owner_profiles table.
// The table is created by the room repository migrations.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore returns a store sharing db with the room repository.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// ContactPhone returns the saved phone, or "" when the owner has none.
func (s *ProfileStore) ContactPhone(ctx context.Context, ownerID string) (string, error) {
	var phone string
	err := s.db.QueryRowContext(ctx,
		`SELECT contact_phone FROM owner_profiles WHERE owner_id = ?`, ownerID,
	).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading owner profile: %w", err)
	}
	return phone, nil
}

// SaveContactPhone upserts the owner's default phone.
func (s *ProfileStore) SaveContactPhone(ctx context.Context, ownerID, phone string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO owner_profiles (owner_id, contact_phone, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (owner_id) DO UPDATE SET contact_phone = excluded.contact_phone, updated_at = excluded.updated_at`,
		ownerID, phone, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("saving owner profile: %w", err)
	}
	return nil
}
