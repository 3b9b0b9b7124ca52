package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

// compile-time check that *DB implements repository.IdentityLinkRepository
var _ repository.IdentityLinkRepository = (*DB)(nil)

// CreateLink inserts the link and fills in ID and CreatedAt.
func (db *DB) CreateLink(ctx context.Context, link *model.IdentityLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO identity_links (provider, provider_id, user_id, unlinked_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(link.Provider),
		link.ProviderID,
		link.UserID,
		link.UnlinkedAt,
		link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("identity link", "external identity is already linked")
		}
		return fmt.Errorf("sqlite: inserting identity link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new identity link id: %w", err)
	}
	link.ID = id
	return nil
}

// GetLinkByProviderID returns the most recent link row for the external
// identity — linked or unlinked; the caller decides what an unlinked row
// means.
func (db *DB) GetLinkByProviderID(ctx context.Context, provider model.OAuthProvider, providerID string) (*model.IdentityLink, error) {
	var (
		l    model.IdentityLink
		prov string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, user_id, unlinked_at, created_at
		 FROM identity_links
		 WHERE provider = ? AND provider_id = ?
		 ORDER BY id DESC LIMIT 1`,
		string(provider), providerID,
	).Scan(
		&l.ID,
		&prov,
		&l.ProviderID,
		&l.UserID,
		&l.UnlinkedAt,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("identity link", providerID)
		}
		return nil, fmt.Errorf("sqlite: getting identity link %s/%s: %w", provider, providerID, err)
	}

	l.Provider = model.OAuthProvider(prov)
	return &l, nil
}

// Unlink stamps the link's unlink time. Already-unlinked rows are left
// untouched, which makes the call idempotent.
func (db *DB) Unlink(ctx context.Context, id int64, now time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE identity_links SET unlinked_at = ? WHERE id = ? AND unlinked_at IS NULL`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unlinking identity link %d: %w", id, err)
	}
	return nil
}
