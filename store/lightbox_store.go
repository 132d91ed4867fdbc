package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lightfolio/api/models"
)

// ErrNotFound is returned by id-keyed lookups when no row exists.
var ErrNotFound = errors.New("not found")

// LightboxStore is the read-side adapter over the lightbox/share-link/media
// metadata owned by the dashboard's CRUD surface. This API only looks rows up.
type LightboxStore struct {
	db *sql.DB
}

func NewLightboxStore(db *sql.DB) *LightboxStore {
	return &LightboxStore{db: db}
}

func (s *LightboxStore) GetLightbox(ctx context.Context, id string) (*models.Lightbox, error) {
	lightbox := &models.Lightbox{}
	query := `
		SELECT id, name, created_at
		FROM lightboxes
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&lightbox.ID,
		&lightbox.Name,
		&lightbox.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lightbox: %w", err)
	}
	return lightbox, nil
}

func (s *LightboxStore) GetShareLink(ctx context.Context, id string) (*models.ShareLink, error) {
	link := &models.ShareLink{}
	query := `
		SELECT id, lightbox_id, name, password_hash, created_at
		FROM share_links
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&link.ID,
		&link.LightboxID,
		&link.Name,
		&link.PasswordHash,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share link: %w", err)
	}
	return link, nil
}

// ListShareLinksByLightbox returns the lightbox's share links in creation
// order, for pooling events in lightbox-scope aggregation.
func (s *LightboxStore) ListShareLinksByLightbox(ctx context.Context, lightboxID string) ([]models.ShareLink, error) {
	query := `
		SELECT id, lightbox_id, name, password_hash, created_at
		FROM share_links
		WHERE lightbox_id = $1
		ORDER BY created_at ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, lightboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	defer rows.Close()

	var links []models.ShareLink
	for rows.Next() {
		var link models.ShareLink
		if err := rows.Scan(&link.ID, &link.LightboxID, &link.Name, &link.PasswordHash, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error listing share links: %w", err)
	}
	return links, nil
}

// GetMediaItem resolves media metadata; it also satisfies the aggregator's
// MediaResolver for the top-interacted ranking.
func (s *LightboxStore) GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error) {
	item := &models.MediaItem{}
	query := `
		SELECT id, lightbox_id, file_name, display_url, created_at
		FROM media_items
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.LightboxID,
		&item.FileName,
		&item.DisplayURL,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get media item: %w", err)
	}
	return item, nil
}
