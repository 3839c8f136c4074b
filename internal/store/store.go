package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store defines persistence for guide programs, per-tenant catalogs, live
// channels and categories, identity mappings, and freshness markers.
type Store interface {
	// WipePrograms deletes all guide programs (ingestion is full-replace).
	WipePrograms(ctx context.Context) error
	// InsertPrograms bulk-inserts a batch of programs. A single failing row
	// must not abort its batch-mates; the failed count reports rows lost.
	InsertPrograms(ctx context.Context, programs []models.Program) (stored, failed int, err error)
	// EnsureProgramIndexes builds the guide query indexes (channel, start,
	// stop, combined full-text over title+description). Idempotent.
	EnsureProgramIndexes(ctx context.Context) error
	// ProgramAt returns the program airing on channel at the given instant.
	ProgramAt(ctx context.Context, channel string, at time.Time) (*models.Program, error)
	// NextProgram returns the earliest program on channel starting after the
	// given instant and ending by the horizon.
	NextProgram(ctx context.Context, channel string, after, until time.Time) (*models.Program, error)

	// UpsertCatalogEntries inserts or refreshes catalog entries in bulk.
	UpsertCatalogEntries(ctx context.Context, entries []models.CatalogEntry) error
	// CountCatalog returns the number of catalog entries for a tenant/type.
	CountCatalog(ctx context.Context, tenantID, contentType string) (int64, error)
	// FindCatalogBySecondaryID returns entries whose secondary id matches.
	FindCatalogBySecondaryID(ctx context.Context, tenantID, contentType string, secondaryID int64, limit int) ([]models.CatalogEntry, error)
	// SearchCatalog runs a full-text title search ranked by the store's
	// native text-relevance score, best first.
	SearchCatalog(ctx context.Context, tenantID, contentType, query string, limit int) ([]models.CatalogEntry, error)
	// SampleCatalog returns up to limit entries with no ranking guarantee.
	SampleCatalog(ctx context.Context, tenantID, contentType string, limit int) ([]models.CatalogEntry, error)

	// UpsertLiveCategories inserts or refreshes live categories in bulk.
	UpsertLiveCategories(ctx context.Context, cats []models.LiveCategory) error
	// ListLiveCategories returns all live categories for a tenant.
	ListLiveCategories(ctx context.Context, tenantID string) ([]models.LiveCategory, error)
	// FindLiveCategory returns the category with the exact name.
	FindLiveCategory(ctx context.Context, tenantID, name string) (*models.LiveCategory, error)
	// UpsertLiveChannels inserts or refreshes live channels in bulk.
	UpsertLiveChannels(ctx context.Context, channels []models.LiveChannel) error
	// ListLiveChannels returns channels ordered by ordinal, optionally
	// filtered by category id ("" = all).
	ListLiveChannels(ctx context.Context, tenantID, categoryID string, limit int) ([]models.LiveChannel, error)
	// GetLiveChannel returns a single channel by provider stream id.
	GetLiveChannel(ctx context.Context, tenantID string, streamID int64) (*models.LiveChannel, error)
	// CountLiveChannels returns the number of live channels for a tenant.
	CountLiveChannels(ctx context.Context, tenantID string) (int64, error)

	// GetIdentityMapping returns the cached secondary id for a canonical id.
	GetIdentityMapping(ctx context.Context, canonicalID string) (int64, error)
	// PutIdentityMapping stores a canonical→secondary mapping (idempotent).
	PutIdentityMapping(ctx context.Context, canonicalID string, secondaryID int64) error

	// GetFreshness returns when the (tenant, resource) pair last refreshed.
	GetFreshness(ctx context.Context, tenantID, resourceKey string) (time.Time, error)
	// SetFreshness records a successful refresh at the given instant.
	SetFreshness(ctx context.Context, tenantID, resourceKey string, at time.Time) error
}
