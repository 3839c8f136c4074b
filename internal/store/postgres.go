package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/streamvault/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// --- guide programs ---

func (p *Postgres) WipePrograms(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `TRUNCATE programs`); err != nil {
		return fmt.Errorf("WipePrograms: %w", err)
	}
	return nil
}

// InsertPrograms bulk-loads a batch with COPY. When COPY rejects the batch
// it falls back to row-by-row inserts so one poison row is counted as failed
// instead of sinking its batch-mates.
func (p *Postgres) InsertPrograms(ctx context.Context, programs []models.Program) (int, int, error) {
	if len(programs) == 0 {
		return 0, 0, nil
	}
	rows := make([][]any, len(programs))
	for i, pr := range programs {
		rows[i] = []any{pr.Channel, pr.Start, pr.Stop, nullIfEmpty(pr.Title), nullIfEmpty(pr.Description), nullIfEmpty(pr.Language), pr.CreatedAt}
	}
	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"programs"},
		[]string{"channel", "start_at", "stop_at", "title", "description", "lang", "created_at"},
		pgx.CopyFromRows(rows))
	if err == nil {
		return int(n), 0, nil
	}

	stored, failed := 0, 0
	for _, pr := range programs {
		_, rowErr := p.pool.Exec(ctx,
			`INSERT INTO programs (channel, start_at, stop_at, title, description, lang, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			pr.Channel, pr.Start, pr.Stop, nullIfEmpty(pr.Title), nullIfEmpty(pr.Description), nullIfEmpty(pr.Language), pr.CreatedAt)
		if rowErr != nil {
			failed++
			continue
		}
		stored++
	}
	return stored, failed, nil
}

func (p *Postgres) EnsureProgramIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_programs_channel ON programs (channel)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_start ON programs (start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_stop ON programs (stop_at)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_fts ON programs USING GIN
		 (to_tsvector('simple', coalesce(title,'') || ' ' || coalesce(description,'')))`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureProgramIndexes: %w", err)
		}
	}
	return nil
}

const programColumns = `id, channel, start_at, stop_at, coalesce(title,''), coalesce(description,''), coalesce(lang,''), created_at`

func (p *Postgres) ProgramAt(ctx context.Context, channel string, at time.Time) (*models.Program, error) {
	instant := at.UTC().Format(time.RFC3339)
	row := p.pool.QueryRow(ctx,
		`SELECT `+programColumns+` FROM programs
		 WHERE channel = $1 AND start_at <= $2 AND stop_at >= $2
		 LIMIT 1`, channel, instant)
	return scanProgram(row)
}

func (p *Postgres) NextProgram(ctx context.Context, channel string, after, until time.Time) (*models.Program, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+programColumns+` FROM programs
		 WHERE channel = $1 AND start_at > $2 AND stop_at <= $3
		 ORDER BY start_at ASC
		 LIMIT 1`,
		channel, after.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339))
	return scanProgram(row)
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var pr models.Program
	err := row.Scan(&pr.ID, &pr.Channel, &pr.Start, &pr.Stop, &pr.Title, &pr.Description, &pr.Language, &pr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan program: %w", err)
	}
	return &pr, nil
}

// --- catalog ---

func (p *Postgres) UpsertCatalogEntries(ctx context.Context, entries []models.CatalogEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO catalog
			   (tenant_id, content_type, canonical_id, internal_id, title, poster, description, secondary_id, release_info, rating, genre)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (tenant_id, content_type, internal_id) DO UPDATE SET
			   canonical_id = EXCLUDED.canonical_id, title = EXCLUDED.title,
			   poster = EXCLUDED.poster, description = EXCLUDED.description,
			   secondary_id = EXCLUDED.secondary_id, release_info = EXCLUDED.release_info,
			   rating = EXCLUDED.rating, genre = EXCLUDED.genre`,
			e.TenantID, e.ContentType, e.CanonicalID, e.InternalID, e.Title,
			e.Poster, e.Description, e.SecondaryID, e.ReleaseInfo, e.Rating, e.Genre)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("UpsertCatalogEntries: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CountCatalog(ctx context.Context, tenantID, contentType string) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM catalog WHERE tenant_id = $1 AND content_type = $2`,
		tenantID, contentType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountCatalog: %w", err)
	}
	return n, nil
}

const catalogColumns = `id, tenant_id, content_type, canonical_id, internal_id, title,
	coalesce(poster,''), coalesce(description,''), coalesce(secondary_id,''),
	coalesce(release_info,''), coalesce(rating,''), coalesce(genre,'')`

func (p *Postgres) FindCatalogBySecondaryID(ctx context.Context, tenantID, contentType string, secondaryID int64, limit int) ([]models.CatalogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+catalogColumns+` FROM catalog
		 WHERE tenant_id = $1 AND content_type = $2 AND secondary_id = $3
		 LIMIT $4`,
		tenantID, contentType, strconv.FormatInt(secondaryID, 10), limit)
	if err != nil {
		return nil, fmt.Errorf("FindCatalogBySecondaryID: %w", err)
	}
	defer rows.Close()
	return collectCatalog(rows)
}

func (p *Postgres) SearchCatalog(ctx context.Context, tenantID, contentType, query string, limit int) ([]models.CatalogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+catalogColumns+` FROM catalog
		 WHERE tenant_id = $1 AND content_type = $2
		   AND to_tsvector('simple', title) @@ plainto_tsquery('simple', $3)
		 ORDER BY ts_rank(to_tsvector('simple', title), plainto_tsquery('simple', $3)) DESC
		 LIMIT $4`,
		tenantID, contentType, query, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchCatalog: %w", err)
	}
	defer rows.Close()
	return collectCatalog(rows)
}

func (p *Postgres) SampleCatalog(ctx context.Context, tenantID, contentType string, limit int) ([]models.CatalogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+catalogColumns+` FROM catalog
		 WHERE tenant_id = $1 AND content_type = $2
		 LIMIT $3`,
		tenantID, contentType, limit)
	if err != nil {
		return nil, fmt.Errorf("SampleCatalog: %w", err)
	}
	defer rows.Close()
	return collectCatalog(rows)
}

func collectCatalog(rows pgx.Rows) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ContentType, &e.CanonicalID, &e.InternalID,
			&e.Title, &e.Poster, &e.Description, &e.SecondaryID, &e.ReleaseInfo, &e.Rating, &e.Genre); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- live categories / channels ---

func (p *Postgres) UpsertLiveCategories(ctx context.Context, cats []models.LiveCategory) error {
	batch := &pgx.Batch{}
	for _, c := range cats {
		batch.Queue(
			`INSERT INTO live_categories (tenant_id, category_id, category_name)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (tenant_id, category_id) DO UPDATE SET category_name = EXCLUDED.category_name`,
			c.TenantID, c.CategoryID, c.CategoryName)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range cats {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("UpsertLiveCategories: %w", err)
		}
	}
	return nil
}

func (p *Postgres) ListLiveCategories(ctx context.Context, tenantID string) ([]models.LiveCategory, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT tenant_id, category_id, category_name FROM live_categories
		 WHERE tenant_id = $1 ORDER BY category_name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ListLiveCategories: %w", err)
	}
	defer rows.Close()
	var cats []models.LiveCategory
	for rows.Next() {
		var c models.LiveCategory
		if err := rows.Scan(&c.TenantID, &c.CategoryID, &c.CategoryName); err != nil {
			return nil, fmt.Errorf("scan live category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (p *Postgres) FindLiveCategory(ctx context.Context, tenantID, name string) (*models.LiveCategory, error) {
	var c models.LiveCategory
	err := p.pool.QueryRow(ctx,
		`SELECT tenant_id, category_id, category_name FROM live_categories
		 WHERE tenant_id = $1 AND category_name = $2`, tenantID, name).
		Scan(&c.TenantID, &c.CategoryID, &c.CategoryName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindLiveCategory: %w", err)
	}
	return &c, nil
}

func (p *Postgres) UpsertLiveChannels(ctx context.Context, channels []models.LiveChannel) error {
	batch := &pgx.Batch{}
	for _, ch := range channels {
		batch.Queue(
			`INSERT INTO live_channels (tenant_id, stream_id, epg_channel_id, category_id, name, icon, ordinal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (tenant_id, stream_id) DO UPDATE SET
			   epg_channel_id = EXCLUDED.epg_channel_id, category_id = EXCLUDED.category_id,
			   name = EXCLUDED.name, icon = EXCLUDED.icon, ordinal = EXCLUDED.ordinal`,
			ch.TenantID, ch.StreamID, nullIfEmpty(ch.EPGChannelID), nullIfEmpty(ch.CategoryID),
			ch.Name, nullIfEmpty(ch.Icon), ch.Ordinal)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range channels {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("UpsertLiveChannels: %w", err)
		}
	}
	return nil
}

const liveChannelColumns = `c.tenant_id, c.stream_id, coalesce(c.epg_channel_id,''),
	coalesce(c.category_id,''), coalesce(g.category_name,''), c.name, coalesce(c.icon,''), c.ordinal`

const liveChannelJoin = `FROM live_channels c
	LEFT JOIN live_categories g ON g.tenant_id = c.tenant_id AND g.category_id = c.category_id`

func (p *Postgres) ListLiveChannels(ctx context.Context, tenantID, categoryID string, limit int) ([]models.LiveChannel, error) {
	q := `SELECT ` + liveChannelColumns + ` ` + liveChannelJoin + ` WHERE c.tenant_id = $1`
	args := []any{tenantID}
	if categoryID != "" {
		q += ` AND c.category_id = $2`
		args = append(args, categoryID)
	}
	q += fmt.Sprintf(` ORDER BY c.ordinal ASC LIMIT %d`, limit)
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListLiveChannels: %w", err)
	}
	defer rows.Close()
	var channels []models.LiveChannel
	for rows.Next() {
		var ch models.LiveChannel
		if err := rows.Scan(&ch.TenantID, &ch.StreamID, &ch.EPGChannelID, &ch.CategoryID,
			&ch.CategoryName, &ch.Name, &ch.Icon, &ch.Ordinal); err != nil {
			return nil, fmt.Errorf("scan live channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (p *Postgres) GetLiveChannel(ctx context.Context, tenantID string, streamID int64) (*models.LiveChannel, error) {
	var ch models.LiveChannel
	err := p.pool.QueryRow(ctx,
		`SELECT `+liveChannelColumns+` `+liveChannelJoin+` WHERE c.tenant_id = $1 AND c.stream_id = $2`,
		tenantID, streamID).
		Scan(&ch.TenantID, &ch.StreamID, &ch.EPGChannelID, &ch.CategoryID,
			&ch.CategoryName, &ch.Name, &ch.Icon, &ch.Ordinal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetLiveChannel: %w", err)
	}
	return &ch, nil
}

func (p *Postgres) CountLiveChannels(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM live_channels WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountLiveChannels: %w", err)
	}
	return n, nil
}

// --- identity mappings ---

func (p *Postgres) GetIdentityMapping(ctx context.Context, canonicalID string) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`SELECT secondary_id FROM identity_mappings WHERE canonical_id = $1`, canonicalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("GetIdentityMapping: %w", err)
	}
	return id, nil
}

func (p *Postgres) PutIdentityMapping(ctx context.Context, canonicalID string, secondaryID int64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO identity_mappings (canonical_id, secondary_id) VALUES ($1, $2)
		 ON CONFLICT (canonical_id) DO UPDATE SET secondary_id = EXCLUDED.secondary_id`,
		canonicalID, secondaryID)
	if err != nil {
		return fmt.Errorf("PutIdentityMapping: %w", err)
	}
	return nil
}

// --- freshness markers ---

func (p *Postgres) GetFreshness(ctx context.Context, tenantID, resourceKey string) (time.Time, error) {
	var at time.Time
	err := p.pool.QueryRow(ctx,
		`SELECT last_fetched_at FROM freshness_markers WHERE tenant_id = $1 AND resource_key = $2`,
		tenantID, resourceKey).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("GetFreshness: %w", err)
	}
	return at, nil
}

func (p *Postgres) SetFreshness(ctx context.Context, tenantID, resourceKey string, at time.Time) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO freshness_markers (tenant_id, resource_key, last_fetched_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, resource_key) DO UPDATE SET last_fetched_at = EXCLUDED.last_fetched_at`,
		tenantID, resourceKey, at.UTC())
	if err != nil {
		return fmt.Errorf("SetFreshness: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
