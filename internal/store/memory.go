package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

// Memory is an in-memory Store for tests. It mirrors the Postgres
// implementation's observable behavior: RFC3339 string comparison for guide
// windows and token-overlap ranking standing in for ts_rank.
type Memory struct {
	mu sync.Mutex

	Programs  []models.Program
	Catalog   []models.CatalogEntry
	LiveCats  []models.LiveCategory
	LiveChans []models.LiveChannel
	Identity  map[string]int64
	Freshness map[string]time.Time

	// FailProgramInserts makes every InsertPrograms row count as failed,
	// simulating a persistence outage for one or more batches.
	FailProgramInserts bool

	// ProgramIndexBuilds counts EnsureProgramIndexes calls.
	ProgramIndexBuilds int

	nextID int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Identity:  make(map[string]int64),
		Freshness: make(map[string]time.Time),
	}
}

func (m *Memory) WipePrograms(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Programs = nil
	return nil
}

func (m *Memory) InsertPrograms(_ context.Context, programs []models.Program) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailProgramInserts {
		return 0, len(programs), nil
	}
	for _, pr := range programs {
		m.nextID++
		pr.ID = m.nextID
		m.Programs = append(m.Programs, pr)
	}
	return len(programs), 0, nil
}

func (m *Memory) EnsureProgramIndexes(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProgramIndexBuilds++
	return nil
}

func (m *Memory) ProgramAt(_ context.Context, channel string, at time.Time) (*models.Program, error) {
	instant := at.UTC().Format(time.RFC3339)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Programs {
		pr := m.Programs[i]
		if pr.Channel == channel && pr.Start <= instant && pr.Stop >= instant {
			return &pr, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) NextProgram(_ context.Context, channel string, after, until time.Time) (*models.Program, error) {
	lo := after.UTC().Format(time.RFC3339)
	hi := until.UTC().Format(time.RFC3339)
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Program
	for i := range m.Programs {
		pr := m.Programs[i]
		if pr.Channel != channel || pr.Start <= lo || pr.Stop > hi {
			continue
		}
		if best == nil || pr.Start < best.Start {
			cp := pr
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *Memory) UpsertCatalogEntries(_ context.Context, entries []models.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		replaced := false
		for i := range m.Catalog {
			c := &m.Catalog[i]
			if c.TenantID == e.TenantID && c.ContentType == e.ContentType && c.InternalID == e.InternalID {
				id := c.ID
				*c = e
				c.ID = id
				replaced = true
				break
			}
		}
		if !replaced {
			m.nextID++
			e.ID = m.nextID
			m.Catalog = append(m.Catalog, e)
		}
	}
	return nil
}

func (m *Memory) CountCatalog(_ context.Context, tenantID, contentType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.Catalog {
		if e.TenantID == tenantID && e.ContentType == contentType {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FindCatalogBySecondaryID(_ context.Context, tenantID, contentType string, secondaryID int64, limit int) ([]models.CatalogEntry, error) {
	want := strconv.FormatInt(secondaryID, 10)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CatalogEntry
	for _, e := range m.Catalog {
		if e.TenantID == tenantID && e.ContentType == contentType && e.SecondaryID == want {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) SearchCatalog(_ context.Context, tenantID, contentType, query string, limit int) ([]models.CatalogEntry, error) {
	tokens := strings.Fields(strings.ToLower(query))
	m.mu.Lock()
	defer m.mu.Unlock()
	type ranked struct {
		entry models.CatalogEntry
		hits  int
	}
	var matches []ranked
	for _, e := range m.Catalog {
		if e.TenantID != tenantID || e.ContentType != contentType {
			continue
		}
		title := strings.ToLower(e.Title)
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(title, tok) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, ranked{entry: e, hits: hits})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })
	var out []models.CatalogEntry
	for _, r := range matches {
		out = append(out, r.entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) SampleCatalog(_ context.Context, tenantID, contentType string, limit int) ([]models.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CatalogEntry
	for _, e := range m.Catalog {
		if e.TenantID == tenantID && e.ContentType == contentType {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) UpsertLiveCategories(_ context.Context, cats []models.LiveCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cats {
		replaced := false
		for i := range m.LiveCats {
			if m.LiveCats[i].TenantID == c.TenantID && m.LiveCats[i].CategoryID == c.CategoryID {
				m.LiveCats[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			m.LiveCats = append(m.LiveCats, c)
		}
	}
	return nil
}

func (m *Memory) ListLiveCategories(_ context.Context, tenantID string) ([]models.LiveCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LiveCategory
	for _, c := range m.LiveCats {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) FindLiveCategory(_ context.Context, tenantID, name string) (*models.LiveCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.LiveCats {
		if m.LiveCats[i].TenantID == tenantID && m.LiveCats[i].CategoryName == name {
			c := m.LiveCats[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpsertLiveChannels(_ context.Context, channels []models.LiveChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range channels {
		replaced := false
		for i := range m.LiveChans {
			if m.LiveChans[i].TenantID == ch.TenantID && m.LiveChans[i].StreamID == ch.StreamID {
				m.LiveChans[i] = ch
				replaced = true
				break
			}
		}
		if !replaced {
			m.LiveChans = append(m.LiveChans, ch)
		}
	}
	return nil
}

func (m *Memory) ListLiveChannels(_ context.Context, tenantID, categoryID string, limit int) ([]models.LiveChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LiveChannel
	for _, ch := range m.LiveChans {
		if ch.TenantID != tenantID {
			continue
		}
		if categoryID != "" && ch.CategoryID != categoryID {
			continue
		}
		out = append(out, m.withCategoryName(ch))
		if len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *Memory) GetLiveChannel(_ context.Context, tenantID string, streamID int64) (*models.LiveChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.LiveChans {
		if ch.TenantID == tenantID && ch.StreamID == streamID {
			joined := m.withCategoryName(ch)
			return &joined, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CountLiveChannels(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ch := range m.LiveChans {
		if ch.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// withCategoryName mimics the LEFT JOIN the Postgres reads perform.
func (m *Memory) withCategoryName(ch models.LiveChannel) models.LiveChannel {
	for _, c := range m.LiveCats {
		if c.TenantID == ch.TenantID && c.CategoryID == ch.CategoryID {
			ch.CategoryName = c.CategoryName
			break
		}
	}
	return ch
}

func (m *Memory) GetIdentityMapping(_ context.Context, canonicalID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.Identity[canonicalID]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (m *Memory) PutIdentityMapping(_ context.Context, canonicalID string, secondaryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Identity[canonicalID] = secondaryID
	return nil
}

func (m *Memory) GetFreshness(_ context.Context, tenantID, resourceKey string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.Freshness[tenantID+"|"+resourceKey]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return at, nil
}

func (m *Memory) SetFreshness(_ context.Context, tenantID, resourceKey string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Freshness[tenantID+"|"+resourceKey] = at.UTC()
	return nil
}
