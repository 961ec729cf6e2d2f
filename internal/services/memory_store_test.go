package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/repositories"
)

// memoryStore implements the three repositories over maps. Hooks inject failures.
type memoryStore struct {
	mu       sync.Mutex
	rows     []domain.Content
	likes    map[string]map[string]bool
	nextID   int
	calls    map[string]int
	failures map[string]error
	// onExists runs inside Exists before it answers; used to hold concurrent toggles.
	onExists func()
	// staleExists makes Exists miss existing records, as a racing writer would.
	staleExists bool
	// beforeSet runs inside CompareAndSet with the lock held; used to simulate a concurrent toggle.
	beforeSet func(id string)
}

func newMemoryStore(rows ...domain.Content) *memoryStore {
	return &memoryStore{
		rows:     append([]domain.Content(nil), rows...),
		likes:    make(map[string]map[string]bool),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

func (m *memoryStore) hit(op string) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *memoryStore) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memoryStore) totalWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls["content.insert"] + m.calls["content.update"] + m.calls["content.delete"]
}

func (m *memoryStore) index(id string) int {
	for i, row := range m.rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// content repository

type memoryContent struct{ *memoryStore }

func (m memoryContent) List(_ context.Context, filter repositories.ContentFilter) ([]domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.list"); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Content, 0)
	for _, row := range m.rows {
		if filter.Category != "" && filter.Category != domain.CategoryAll && row.Category != filter.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(row.Title), needle) &&
			!strings.Contains(strings.ToLower(row.Description), needle) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memoryContent) Related(_ context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.related"); err != nil {
		return nil, err
	}
	out := make([]domain.Content, 0)
	for _, row := range m.rows {
		if row.Category == category && row.ID != excludeID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memoryContent) FindByID(_ context.Context, id string) (domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.get"); err != nil {
		return domain.Content{}, err
	}
	if i := m.index(id); i >= 0 {
		return m.rows[i], nil
	}
	return domain.Content{}, repositories.NotFound("content.get", "content %q not found", id)
}

func (m memoryContent) Insert(_ context.Context, content domain.Content) (domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.insert"); err != nil {
		return domain.Content{}, err
	}
	m.nextID++
	if content.ID == "" {
		content.ID = fmt.Sprintf("new-%d", m.nextID)
	}
	m.rows = append(m.rows, content)
	return content, nil
}

func (m memoryContent) Update(_ context.Context, content domain.Content) (domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.update"); err != nil {
		return domain.Content{}, err
	}
	i := m.index(content.ID)
	if i < 0 {
		return domain.Content{}, repositories.NotFound("content.update", "content %q not found", content.ID)
	}
	content.Likes = m.rows[i].Likes
	content.CreatedAt = m.rows[i].CreatedAt
	m.rows[i] = content
	return content, nil
}

func (m memoryContent) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.delete"); err != nil {
		return err
	}
	i := m.index(id)
	if i < 0 {
		return repositories.NotFound("content.delete", "content %q not found", id)
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	delete(m.likes, id)
	return nil
}

func (m memoryContent) Counters(context.Context) ([]domain.ContentCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("content.counters"); err != nil {
		return nil, err
	}
	out := make([]domain.ContentCounter, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, domain.ContentCounter{ID: row.ID, Category: row.Category, Likes: row.Likes})
	}
	return out, nil
}

// like repository

type memoryLikes struct{ *memoryStore }

func (m memoryLikes) Exists(_ context.Context, contentID, sessionID string) (bool, error) {
	if m.onExists != nil {
		m.onExists()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("likes.exists"); err != nil {
		return false, err
	}
	if m.staleExists {
		return false, nil
	}
	return m.likes[contentID][sessionID], nil
}

func (m memoryLikes) Insert(_ context.Context, record domain.LikeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("likes.insert"); err != nil {
		return err
	}
	if m.index(record.ContentID) < 0 {
		return repositories.NotFound("likes.insert", "content %q not found", record.ContentID)
	}
	if m.likes[record.ContentID][record.SessionID] {
		return repositories.NewError("likes.insert", repositories.KindConflict, errors.New("duplicate"))
	}
	if m.likes[record.ContentID] == nil {
		m.likes[record.ContentID] = make(map[string]bool)
	}
	m.likes[record.ContentID][record.SessionID] = true
	return nil
}

func (m memoryLikes) Delete(_ context.Context, contentID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("likes.delete"); err != nil {
		return err
	}
	delete(m.likes[contentID], sessionID)
	return nil
}

func (m memoryLikes) LikedContentIDs(_ context.Context, sessionID string, contentIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("likes.liked_ids"); err != nil {
		return nil, err
	}
	var out []string
	for _, id := range contentIDs {
		if m.likes[id][sessionID] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m memoryLikes) CountByContent(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("likes.count"); err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for id, sessions := range m.likes {
		for _, liked := range sessions {
			if liked {
				out[id]++
			}
		}
	}
	return out, nil
}

// counter repository

type memoryCounters struct{ *memoryStore }

func (m memoryCounters) adjust(op, id string, fn func(int64) int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit(op); err != nil {
		return err
	}
	i := m.index(id)
	if i < 0 {
		return repositories.NotFound(op, "content %q not found", id)
	}
	m.rows[i].Likes = fn(m.rows[i].Likes)
	return nil
}

func (m memoryCounters) Increment(_ context.Context, id string) error {
	return m.adjust("counters.increment", id, func(v int64) int64 { return v + 1 })
}

func (m memoryCounters) Decrement(_ context.Context, id string) error {
	return m.adjust("counters.decrement", id, func(v int64) int64 {
		if v <= 0 {
			return 0
		}
		return v - 1
	})
}

func (m memoryCounters) CompareAndSet(_ context.Context, id string, stored, likes int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("counters.set"); err != nil {
		return false, err
	}
	if m.beforeSet != nil {
		m.beforeSet(id)
	}
	i := m.index(id)
	if i < 0 || m.rows[i].Likes != stored {
		return false, nil
	}
	m.rows[i].Likes = likes
	return true, nil
}

func (m *memoryStore) content() repositories.ContentRepository { return memoryContent{m} }

func (m *memoryStore) likeRepo() repositories.LikeRepository { return memoryLikes{m} }

func (m *memoryStore) counters() repositories.CounterRepository { return memoryCounters{m} }
