package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) *time.Time {
	t := now.AddDate(0, 0, -d)
	return &t
}

// Customers used across tests. With {"min_spend": 5000} only A and C match.
func sampleCustomers() []model.Customer {
	return []model.Customer{
		{ID: 1, FullName: "Alice", Email: "alice@example.com", TotalSpend: 6000, Visits: 2, LastActiveAt: daysAgo(90)},
		{ID: 2, FullName: "Bob", Email: "bob@example.com", TotalSpend: 200, Visits: 10, LastActiveAt: daysAgo(4)},
		{ID: 3, FullName: "Cara", Email: "cara@example.com", TotalSpend: 8000, Visits: 1},
	}
}

// --- Mock Repositories ---

type mockCustomerRepo struct {
	mu        sync.Mutex
	customers []model.Customer
	err       error
}

func (m *mockCustomerRepo) ListAll(ctx context.Context) ([]model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Customer(nil), m.customers...), nil
}

func (m *mockCustomerRepo) add(c model.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, c)
}

type mockSegmentRepo struct {
	segments map[int64]*model.Segment
	nextID   int64
}

func newMockSegmentRepo() *mockSegmentRepo {
	return &mockSegmentRepo{segments: map[int64]*model.Segment{}}
}

func (m *mockSegmentRepo) Create(ctx context.Context, s *model.Segment) error {
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.segments[s.ID] = &cp
	return nil
}

func (m *mockSegmentRepo) GetByID(ctx context.Context, id int64) (*model.Segment, error) {
	s, ok := m.segments[id]
	if !ok {
		return nil, appErrors.NewNotFound("segment", id)
	}
	cp := *s
	return &cp, nil
}

func (m *mockSegmentRepo) List(ctx context.Context, page repository.Page) ([]model.Segment, int, error) {
	out := make([]model.Segment, 0, len(m.segments))
	for _, s := range m.segments {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	out = window(out, page)
	return out, total, nil
}

func window[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

type mockCampaignRepo struct {
	campaigns map[int64]*model.Campaign
	nextID    int64
	logs      *mockLogRepo
}

func newMockCampaignRepo(logs *mockLogRepo) *mockCampaignRepo {
	return &mockCampaignRepo{campaigns: map[int64]*model.Campaign{}, logs: logs}
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCampaignRepo) ListCampaigns(ctx context.Context, page repository.Page) ([]*model.Campaign, int, error) {
	out := make([]*model.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	return window(out, page), total, nil
}

func (m *mockCampaignRepo) GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error) {
	stats := repository.EmptyStats()
	for _, l := range m.logs.all() {
		if l.CampaignID == campaignID {
			stats[string(l.Status)]++
			stats["total"]++
		}
	}
	return stats, nil
}

type mockLogRepo struct {
	mu            sync.Mutex
	logs          map[int64]*model.CommunicationLog
	nextID        int64
	lastBatchSize int
	updateErr     error
	stale         []model.PendingDelivery
	touched       []int64
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{logs: map[int64]*model.CommunicationLog{}}
}

func (m *mockLogRepo) CreatePending(ctx context.Context, campaignID int64, customerIDs []int64, now time.Time, batchSize int) ([]model.CommunicationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBatchSize = batchSize
	out := make([]model.CommunicationLog, 0, len(customerIDs))
	for _, cid := range customerIDs {
		m.nextID++
		l := model.CommunicationLog{
			ID:         m.nextID,
			CampaignID: campaignID,
			CustomerID: cid,
			Status:     model.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		m.logs[l.ID] = &l
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLogRepo) GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, appErrors.NewNotFound("communication log", id)
	}
	cp := *l
	return &cp, nil
}

func (m *mockLogRepo) UpdateStatusIfPending(ctx context.Context, id int64, status model.LogStatus, vendorMessageID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return false, m.updateErr
	}
	l, ok := m.logs[id]
	if !ok || l.Status != model.StatusPending {
		return false, nil
	}
	l.Status = status
	l.VendorMessageID = vendorMessageID
	l.UpdatedAt = now
	return true, nil
}

func (m *mockLogRepo) List(ctx context.Context, filter repository.LogFilter) ([]model.CommunicationLog, int, error) {
	var out []model.CommunicationLog
	for _, l := range m.all() {
		if filter.CampaignID != 0 && l.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	return window(out, filter.Page), total, nil
}

func (m *mockLogRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.PendingDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stale
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockLogRepo) TouchPending(ctx context.Context, ids []int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, ids...)
	return nil
}

func (m *mockLogRepo) all() []model.CommunicationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CommunicationLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	_ repository.SegmentRepositoryInterface          = (*mockSegmentRepo)(nil)
	_ repository.CampaignRepositoryInterface         = (*mockCampaignRepo)(nil)
	_ repository.CommunicationLogRepositoryInterface = (*mockLogRepo)(nil)
)

// recordingQueue captures send tasks and fails those whose log id is listed.
type recordingQueue struct {
	mu     sync.Mutex
	failOn map[int64]bool
	tasks  []model.SendTask
}

func (q *recordingQueue) Publish(ctx context.Context, topic string, body []byte) error {
	var task model.SendTask
	if err := json.Unmarshal(body, &task); err != nil {
		return err
	}
	if q.failOn[task.LogID] {
		return errors.New("broker unavailable")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Subscribe(ctx context.Context, topic string, h queue.Handler) error {
	return nil
}
