package service

import (
	"context"
	"fmt"
	"time"

	"github.com/facturio/facturio/internal/domain/entity"
)

// Mock ports in the house style: func fields with sensible defaults.

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time {
	return m.now
}

type mockInvoiceRepo struct {
	invoices map[int64]*entity.Invoice
	nextID   int64

	createFunc       func(ctx context.Context, inv *entity.Invoice) error
	getByIDFunc      func(ctx context.Context, id int64) (*entity.Invoice, error)
	updateLedgerFunc func(ctx context.Context, inv *entity.Invoice, expectedVersion int64) error
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{invoices: make(map[int64]*entity.Invoice), nextID: 1}
}

func (m *mockInvoiceRepo) put(inv *entity.Invoice) *entity.Invoice {
	if inv.ID == 0 {
		inv.ID = m.nextID
		m.nextID++
	}
	cp := *inv
	m.invoices[inv.ID] = &cp
	return inv
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, inv)
	}
	m.put(inv)
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	cp := *inv
	cp.Payments = append([]entity.Payment(nil), inv.Payments...)
	return &cp, nil
}

func (m *mockInvoiceRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) ListOpenByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID && inv.Status != entity.StatusPaid {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) UpdateLedger(ctx context.Context, inv *entity.Invoice, expectedVersion int64) error {
	if m.updateLedgerFunc != nil {
		return m.updateLedgerFunc(ctx, inv, expectedVersion)
	}
	stored, ok := m.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("invoice %d: %w", inv.ID, entity.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return entity.ErrConflict
	}
	inv.Version = expectedVersion + 1
	cp := *inv
	cp.Payments = append([]entity.Payment(nil), inv.Payments...)
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	inv.Status = status
	return nil
}

func (m *mockInvoiceRepo) MaxNumberSequence(ctx context.Context, userID int64, prefix string, year int) (int, error) {
	return 0, nil
}

func (m *mockInvoiceRepo) ListActiveUsers(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var users []int64
	for _, inv := range m.invoices {
		if inv.Status != entity.StatusPaid && !seen[inv.UserID] {
			seen[inv.UserID] = true
			users = append(users, inv.UserID)
		}
	}
	return users, nil
}

type mockClientRepo struct {
	clients map[int64]*entity.Client
}

func newMockClientRepo(clients ...*entity.Client) *mockClientRepo {
	m := &mockClientRepo{clients: make(map[int64]*entity.Client)}
	for _, c := range clients {
		m.clients[c.ID] = c
	}
	return m
}

func (m *mockClientRepo) Create(ctx context.Context, client *entity.Client) error {
	client.ID = int64(len(m.clients) + 1)
	m.clients[client.ID] = client
	return nil
}

func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, entity.ErrNotFound)
	}
	return c, nil
}

func (m *mockClientRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Client, error) {
	var out []*entity.Client
	for _, c := range m.clients {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClientRepo) Update(ctx context.Context, client *entity.Client) error {
	m.clients[client.ID] = client
	return nil
}

type mockTemplateRepo struct {
	templates map[int64]*entity.RecurringTemplate
	nextID    int64

	advanceFunc func(ctx context.Context, tpl *entity.RecurringTemplate, prev time.Time) error
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[int64]*entity.RecurringTemplate), nextID: 1}
}

func (m *mockTemplateRepo) put(tpl *entity.RecurringTemplate) *entity.RecurringTemplate {
	if tpl.ID == 0 {
		tpl.ID = m.nextID
		m.nextID++
	}
	cp := *tpl
	m.templates[tpl.ID] = &cp
	return tpl
}

func (m *mockTemplateRepo) Create(ctx context.Context, tpl *entity.RecurringTemplate) error {
	m.put(tpl)
	return nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id int64) (*entity.RecurringTemplate, error) {
	tpl, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %d: %w", id, entity.ErrNotFound)
	}
	cp := *tpl
	return &cp, nil
}

func (m *mockTemplateRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.RecurringTemplate, error) {
	var out []*entity.RecurringTemplate
	for _, tpl := range m.templates {
		if tpl.UserID == userID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (m *mockTemplateRepo) ListDue(ctx context.Context, userID int64, day time.Time) ([]*entity.RecurringTemplate, error) {
	var out []*entity.RecurringTemplate
	for _, tpl := range m.templates {
		if tpl.UserID == userID && tpl.Active && !tpl.NextEmission.After(day) {
			cp := *tpl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTemplateRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, tpl := range m.templates {
		if tpl.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockTemplateRepo) Advance(ctx context.Context, tpl *entity.RecurringTemplate, prev time.Time) error {
	if m.advanceFunc != nil {
		return m.advanceFunc(ctx, tpl, prev)
	}
	stored, ok := m.templates[tpl.ID]
	if !ok {
		return fmt.Errorf("template %d: %w", tpl.ID, entity.ErrNotFound)
	}
	if !stored.NextEmission.Equal(prev) {
		return entity.ErrConflict
	}
	cp := *tpl
	m.templates[tpl.ID] = &cp
	return nil
}

func (m *mockTemplateRepo) ListActiveUsers(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var users []int64
	for _, tpl := range m.templates {
		if tpl.Active && !seen[tpl.UserID] {
			seen[tpl.UserID] = true
			users = append(users, tpl.UserID)
		}
	}
	return users, nil
}

func (m *mockTemplateRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tpl, ok := m.templates[id]
	if !ok {
		return fmt.Errorf("template %d: %w", id, entity.ErrNotFound)
	}
	tpl.Active = active
	return nil
}

type mockSequenceRepo struct {
	counters map[string]int
}

func newMockSequenceRepo() *mockSequenceRepo {
	return &mockSequenceRepo{counters: make(map[string]int)}
}

func (m *mockSequenceRepo) Next(ctx context.Context, userID int64, prefix string, year int) (int, error) {
	key := fmt.Sprintf("%d/%s/%d", userID, prefix, year)
	m.counters[key]++
	return m.counters[key], nil
}

type mockPlanLimits struct {
	reached bool
}

func (m *mockPlanLimits) HasReachedPlanLimit(ctx context.Context, userID int64, resource string, currentCount int) (bool, error) {
	return m.reached, nil
}

type mockNotificationRepo struct {
	notifications map[string]*entity.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*entity.Notification)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	for _, existing := range m.notifications {
		if existing.InvoiceID == n.InvoiceID && existing.Type == n.Type && !existing.Read {
			// uniqueness constraint: silently dropped
			return nil
		}
	}
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) ExistsUnread(ctx context.Context, invoiceID int64, typ entity.NotificationType) (bool, error) {
	for _, n := range m.notifications {
		if n.InvoiceID == invoiceID && n.Type == typ && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) error {
	if n, ok := m.notifications[id]; ok {
		n.Read = true
	}
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	delete(m.notifications, id)
	return nil
}
