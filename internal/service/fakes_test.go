package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/plantops/escalation-service/internal/config"
	"github.com/plantops/escalation-service/internal/directory"
	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/events"
	"github.com/plantops/escalation-service/internal/repository"
	"github.com/plantops/escalation-service/internal/sla"
)

// memStore is an in-memory repository.Store used to exercise service
// semantics without a database. txMu is held for the full WithTicket
// callback, mirroring the row lock the SQL store keeps for the whole
// transaction.
type memStore struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	tickets     map[string]domain.Ticket
	timeline    map[string][]domain.TimelineEvent
	comments    map[string][]domain.Comment
	attachments map[string][]domain.Attachment
	inbox       map[string]domain.InboxEntry
	seq         int64
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     make(map[string]domain.Ticket),
		timeline:    make(map[string][]domain.TimelineEvent),
		comments:    make(map[string][]domain.Comment),
		attachments: make(map[string][]domain.Attachment),
		inbox:       make(map[string]domain.InboxEntry),
	}
}

func (m *memStore) Tickets() repository.TicketRepository         { return (*memTickets)(m) }
func (m *memStore) Timeline() repository.TimelineRepository      { return (*memTimeline)(m) }
func (m *memStore) Comments() repository.CommentRepository       { return (*memComments)(m) }
func (m *memStore) Attachments() repository.AttachmentRepository { return (*memAttachments)(m) }
func (m *memStore) Inbox() repository.InboxRepository            { return (*memInbox)(m) }

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	return fn(ctx, m)
}

func (m *memStore) WithTicket(ctx context.Context, ticketID string, fn func(ctx context.Context, s repository.Store, t *domain.Ticket) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	ticket, err := m.Tickets().GetForUpdate(ctx, ticketID)
	if err != nil {
		return err
	}
	return fn(ctx, m, ticket)
}

func (m *memStore) visible(t *domain.Ticket, scope repository.Scope) bool {
	switch scope.Tier {
	case domain.LevelSuperadmin:
		return true
	case domain.LevelCompany:
		return t.CompanyID != nil && scope.CompanyID != nil &&
			*t.CompanyID == *scope.CompanyID && t.Level != domain.LevelSuperadmin
	default:
		if scope.PlantID == nil || *scope.PlantID != t.PlantID {
			return false
		}
		if t.Level == domain.LevelPlant || t.CreatedBy == scope.ActorID {
			return true
		}
		for _, event := range m.timeline[t.ID] {
			if event.ActorID == scope.ActorID {
				return true
			}
		}
		return false
	}
}

type memTickets memStore

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket.ID = uuid.NewString()
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) GetForUpdate(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *memTickets) GetInScope(_ context.Context, id string, scope repository.Scope) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok || !(*memStore)(m).visible(&ticket, scope) {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *memTickets) ListInScope(_ context.Context, scope repository.Scope, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if !(*memStore)(m).visible(&ticket, scope) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if needle != "" &&
				!strings.Contains(strings.ToLower(ticket.Title), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt.After(result[j].LastActivityAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memTimeline memStore

func (m *memTimeline) Append(_ context.Context, event *domain.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	event.ID = uuid.NewString()
	event.Seq = m.seq
	m.timeline[event.TicketID] = append(m.timeline[event.TicketID], *event)
	return nil
}

func (m *memTimeline) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TimelineEvent{}, m.timeline[ticketID]...), nil
}

func (m *memTimeline) HasActor(_ context.Context, ticketID, actorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range m.timeline[ticketID] {
		if event.ActorID == actorID {
			return true, nil
		}
	}
	return false, nil
}

type memComments memStore

func (m *memComments) Create(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = uuid.NewString()
	m.comments[comment.TicketID] = append(m.comments[comment.TicketID], *comment)
	return nil
}

func (m *memComments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Comment{}, m.comments[ticketID]...), nil
}

type memAttachments memStore

func (m *memAttachments) Create(_ context.Context, attachment *domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attachment.ID = uuid.NewString()
	m.attachments[attachment.TicketID] = append(m.attachments[attachment.TicketID], *attachment)
	return nil
}

func (m *memAttachments) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Attachment{}, m.attachments[ticketID]...), nil
}

type memInbox memStore

func (m *memInbox) Insert(_ context.Context, entry *domain.InboxEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.inbox[entry.ID]; exists {
		return false, nil
	}
	m.inbox[entry.ID] = *entry
	return true, nil
}

func (m *memInbox) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]domain.InboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []domain.InboxEntry
	for _, entry := range m.inbox {
		if entry.RecipientID == recipientID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 20
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memInbox) CountUnread(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, entry := range m.inbox {
		if entry.RecipientID == recipientID && !entry.Read {
			count++
		}
	}
	return count, nil
}

func (m *memInbox) MarkRead(_ context.Context, recipientID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.inbox[entryID]
	if !ok || entry.RecipientID != recipientID {
		return pgx.ErrNoRows
	}
	entry.Read = true
	m.inbox[entryID] = entry
	return nil
}

func (m *memInbox) MarkAllRead(_ context.Context, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.inbox {
		if entry.RecipientID == recipientID {
			entry.Read = true
			m.inbox[id] = entry
		}
	}
	return nil
}

func (m *memInbox) Delete(_ context.Context, recipientID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.inbox[entryID]
	if !ok || entry.RecipientID != recipientID {
		return pgx.ErrNoRows
	}
	delete(m.inbox, entryID)
	return nil
}

func (m *memInbox) Clear(_ context.Context, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.inbox {
		if entry.RecipientID == recipientID {
			delete(m.inbox, id)
		}
	}
	return nil
}

// fakeDirectory serves a fixed actor roster.
type fakeDirectory struct {
	actors map[string]*domain.Actor
}

func (d *fakeDirectory) ActorByID(_ context.Context, id string) (*domain.Actor, error) {
	actor, ok := d.actors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return actor, nil
}

func (d *fakeDirectory) NotifySet(_ context.Context, level domain.TicketLevel, plantID string, companyID *string) ([]string, error) {
	var ids []string
	for _, actor := range d.actors {
		switch level {
		case domain.LevelPlant:
			if actor.Tier == domain.LevelPlant && actor.PlantID != nil && *actor.PlantID == plantID {
				ids = append(ids, actor.ID)
			}
		case domain.LevelCompany:
			if actor.Tier == domain.LevelCompany && companyID != nil &&
				actor.CompanyID != nil && *actor.CompanyID == *companyID {
				ids = append(ids, actor.ID)
			}
		default:
			if actor.Tier == domain.LevelSuperadmin {
				ids = append(ids, actor.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// fakePusher records realtime pushes and can simulate transport failure.
type fakePusher struct {
	mu     sync.Mutex
	pushed map[string][][]byte
	err    error
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(map[string][][]byte)}
}

func (p *fakePusher) Push(_ context.Context, recipientID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.pushed[recipientID] = append(p.pushed[recipientID], payload)
	return nil
}

func (p *fakePusher) count(recipientID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed[recipientID])
}

// fakeBlob returns URLs without touching disk and counts writes.
type fakeBlob struct {
	mu   sync.Mutex
	puts int
}

func (b *fakeBlob) Put(_ context.Context, fileName string, r io.Reader) (string, int64, error) {
	size, err := io.Copy(io.Discard, r)
	if err != nil {
		return "", 0, err
	}
	b.mu.Lock()
	b.puts++
	b.mu.Unlock()
	return "/attachments/" + fileName, size, nil
}

func (b *fakeBlob) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var errPushDown = errors.New("socket gone")

func strPtr(s string) *string { return &s }

// The roster used across service tests: two plants under one company, a
// manager with the plant forward grant, a company admin, one superadmin.
func testActors() map[string]*domain.Actor {
	return map[string]*domain.Actor{
		"tech-1": {ID: "tech-1", Name: "Plant Tech", Tier: domain.LevelPlant,
			PlantID: strPtr("plant-1"), CompanyID: strPtr("co-1"),
			Roles: []domain.Role{domain.RolePlantTechnician}},
		"mgr-1": {ID: "mgr-1", Name: "Plant Manager", Tier: domain.LevelPlant,
			PlantID: strPtr("plant-1"), CompanyID: strPtr("co-1"),
			Roles: []domain.Role{domain.RolePlantManager}},
		"tech-2": {ID: "tech-2", Name: "Other Plant Tech", Tier: domain.LevelPlant,
			PlantID: strPtr("plant-2"), CompanyID: strPtr("co-1"),
			Roles: []domain.Role{domain.RolePlantTechnician}},
		"admin-1": {ID: "admin-1", Name: "Company Admin", Tier: domain.LevelCompany,
			CompanyID: strPtr("co-1"),
			Roles:     []domain.Role{domain.RoleCompanyAdmin}},
		"root-1": {ID: "root-1", Name: "Superadmin", Tier: domain.LevelSuperadmin,
			Roles: []domain.Role{domain.RoleSuperadmin}},
	}
}

func slaTestConfig() config.SLAConfig {
	return config.SLAConfig{
		Critical: config.SLAWindow{Response: time.Hour, Resolution: 4 * time.Hour},
		High:     config.SLAWindow{Response: 4 * time.Hour, Resolution: 24 * time.Hour},
		Medium:   config.SLAWindow{Response: 8 * time.Hour, Resolution: 72 * time.Hour},
		Low:      config.SLAWindow{Response: 24 * time.Hour, Resolution: 168 * time.Hour},
	}
}

type testEnv struct {
	store         *memStore
	dir           *fakeDirectory
	pusher        *fakePusher
	blobs         *fakeBlob
	clock         *testClock
	tickets       *TicketService
	inbox         *InboxService
	notifications *NotificationService
}

func (e *testEnv) actor(id string) *domain.Actor { return e.dir.actors[id] }

func newTestEnv() *testEnv {
	return newTestEnvWithPolicy(false)
}

func newTestEnvWithPolicy(recomputeSLA bool) *testEnv {
	store := newMemStore()
	dir := &fakeDirectory{actors: testActors()}
	pusher := newFakePusher()
	blobs := &fakeBlob{}
	clock := newTestClock()
	dispatcher := events.NewInMemoryDispatcher()

	notifications := NewNotificationService(store, dir, pusher, zap.NewNop())
	notifications.now = clock.Now
	notifications.RegisterHandlers(dispatcher)

	tickets := NewTicketService(TicketDependencies{
		Store:                        store,
		Directory:                    dir,
		PermissionChecker:            directory.NewPermissionChecker(),
		SLACalculator:                sla.NewCalculator(slaTestConfig()),
		BlobStore:                    blobs,
		Dispatcher:                   dispatcher,
		RecomputeSLAOnPriorityChange: recomputeSLA,
		Now:                          clock.Now,
	})

	return &testEnv{
		store:         store,
		dir:           dir,
		pusher:        pusher,
		blobs:         blobs,
		clock:         clock,
		tickets:       tickets,
		inbox:         NewInboxService(store),
		notifications: notifications,
	}
}
