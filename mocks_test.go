package identity_test

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore implements identity.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, record *identity.Identity) (*identity.Identity, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockCredentialStore) Update(ctx context.Context, id uuid.UUID, patch identity.IdentityUpdate) (*identity.Identity, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// notFoundErr mirrors what conforming stores return for missing records
func notFoundErr() error {
	return goerrors.New("identity not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// memStore is an in-memory CredentialStore for end-to-end flow tests.
// Records are cloned on the way in and out so tests cannot alias store
// state by accident.
type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*identity.Identity
}

func newMemStore() *memStore {
	return &memStore{byID: map[uuid.UUID]*identity.Identity{}}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.byID {
		if record.Email == email {
			return cloneIdentity(record), nil
		}
	}
	return nil, notFoundErr()
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, notFoundErr()
	}
	return cloneIdentity(record), nil
}

func (s *memStore) Create(_ context.Context, record *identity.Identity) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneIdentity(record)
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	now := time.Now()
	clone.CreatedAt = &now
	clone.UpdatedAt = &now

	s.byID[clone.ID] = clone
	return cloneIdentity(clone), nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, patch identity.IdentityUpdate) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, notFoundErr()
	}

	patch.Apply(record)
	now := time.Now()
	record.UpdatedAt = &now

	return cloneIdentity(record), nil
}

func (s *memStore) all() []*identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*identity.Identity, 0, len(s.byID))
	for _, record := range s.byID {
		out = append(out, cloneIdentity(record))
	}
	return out
}

func cloneIdentity(u *identity.Identity) *identity.Identity {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// sentMessage captures one gateway dispatch
type sentMessage struct {
	To         string
	Subject    string
	TemplateID string
	Data       map[string]any
}

// captureGateway records dispatches and can be told to fail specific
// templates.
type captureGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error
}

func newCaptureGateway() *captureGateway {
	return &captureGateway{fail: map[string]error{}}
}

func (g *captureGateway) Send(_ context.Context, to, subject, templateID string, data map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.fail[templateID]; ok {
		return err
	}

	g.sent = append(g.sent, sentMessage{To: to, Subject: subject, TemplateID: templateID, Data: data})
	return nil
}

func (g *captureGateway) failTemplate(templateID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[templateID] = err
}

func (g *captureGateway) last() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.sent) == 0 {
		return sentMessage{}
	}
	return g.sent[len(g.sent)-1]
}

func (g *captureGateway) byTemplate(templateID string) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []sentMessage
	for _, msg := range g.sent {
		if msg.TemplateID == templateID {
			out = append(out, msg)
		}
	}
	return out
}

func (g *captureGateway) lastToken(templateID string) string {
	msgs := g.byTemplate(templateID)
	if len(msgs) == 0 {
		return ""
	}
	token, _ := msgs[len(msgs)-1].Data["token"].(string)
	return token
}

// capturingSink records activity events
type capturingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt identity.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) byType(t identity.ActivityEventType) []identity.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []identity.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == t {
			out = append(out, evt)
		}
	}
	return out
}

// fakeClock is a manually advanced clock shared by lifecycle and codec
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
