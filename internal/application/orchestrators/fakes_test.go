package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gymadmin/internal/adapters/email"
	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
	"gymadmin/internal/domain/outbox"
	"gymadmin/internal/domain/trainer"
)

// fakeMemberStore is an in-memory MemberStore keyed by ID.
type fakeMemberStore struct {
	byID      map[int64]member.Member
	nextID    int64
	createErr error
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{byID: make(map[int64]member.Member), nextID: 1}
}

func (s *fakeMemberStore) Create(_ context.Context, m member.Member) (member.Member, error) {
	if s.createErr != nil {
		return member.Member{}, s.createErr
	}
	for _, existing := range s.byID {
		if existing.Email == m.Email {
			return member.Member{}, &member.ConflictError{Field: "email", Value: m.Email}
		}
	}
	m.ID = s.nextID
	s.nextID++
	s.byID[m.ID] = m
	return m, nil
}

func (s *fakeMemberStore) Update(_ context.Context, m member.Member) (member.Member, error) {
	if _, ok := s.byID[m.ID]; !ok {
		return member.Member{}, &member.NotFoundError{Entity: "member", ID: m.ID}
	}
	s.byID[m.ID] = m
	return m, nil
}

func (s *fakeMemberStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return &member.NotFoundError{Entity: "member", ID: id}
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeMemberStore) GetByID(_ context.Context, id int64) (member.Member, error) {
	m, ok := s.byID[id]
	if !ok {
		return member.Member{}, &member.NotFoundError{Entity: "member", ID: id}
	}
	return m, nil
}

func (s *fakeMemberStore) GetByEmail(_ context.Context, addr string) (member.Member, error) {
	for _, m := range s.byID {
		if m.Email == addr {
			return m, nil
		}
	}
	return member.Member{}, &member.NotFoundError{Entity: "member", Key: addr}
}

// ExpiringBetween returns members with after < expiry <= through, ordered by expiry then ID.
func (s *fakeMemberStore) ExpiringBetween(_ context.Context, after, through time.Time) ([]member.Member, error) {
	var out []member.Member
	for _, m := range s.byID {
		if m.ExpiryDate.After(after) && !m.ExpiryDate.After(through) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakeMemberStore) add(m member.Member) member.Member {
	m.ID = s.nextID
	s.nextID++
	s.byID[m.ID] = m
	return m
}

// fakeTrainerStore is an in-memory trainer store.
type fakeTrainerStore struct {
	byID   map[int64]trainer.Trainer
	nextID int64
}

func newFakeTrainerStore(names ...string) *fakeTrainerStore {
	s := &fakeTrainerStore{byID: make(map[int64]trainer.Trainer), nextID: 1}
	for _, n := range names {
		s.Create(context.Background(), trainer.Trainer{Name: n})
	}
	return s
}

func (s *fakeTrainerStore) Create(_ context.Context, t trainer.Trainer) (trainer.Trainer, error) {
	t.ID = s.nextID
	s.nextID++
	s.byID[t.ID] = t
	return t, nil
}

func (s *fakeTrainerStore) GetByID(_ context.Context, id int64) (trainer.Trainer, error) {
	t, ok := s.byID[id]
	if !ok {
		return trainer.Trainer{}, &member.NotFoundError{Entity: "trainer", ID: id}
	}
	return t, nil
}

func (s *fakeTrainerStore) GetByName(_ context.Context, name string) (trainer.Trainer, error) {
	for _, t := range s.byID {
		if t.Name == name {
			return t, nil
		}
	}
	return trainer.Trainer{}, &member.NotFoundError{Entity: "trainer", Key: name}
}

func (s *fakeTrainerStore) List(_ context.Context) ([]trainer.Trainer, error) {
	out := make([]trainer.Trainer, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeOutboxStore is an in-memory outbox store.
type fakeOutboxStore struct {
	entries map[string]outbox.Entry
	order   []string
}

func newFakeOutboxStore() *fakeOutboxStore {
	return &fakeOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (s *fakeOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e
	return nil
}

func (s *fakeOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return outbox.Entry{}, &member.NotFoundError{Entity: "outbox entry", Key: id}
	}
	return e, nil
}

func (s *fakeOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, id := range s.order {
		e := s.entries[id]
		if (e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying) && e.Attempts < e.MaxAttempts {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeOutboxStore) all() []outbox.Entry {
	out := make([]outbox.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// fakeSender records requests and fails those addressed to a recipient in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []email.SendRequest
	failFor map[string]bool
	failAll error
	batches int
	nextID  int
}

func (s *fakeSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return email.SendResult{}, s.failAll
	}
	for _, to := range req.To {
		if s.failFor[to] {
			return email.SendResult{}, errors.New("mailbox unavailable: " + to)
		}
	}
	s.sent = append(s.sent, req)
	s.nextID++
	return email.SendResult{MessageID: fmt.Sprintf("msg-%d", s.nextID), SentAt: time.Now()}, nil
}

func (s *fakeSender) SendBatch(ctx context.Context, reqs []email.SendRequest) ([]email.SendResult, error) {
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()
	var results []email.SendResult
	for _, req := range reqs {
		res, err := s.Send(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func baseInput() member.Input {
	return member.Input{
		Name:           "Asha Patil",
		Email:          "asha@example.com",
		Phone:          "9876543210",
		Birthdate:      "2000-06-15",
		MembershipPlan: string(membership.PlanCardio),
		MembershipType: string(membership.TypeThreeMonths),
		StartDate:      "2024-01-15",
		PaymentStatus:  member.PaymentPaid,
	}
}

// lockedOutbox serialises access for tests that run the background worker.
type lockedOutbox struct {
	mu    sync.Mutex
	inner *fakeOutboxStore
}

func (s *lockedOutbox) Save(ctx context.Context, e outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Save(ctx, e)
}

func (s *lockedOutbox) GetByID(ctx context.Context, id string) (outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GetByID(ctx, id)
}

func (s *lockedOutbox) ListPending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ListPending(ctx, limit)
}
