package app

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"recruiting-scheduler/internal/vault"
)

// fakeStore is an in-memory implementation of every store interface. The
// claim path takes the mutex for the whole compare-and-set, mirroring the
// row-level atomicity of the conditional UPDATE.
type fakeStore struct {
	mu          sync.Mutex
	slots       map[uuid.UUID]*InterviewSlot
	candidates  map[uuid.UUID]*Candidate
	creds       map[string]*CalendarAccount
	settings    map[string]*OwnerSettings
	meetings    map[uuid.UUID]*Meeting
	syncResults map[string]SyncOutcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:       map[uuid.UUID]*InterviewSlot{},
		candidates:  map[uuid.UUID]*Candidate{},
		creds:       map[string]*CalendarAccount{},
		settings:    map[string]*OwnerSettings{},
		meetings:    map[uuid.UUID]*Meeting{},
		syncResults: map[string]SyncOutcome{},
	}
}

func credKey(ownerID string, p Provider) string { return ownerID + "|" + string(p) }

func (f *fakeStore) InsertSlot(_ context.Context, s *InterviewSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = SlotAvailable
	cp := *s
	f.slots[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetSlot(_ context.Context, id uuid.UUID) (*InterviewSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListSlots(_ context.Context, ownerID string) ([]InterviewSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InterviewSlot
	for _, s := range f.slots {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAvailableSlots(_ context.Context, ownerID string) ([]InterviewSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InterviewSlot
	for _, s := range f.slots {
		if s.OwnerID == ownerID && s.Status == SlotAvailable {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimSlot(_ context.Context, slotID, candidateID uuid.UUID, meetingLink string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok || s.Status != SlotAvailable {
		return false, nil
	}
	s.Status = SlotBooked
	s.CandidateID = &candidateID
	s.BookedAt = &at
	if c, ok := f.candidates[candidateID]; ok {
		c.Status = "scheduled"
		c.SlotID = &slotID
		c.MeetingLink = meetingLink
	}
	return true, nil
}

func (f *fakeStore) DeleteAvailableSlot(_ context.Context, ownerID string, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.OwnerID != ownerID || s.Status != SlotAvailable {
		return false, nil
	}
	delete(f.slots, id)
	return true, nil
}

func (f *fakeStore) GetCandidate(_ context.Context, ownerID string, id uuid.UUID) (*Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetCandidateByToken(_ context.Context, token string) (*Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.candidates {
		if c.SchedulingToken == token && token != "" {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) EnsureSchedulingToken(_ context.Context, ownerID string, id uuid.UUID, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.OwnerID != ownerID {
		return "", ErrNotFound
	}
	if c.SchedulingToken == "" {
		c.SchedulingToken = token
	}
	return c.SchedulingToken, nil
}

func (f *fakeStore) GetCredential(_ context.Context, ownerID string, p Provider) (*CalendarAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.creds[credKey(ownerID, p)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpsertCredential(_ context.Context, a *CalendarAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.creds[credKey(a.OwnerID, a.Provider)] = &cp
	return nil
}

func (f *fakeStore) UpdateTokens(_ context.Context, ownerID string, p Provider, sealedAccess, sealedRefresh string, expiresAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.creds[credKey(ownerID, p)]
	if !ok {
		return ErrNotFound
	}
	a.AccessToken = sealedAccess
	a.RefreshToken = sealedRefresh
	a.ExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) DeleteCredential(_ context.Context, ownerID string, p Provider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, credKey(ownerID, p))
	return nil
}

func (f *fakeStore) GetOwnerSettings(_ context.Context, ownerID string) (*OwnerSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.settings[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStore) InsertMeeting(_ context.Context, m *Meeting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.meetings[m.ID] = &cp
	return nil
}

func (f *fakeStore) SetSyncResult(_ context.Context, meetingID uuid.UUID, p Provider, outcome SyncOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncResults[meetingID.String()+"|"+string(p)] = outcome
	return nil
}

// fakeCalendarProvider replays canned responses in order; the last
// response repeats.
type fakeCalendarProvider struct {
	mu        sync.Mutex
	name      Provider
	responses []fakeEventResponse
	calls     int
}

type fakeEventResponse struct {
	eventID string
	err     error
}

func (p *fakeCalendarProvider) Name() Provider { return p.name }

func (p *fakeCalendarProvider) CreateEvent(context.Context, string, Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	r := p.responses[idx]
	return r.eventID, r.err
}

type fakeMeetingProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*MeetingResource, error)
}

func (p *fakeMeetingProvider) CreateMeeting(_ context.Context, _ string, _ time.Time, _ int, _ string) (*MeetingResource, error) {
	p.mu.Lock()
	call := p.calls
	p.calls++
	p.mu.Unlock()
	return p.fn(call)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, htmlBody})
	return m.err
}

// countingRefresh wraps a canned refresh response and counts invocations.
type countingRefresh struct {
	mu    sync.Mutex
	calls int
	token *oauth2.Token
	err   error
}

func (r *countingRefresh) fn() RefreshFunc {
	return func(context.Context, Provider, string) (*oauth2.Token, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls++
		if r.err != nil {
			return nil, r.err
		}
		tok := *r.token
		return &tok, nil
	}
}

func (r *countingRefresh) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)
	return v
}

func newTestApp(t *testing.T, store *fakeStore, refresh RefreshFunc) *App {
	t.Helper()
	v := testVault(t)
	tokens := NewTokenManager(store, v, refresh, 5*time.Minute, time.Second, zerolog.Nop())
	t.Cleanup(tokens.Close)
	return &App{
		Slots:       store,
		Candidates:  store,
		Credentials: store,
		Settings:    store,
		Meetings:    store,
		Tokens:      tokens,
		Log:         zerolog.Nop(),
	}
}

// seedCredential stores a sealed token pair for the owner and provider.
func seedCredential(t *testing.T, a *App, ownerID string, p Provider, access, refresh string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, a.Tokens.StoreConsent(context.Background(), ownerID, p, access, refresh, expiresAt))
	// StoreConsent caches fresh tokens; most tests want to start cold.
	a.Tokens.cache.DeleteAll()
}
