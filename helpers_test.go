package orgauth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/avetra/orgauth/policy"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testSession(identityID, email string) *Session {
	return &Session{
		AccessToken:  "access-" + identityID,
		RefreshToken: "refresh-" + identityID,
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     Identity{ID: identityID, Email: email},
	}
}

// mockGateway accepts one email/password pair and counts remote calls.
type mockGateway struct {
	mu sync.Mutex

	email      string
	password   string
	identityID string

	signInErr   error
	updateErr   error
	refreshSess *Session
	refreshErr  error

	signOutCalls  int
	updateCalls   int
	lastNewSecret string
}

func (g *mockGateway) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.signInErr != nil {
		return nil, g.signInErr
	}
	if email != g.email || password != g.password {
		return nil, ErrInvalidCredentials
	}
	return testSession(g.identityID, g.email), nil
}

func (g *mockGateway) SignOut(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signOutCalls++
	return nil
}

func (g *mockGateway) UpdatePassword(_ context.Context, newPassword string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	if g.updateErr != nil {
		return g.updateErr
	}
	g.lastNewSecret = newPassword
	return nil
}

func (g *mockGateway) RefreshSession(context.Context) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refreshErr != nil {
		return nil, g.refreshErr
	}
	if g.refreshSess == nil {
		return nil, nil
	}
	copied := *g.refreshSess
	return &copied, nil
}

func (g *mockGateway) signOuts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.signOutCalls
}

// mockSender accepts one code and returns a session built from sessionID.
type mockSender struct {
	mu sync.Mutex

	code       string
	identityID string
	requestErr error
	verifyErr  error
	refuse     bool

	requestCalls int
}

func (s *mockSender) RequestCode(_ context.Context, _ string) (OtcEndpointResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestCalls++
	if s.requestErr != nil {
		return OtcEndpointResponse{}, s.requestErr
	}
	if s.refuse {
		return OtcEndpointResponse{Success: false, Message: "refused"}, nil
	}
	return OtcEndpointResponse{Success: true, Message: "sent"}, nil
}

func (s *mockSender) VerifyCode(_ context.Context, email, code string) (OtcVerifyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifyErr != nil {
		return OtcVerifyResponse{}, s.verifyErr
	}
	if code != s.code {
		return OtcVerifyResponse{Success: false, Message: "invalid"}, nil
	}
	return OtcVerifyResponse{
		Success: true,
		Message: "ok",
		Session: testSession(s.identityID, email),
	}, nil
}

func (s *mockSender) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCalls
}

// mockRecordStore is an in-test RecordStore with error injection.
type mockRecordStore struct {
	mu sync.Mutex

	accounts    map[string]AccountRecord
	memberships map[string]OrganizationMembership

	lookupErr error
	updateErr error

	updateCalls int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{
		accounts:    make(map[string]AccountRecord),
		memberships: make(map[string]OrganizationMembership),
	}
}

func (s *mockRecordStore) put(record AccountRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[record.IdentityID] = record
}

func (s *mockRecordStore) putMembership(m OrganizationMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.ID] = m
}

func (s *mockRecordStore) account(t *testing.T, identityID string) AccountRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.accounts[identityID]
	if !ok {
		t.Fatalf("account %q missing from mock store", identityID)
	}
	return record
}

func (s *mockRecordStore) setActive(identityID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.accounts[identityID]
	record.IsActive = active
	s.accounts[identityID] = record
}

func (s *mockRecordStore) updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCalls
}

func (s *mockRecordStore) AccountByID(_ context.Context, identityID string) (AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return AccountRecord{}, s.lookupErr
	}
	record, ok := s.accounts[identityID]
	if !ok {
		return AccountRecord{}, ErrRecordNotFound
	}
	return record, nil
}

func (s *mockRecordStore) AccountByEmail(_ context.Context, email string) (AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return AccountRecord{}, s.lookupErr
	}
	for _, record := range s.accounts {
		if strings.EqualFold(record.Email, email) {
			return record, nil
		}
	}
	return AccountRecord{}, ErrRecordNotFound
}

func (s *mockRecordStore) UpdateAccount(_ context.Context, identityID string, patch AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	record, ok := s.accounts[identityID]
	if !ok {
		return ErrRecordNotFound
	}
	if patch.IsFirstLogin != nil {
		record.IsFirstLogin = *patch.IsFirstLogin
	}
	if patch.PasswordUpdated != nil {
		record.PasswordUpdated = *patch.PasswordUpdated
	}
	if patch.OtpRequestsCount != nil {
		record.OtpRequestsCount = *patch.OtpRequestsCount
	}
	if patch.LastOtpRequest != nil {
		ts := *patch.LastOtpRequest
		record.LastOtpRequest = &ts
	}
	if patch.LastLogin != nil {
		ts := *patch.LastLogin
		record.LastLogin = &ts
	}
	s.accounts[identityID] = record
	return nil
}

func (s *mockRecordStore) MembershipsByIdentity(_ context.Context, identityID string) ([]OrganizationMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	var out []OrganizationMembership
	for _, m := range s.memberships {
		if m.IdentityID == identityID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mockRecordStore) UpdateMembershipOverride(_ context.Context, membershipID string, override policy.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	m, ok := s.memberships[membershipID]
	if !ok {
		return ErrRecordNotFound
	}
	m.Override = override.Clone()
	s.memberships[membershipID] = m
	return nil
}

type machineFixture struct {
	machine *Machine
	redis   *miniredis.Miniredis
	gateway *mockGateway
	sender  *mockSender
	records *mockRecordStore
}

func newTestMachine(t *testing.T, mutate func(cfg *Config)) *machineFixture {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)
	t.Cleanup(func() { _ = rdb.Close() })

	gateway := &mockGateway{
		email:      "alice@example.com",
		password:   "correct-horse",
		identityID: "id-1",
	}
	sender := &mockSender{code: "111222", identityID: "id-1"}
	records := newMockRecordStore()
	records.put(AccountRecord{
		IdentityID: "id-1",
		Email:      "alice@example.com",
		IsActive:   true,
	})

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	machine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithGateway(gateway).
		WithOtcSender(sender).
		WithRecordStore(records).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(machine.Close)

	return &machineFixture{
		machine: machine,
		redis:   mr,
		gateway: gateway,
		sender:  sender,
		records: records,
	}
}

func (f *machineFixture) quotaKey() string {
	return "oaq:req:alice@example.com"
}
