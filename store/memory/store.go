package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	orgauth "github.com/avetra/orgauth"
	"github.com/avetra/orgauth/policy"
)

// Store is a mutex-guarded RecordStore. The zero value is not usable; create
// through New.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]orgauth.AccountRecord
	emails      map[string]string
	memberships map[string]orgauth.OrganizationMembership
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]orgauth.AccountRecord),
		emails:      make(map[string]string),
		memberships: make(map[string]orgauth.OrganizationMembership),
	}
}

// PutAccount inserts or replaces an account row. A missing IdentityID gets one
// assigned; the assigned id is returned.
func (s *Store) PutAccount(record orgauth.AccountRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.IdentityID == "" {
		record.IdentityID = uuid.NewString()
	}
	s.accounts[record.IdentityID] = record
	s.emails[normalizeEmail(record.Email)] = record.IdentityID
	return record.IdentityID
}

// PutMembership inserts or replaces a membership row. A missing ID gets one
// assigned; the assigned id is returned.
func (s *Store) PutMembership(m orgauth.OrganizationMembership) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.memberships[m.ID] = m
	return m.ID
}

// AccountByID implements [orgauth.RecordStore].
func (s *Store) AccountByID(_ context.Context, identityID string) (orgauth.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[identityID]
	if !ok {
		return orgauth.AccountRecord{}, fmt.Errorf("%w: account %q", orgauth.ErrRecordNotFound, identityID)
	}
	return record, nil
}

// AccountByEmail implements [orgauth.RecordStore].
func (s *Store) AccountByEmail(_ context.Context, email string) (orgauth.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return orgauth.AccountRecord{}, fmt.Errorf("%w: account %q", orgauth.ErrRecordNotFound, email)
	}
	return s.accounts[id], nil
}

// UpdateAccount implements [orgauth.RecordStore].
func (s *Store) UpdateAccount(_ context.Context, identityID string, patch orgauth.AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accounts[identityID]
	if !ok {
		return fmt.Errorf("%w: account %q", orgauth.ErrRecordNotFound, identityID)
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
		t := *patch.LastOtpRequest
		record.LastOtpRequest = &t
	}
	if patch.LastLogin != nil {
		t := *patch.LastLogin
		record.LastLogin = &t
	}

	s.accounts[identityID] = record
	return nil
}

// SetActive flips an account's active flag, for admin tooling and tests.
func (s *Store) SetActive(identityID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accounts[identityID]
	if !ok {
		return fmt.Errorf("%w: account %q", orgauth.ErrRecordNotFound, identityID)
	}
	record.IsActive = active
	s.accounts[identityID] = record
	return nil
}

// MembershipsByIdentity implements [orgauth.RecordStore].
func (s *Store) MembershipsByIdentity(_ context.Context, identityID string) ([]orgauth.OrganizationMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []orgauth.OrganizationMembership
	for _, m := range s.memberships {
		if m.IdentityID == identityID {
			out = append(out, m)
		}
	}
	return out, nil
}

// UpdateMembershipOverride implements [orgauth.RecordStore].
func (s *Store) UpdateMembershipOverride(_ context.Context, membershipID string, override policy.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipID]
	if !ok {
		return fmt.Errorf("%w: membership %q", orgauth.ErrRecordNotFound, membershipID)
	}
	m.Override = override.Clone()
	s.memberships[membershipID] = m
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
