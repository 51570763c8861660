package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avetra/orgauth"
	"github.com/avetra/orgauth/policy"
)

// Store adapts a pgx pool to the orgauth.RecordStore contract.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. The caller keeps ownership of the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect dials a pool from a DSN and wraps it. Close releases the pool.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", orgauth.ErrTransport, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", orgauth.ErrTransport, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool. Only call this on stores built with
// Connect; pools passed to New belong to the caller.
func (s *Store) Close() {
	s.pool.Close()
}

const accountColumns = `identity_id, email, is_active, is_first_login, password_updated,
	otp_requests_count, last_otp_request, last_login`

// AccountByID implements orgauth.RecordStore.
func (s *Store) AccountByID(ctx context.Context, identityID string) (orgauth.AccountRecord, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity_id = $1`
	return s.scanAccount(s.pool.QueryRow(ctx, query, identityID))
}

// AccountByEmail implements orgauth.RecordStore. Emails are stored lowercase
// and compared case-insensitively.
func (s *Store) AccountByEmail(ctx context.Context, email string) (orgauth.AccountRecord, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = lower($1)`
	return s.scanAccount(s.pool.QueryRow(ctx, query, email))
}

func (s *Store) scanAccount(row pgx.Row) (orgauth.AccountRecord, error) {
	var rec orgauth.AccountRecord
	err := row.Scan(
		&rec.IdentityID,
		&rec.Email,
		&rec.IsActive,
		&rec.IsFirstLogin,
		&rec.PasswordUpdated,
		&rec.OtpRequestsCount,
		&rec.LastOtpRequest,
		&rec.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orgauth.AccountRecord{}, fmt.Errorf("%w: account", orgauth.ErrRecordNotFound)
		}
		return orgauth.AccountRecord{}, fmt.Errorf("%w: query account: %v", orgauth.ErrTransport, err)
	}
	return rec, nil
}

// UpdateAccount implements orgauth.RecordStore. Only the fields set on the
// patch are written; a patch with no fields set is a no-op.
func (s *Store) UpdateAccount(ctx context.Context, identityID string, patch orgauth.AccountPatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	args = append(args, identityID)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.IsFirstLogin != nil {
		add("is_first_login", *patch.IsFirstLogin)
	}
	if patch.PasswordUpdated != nil {
		add("password_updated", *patch.PasswordUpdated)
	}
	if patch.OtpRequestsCount != nil {
		add("otp_requests_count", *patch.OtpRequestsCount)
	}
	if patch.LastOtpRequest != nil {
		add("last_otp_request", *patch.LastOtpRequest)
	}
	if patch.LastLogin != nil {
		add("last_login", *patch.LastLogin)
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE identity_id = $1`
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update account: %v", orgauth.ErrTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account", orgauth.ErrRecordNotFound)
	}
	return nil
}

// MembershipsByIdentity implements orgauth.RecordStore. Inactive memberships
// are returned too; the caller decides whether they are selectable.
func (s *Store) MembershipsByIdentity(ctx context.Context, identityID string) ([]orgauth.OrganizationMembership, error) {
	query := `SELECT id, identity_id, organization_id, role, is_active, visibility_override, capabilities
		FROM organization_memberships WHERE identity_id = $1 ORDER BY organization_id`

	rows, err := s.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("%w: query memberships: %v", orgauth.ErrTransport, err)
	}
	defer rows.Close()

	var memberships []orgauth.OrganizationMembership
	for rows.Next() {
		var (
			m            orgauth.OrganizationMembership
			role         string
			overrideJSON []byte
			capsJSON     []byte
		)
		if err := rows.Scan(&m.ID, &m.IdentityID, &m.OrganizationID, &role, &m.IsActive, &overrideJSON, &capsJSON); err != nil {
			return nil, fmt.Errorf("%w: scan membership: %v", orgauth.ErrTransport, err)
		}
		m.Role = policy.Role(role)
		if len(overrideJSON) > 0 {
			if err := json.Unmarshal(overrideJSON, &m.Override); err != nil {
				return nil, fmt.Errorf("%w: decode visibility override: %v", orgauth.ErrTransport, err)
			}
		}
		if len(capsJSON) > 0 {
			var caps policy.Capabilities
			if err := json.Unmarshal(capsJSON, &caps); err != nil {
				return nil, fmt.Errorf("%w: decode capabilities: %v", orgauth.ErrTransport, err)
			}
			m.Capabilities = &caps
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate memberships: %v", orgauth.ErrTransport, err)
	}
	return memberships, nil
}

// UpdateMembershipOverride implements orgauth.RecordStore. A nil override
// clears the stored document back to role defaults.
func (s *Store) UpdateMembershipOverride(ctx context.Context, membershipID string, override policy.Override) error {
	var doc []byte
	if override != nil {
		var err error
		doc, err = json.Marshal(override)
		if err != nil {
			return fmt.Errorf("%w: encode visibility override: %v", orgauth.ErrTransport, err)
		}
	}

	query := `UPDATE organization_memberships SET visibility_override = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, membershipID, doc)
	if err != nil {
		return fmt.Errorf("%w: update membership override: %v", orgauth.ErrTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: membership", orgauth.ErrRecordNotFound)
	}
	return nil
}

var _ orgauth.RecordStore = (*Store)(nil)
