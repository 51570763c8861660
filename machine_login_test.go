package orgauth

import (
	"context"
	"errors"
	"testing"
)

func TestSignInFullSuccess(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()

	// A stale quota window must not survive a full login.
	f.redis.Set(f.quotaKey(), "3")

	result, err := f.machine.SignInWithPassword(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}
	if result.State != StateAuthenticatedActive {
		t.Fatalf("state = %v, want StateAuthenticatedActive", result.State)
	}
	if result.Session == nil || result.Session.Identity.ID != "id-1" {
		t.Fatalf("unexpected session: %+v", result.Session)
	}
	if f.machine.State() != StateAuthenticatedActive {
		t.Fatalf("machine state = %v, want StateAuthenticatedActive", f.machine.State())
	}

	if f.redis.Exists(f.quotaKey()) {
		t.Fatal("quota key should be cleared by a full login")
	}

	record := f.records.account(t, "id-1")
	if record.OtpRequestsCount != 0 {
		t.Fatalf("OtpRequestsCount = %d, want 0", record.OtpRequestsCount)
	}
	if record.LastLogin == nil {
		t.Fatal("LastLogin should be stamped on full login")
	}
}

func TestSignInWrongPasswordLeavesEverythingUntouched(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := f.machine.SignInWithPassword(ctx, "alice@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i+1, err)
		}
		if result.Reason != RejectInvalidCredentials {
			t.Fatalf("attempt %d: reason = %v", i+1, result.Reason)
		}
		if f.machine.State() != StateAnonymous {
			t.Fatalf("attempt %d: state = %v, want StateAnonymous", i+1, f.machine.State())
		}
	}

	if n := f.records.updates(); n != 0 {
		t.Fatalf("record updates = %d, want 0", n)
	}
	if n := f.gateway.signOuts(); n != 0 {
		t.Fatalf("gateway sign-outs = %d, want 0", n)
	}
	record := f.records.account(t, "id-1")
	if record.OtpRequestsCount != 0 || record.LastLogin != nil {
		t.Fatalf("account mutated by failed attempts: %+v", record)
	}
}

func TestSignInInactiveAccountRevokesGrant(t *testing.T) {
	f := newTestMachine(t, nil)
	f.records.setActive("id-1", false)

	_, err := f.machine.SignInWithPassword(context.Background(), "alice@example.com", "correct-horse")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
	if f.machine.State() != StateRejected {
		t.Fatalf("state = %v, want StateRejected", f.machine.State())
	}
	if f.machine.RejectReason() != RejectAccountInactive {
		t.Fatalf("reason = %v, want RejectAccountInactive", f.machine.RejectReason())
	}
	if n := f.gateway.signOuts(); n != 1 {
		t.Fatalf("gateway sign-outs = %d, want 1 (granted session must be revoked)", n)
	}
	if f.machine.Session() != nil {
		t.Fatal("no session may survive an inactive verdict")
	}
}

func TestSignInFirstLoginWithholdsBookkeeping(t *testing.T) {
	f := newTestMachine(t, nil)
	f.records.put(AccountRecord{
		IdentityID:   "id-1",
		Email:        "alice@example.com",
		IsActive:     true,
		IsFirstLogin: true,
	})
	f.redis.Set(f.quotaKey(), "2")

	result, err := f.machine.SignInWithPassword(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}
	if result.State != StateAuthenticatedFirstLogin {
		t.Fatalf("state = %v, want StateAuthenticatedFirstLogin", result.State)
	}

	// Quota reset and last_login wait for the password update.
	if !f.redis.Exists(f.quotaKey()) {
		t.Fatal("quota key must survive a first-login sign-in")
	}
	record := f.records.account(t, "id-1")
	if record.LastLogin != nil {
		t.Fatal("LastLogin must not be stamped before the password update")
	}
}

func TestSignInStatusLookupFailureFailsClosed(t *testing.T) {
	f := newTestMachine(t, nil)
	f.records.lookupErr = errors.New("store down")

	_, err := f.machine.SignInWithPassword(context.Background(), "alice@example.com", "correct-horse")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if f.machine.State() != StateAnonymous {
		t.Fatalf("state = %v, want StateAnonymous", f.machine.State())
	}
	if n := f.gateway.signOuts(); n != 1 {
		t.Fatalf("gateway sign-outs = %d, want 1", n)
	}
}

func TestSignInUnknownAccountRevokesGrant(t *testing.T) {
	f := newTestMachine(t, nil)
	// Gateway grants a session for an identity the record store never saw.
	f.gateway.identityID = "ghost"

	_, err := f.machine.SignInWithPassword(context.Background(), "alice@example.com", "correct-horse")
	if !errors.Is(err, ErrNoSuchAccount) {
		t.Fatalf("err = %v, want ErrNoSuchAccount", err)
	}
	if f.machine.State() != StateAnonymous {
		t.Fatalf("state = %v, want StateAnonymous", f.machine.State())
	}
	if n := f.gateway.signOuts(); n != 1 {
		t.Fatalf("gateway sign-outs = %d, want 1", n)
	}
}
