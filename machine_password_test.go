package orgauth

import (
	"context"
	"errors"
	"testing"
)

func signInFirstLogin(t *testing.T, f *machineFixture) {
	t.Helper()
	f.records.put(AccountRecord{
		IdentityID:   "id-1",
		Email:        "alice@example.com",
		IsActive:     true,
		IsFirstLogin: true,
	})
	if _, err := f.machine.SignInWithPassword(context.Background(), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}
	if f.machine.State() != StateAuthenticatedFirstLogin {
		t.Fatalf("state = %v, want StateAuthenticatedFirstLogin", f.machine.State())
	}
}

func TestFirstLoginPasswordUpdatePromotes(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()
	signInFirstLogin(t, f)
	f.redis.Set(f.quotaKey(), "4")

	if err := f.machine.UpdatePassword(ctx, "new-password-123", PasswordFirstTimeLogin); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if f.machine.State() != StateAuthenticatedActive {
		t.Fatalf("state = %v, want StateAuthenticatedActive", f.machine.State())
	}

	record := f.records.account(t, "id-1")
	if record.IsFirstLogin {
		t.Fatal("IsFirstLogin should be cleared")
	}
	if !record.PasswordUpdated {
		t.Fatal("PasswordUpdated should be set")
	}
	if record.OtpRequestsCount != 0 {
		t.Fatalf("OtpRequestsCount = %d, want 0", record.OtpRequestsCount)
	}
	if f.redis.Exists(f.quotaKey()) {
		t.Fatal("quota key should be cleared on first-login completion")
	}
	if f.gateway.lastNewSecret != "new-password-123" {
		t.Fatalf("gateway received %q", f.gateway.lastNewSecret)
	}
}

func TestPasswordUpdateDeactivationRace(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()

	if _, err := f.machine.SignInWithPassword(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}

	// Deactivated after sign-in; the gateway update itself will succeed.
	f.records.setActive("id-1", false)

	err := f.machine.UpdatePassword(ctx, "new-password-123", PasswordReset)
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
	if f.machine.State() != StateRejected {
		t.Fatalf("state = %v, want StateRejected", f.machine.State())
	}
	if f.machine.Session() != nil {
		t.Fatal("session must not survive the post-update recheck")
	}
	if n := f.gateway.signOuts(); n != 1 {
		t.Fatalf("gateway sign-outs = %d, want 1", n)
	}
}

func TestPasswordUpdateGatewayFailureKeepsState(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()
	signInFirstLogin(t, f)

	gatewayErr := errors.New("password too weak")
	f.gateway.updateErr = gatewayErr

	err := f.machine.UpdatePassword(ctx, "weak", PasswordFirstTimeLogin)
	if !errors.Is(err, gatewayErr) {
		t.Fatalf("err = %v, want the gateway error verbatim", err)
	}
	if f.machine.State() != StateAuthenticatedFirstLogin {
		t.Fatalf("state = %v, want StateAuthenticatedFirstLogin (retry allowed)", f.machine.State())
	}

	// The retry succeeds once the gateway accepts.
	f.gateway.updateErr = nil
	if err := f.machine.UpdatePassword(ctx, "new-password-123", PasswordFirstTimeLogin); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if f.machine.State() != StateAuthenticatedActive {
		t.Fatalf("state = %v, want StateAuthenticatedActive", f.machine.State())
	}
}

func TestPasswordUpdateKindStateMismatch(t *testing.T) {
	f := newTestMachine(t, nil)
	ctx := context.Background()

	// Anonymous: neither kind is legal.
	if err := f.machine.UpdatePassword(ctx, "x", PasswordReset); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("anonymous reset: err = %v, want ErrNotAuthenticated", err)
	}
	if err := f.machine.UpdatePassword(ctx, "x", PasswordFirstTimeLogin); !errors.Is(err, ErrFirstLoginOnly) {
		t.Fatalf("anonymous first-login: err = %v, want ErrFirstLoginOnly", err)
	}

	// First-login sessions may not run a plain reset.
	signInFirstLogin(t, f)
	if err := f.machine.UpdatePassword(ctx, "x", PasswordReset); !errors.Is(err, ErrPasswordChangeRequired) {
		t.Fatalf("first-login reset: err = %v, want ErrPasswordChangeRequired", err)
	}

	// Active sessions may not re-run the first-login change.
	if err := f.machine.UpdatePassword(ctx, "new-password-123", PasswordFirstTimeLogin); err != nil {
		t.Fatalf("first-login update failed: %v", err)
	}
	if err := f.machine.UpdatePassword(ctx, "x", PasswordFirstTimeLogin); !errors.Is(err, ErrFirstLoginOnly) {
		t.Fatalf("active first-login: err = %v, want ErrFirstLoginOnly", err)
	}
}
