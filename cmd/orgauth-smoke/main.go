// Command orgauth-smoke drives a full session lifecycle against an in-memory
// record store and a real or embedded Redis: password sign-in, membership
// selection, one-time-code quota exhaustion, mid-session deactivation, and a
// final metrics dump. It exists to smoke-test the wiring end to end without
// standing up a credential provider.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/avetra/orgauth"
	"github.com/avetra/orgauth/policy"
	"github.com/avetra/orgauth/store/memory"
)

func main() {
	root := &cobra.Command{
		Use:   "orgauth-smoke",
		Short: "Drive a full orgauth session lifecycle against embedded fakes",
		RunE:  run,
	}

	root.Flags().String("redis-addr", "", "redis address; empty starts an embedded miniredis")
	root.Flags().Int("quota", 4, "one-time-code requests allowed per window")
	root.Flags().Duration("window", 15*time.Minute, "one-time-code quota window")
	root.Flags().String("email", "smoke@example.com", "seeded account email")

	viper.SetEnvPrefix("ORGAUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	addr := viper.GetString("redis-addr")
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		logger.Info("using embedded miniredis", zap.String("addr", addr))
	} else {
		logger.Info("using redis", zap.String("addr", addr))
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	email := viper.GetString("email")
	records := memory.New()
	identityID := records.PutAccount(orgauth.AccountRecord{
		Email:        email,
		IsActive:     true,
		IsFirstLogin: false,
	})
	records.PutMembership(orgauth.OrganizationMembership{
		IdentityID:     identityID,
		OrganizationID: "org-smoke",
		Role:           policy.RoleFinanceAdmin,
		IsActive:       true,
	})

	cfg := orgauth.DefaultConfig()
	cfg.Otc.Quota = viper.GetInt("quota")
	cfg.Otc.Window = viper.GetDuration("window")

	machine, err := orgauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithGateway(&fakeGateway{identityID: identityID, email: email, password: "smoke-pass"}).
		WithOtcSender(&fakeSender{code: "123456"}).
		WithRecordStore(records).
		WithAuditSink(orgauth.NewZapSink(logger.Named("audit"))).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		return fmt.Errorf("build machine: %w", err)
	}
	defer machine.Close()

	// Phase 1: password sign-in and membership selection.
	if _, err := machine.SignInWithPassword(ctx, email, "smoke-pass"); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	logger.Info("signed in", zap.String("state", machine.State().String()))

	memberships, err := machine.Memberships(ctx)
	if err != nil {
		return fmt.Errorf("list memberships: %w", err)
	}
	if err := machine.SelectMembership(ctx, memberships[0]); err != nil {
		return fmt.Errorf("select membership: %w", err)
	}
	visibility, err := machine.Visibility()
	if err != nil {
		return fmt.Errorf("visibility: %w", err)
	}
	logger.Info("membership selected",
		zap.String("role", string(memberships[0].Role)),
		zap.Bool("finance_visible", policy.SectionVisible(visibility, "finance")),
		zap.Bool("attendance_visible", policy.SectionVisible(visibility, "people", "attendance")),
	)
	machine.SignOut(ctx)

	// Phase 2: exhaust the one-time-code quota, then verify a code.
	quota := viper.GetInt("quota")
	for i := 0; i < quota+1; i++ {
		result, err := machine.RequestCode(ctx, email)
		if err != nil {
			logger.Warn("code request refused",
				zap.Int("attempt", i+1),
				zap.Int("cooldown_seconds", result.CooldownSeconds),
				zap.Error(err),
			)
			continue
		}
		logger.Info("code requested",
			zap.Int("attempt", i+1),
			zap.Int("remaining", result.RemainingRequests),
		)
		if i == 0 {
			if _, err := machine.VerifyCode(ctx, "123456"); err != nil {
				return fmt.Errorf("verify code: %w", err)
			}
			logger.Info("code verified", zap.String("state", machine.State().String()))
			machine.SignOut(ctx)
		}
	}

	// Phase 3: deactivate mid-session and watch the recheck revoke.
	if _, err := machine.SignInWithPassword(ctx, email, "smoke-pass"); err != nil {
		return fmt.Errorf("second sign in: %w", err)
	}
	if err := records.SetActive(identityID, false); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	err = machine.RecheckStatus(ctx)
	logger.Info("status recheck after deactivation",
		zap.String("state", machine.State().String()),
		zap.String("reject_reason", string(machine.RejectReason())),
		zap.Error(err),
	)

	snapshot := machine.MetricsSnapshot()
	for _, id := range orgauth.MetricIDs() {
		if v := snapshot.Counters[id]; v > 0 {
			logger.Info("metric", zap.String("name", orgauth.MetricName(id)), zap.Uint64("value", v))
		}
	}
	logger.Info("audit events dropped", zap.Uint64("count", machine.AuditDropped()))
	return nil
}

// fakeGateway accepts a single email/password pair and mints opaque tokens.
type fakeGateway struct {
	identityID string
	email      string
	password   string
	signedIn   bool
}

func (g *fakeGateway) SignInWithPassword(_ context.Context, email, password string) (*orgauth.Session, error) {
	if email != g.email || password != g.password {
		return nil, orgauth.ErrInvalidCredentials
	}
	g.signedIn = true
	return g.session(), nil
}

func (g *fakeGateway) SignOut(context.Context) error {
	g.signedIn = false
	return nil
}

func (g *fakeGateway) UpdatePassword(_ context.Context, newPassword string) error {
	if !g.signedIn {
		return orgauth.ErrNotAuthenticated
	}
	g.password = newPassword
	return nil
}

func (g *fakeGateway) RefreshSession(context.Context) (*orgauth.Session, error) {
	if !g.signedIn {
		return nil, nil
	}
	return g.session(), nil
}

func (g *fakeGateway) session() *orgauth.Session {
	return &orgauth.Session{
		AccessToken:  "smoke-access",
		RefreshToken: "smoke-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     orgauth.Identity{ID: g.identityID, Email: g.email},
	}
}

// fakeSender accepts one hardcoded code.
type fakeSender struct {
	code string
}

func (s *fakeSender) RequestCode(context.Context, string) (orgauth.OtcEndpointResponse, error) {
	return orgauth.OtcEndpointResponse{Success: true, Message: "code sent"}, nil
}

func (s *fakeSender) VerifyCode(_ context.Context, email, code string) (orgauth.OtcVerifyResponse, error) {
	if code != s.code {
		return orgauth.OtcVerifyResponse{Success: false, Message: "invalid code"}, nil
	}
	return orgauth.OtcVerifyResponse{
		Success: true,
		Message: "ok",
		Session: &orgauth.Session{
			AccessToken:  "smoke-otc-access",
			RefreshToken: "smoke-otc-refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
			Identity:     orgauth.Identity{Email: email},
		},
	}, nil
}
