package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type adminFixture struct {
	svc        *AdminService
	otp        *OTPService
	gateway    *recordingGateway
	mr         *miniredis.Miniredis
	ledger     *repository.MemoryOTPLedger
	appOTP     *OTPService
	appGateway *recordingGateway
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	mr, client := newTestRedis(t)

	admins := repository.NewMemoryAdminStore()
	admins.Put(models.Admin{ID: "a-1", Email: "ops@yoday.app", Name: "Ops", Role: "super", Status: models.AdminStatusActive})
	admins.Put(models.Admin{ID: "a-2", Email: "former@yoday.app", Status: "inactive"})

	// Both engines share one ledger, as they do in the server.
	ledger := repository.NewMemoryOTPLedger()
	cfg := testOTPConfig()
	cfg.Purpose = models.OTPPurposeAdmin
	cfg.Expiry = 5 * time.Minute
	gw := &recordingGateway{}
	otp := newTestOTPService(ledger, gw, cfg)
	appGateway := &recordingGateway{}
	appOTP := newTestOTPService(ledger, appGateway, testOTPConfig())
	sessions := repository.NewRedisAdminSessionRepository(client, newTestLogger())

	return &adminFixture{
		svc:        NewAdminService(admins, sessions, otp, 24*time.Hour, newTestLogger()),
		otp:        otp,
		gateway:    gw,
		mr:         mr,
		ledger:     ledger,
		appOTP:     appOTP,
		appGateway: appGateway,
	}
}

func TestAdminRequestOTP(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	for _, email := range []string{"nobody@yoday.app", "former@yoday.app"} {
		if _, err := f.svc.RequestOTP(ctx, email); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", email, err)
		}
	}
	if _, err := f.svc.RequestOTP(ctx, " "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank email err = %v", err)
	}
	if f.gateway.count() != 0 {
		t.Fatal("gateway invoked for a rejected admin")
	}

	challenge, err := f.svc.RequestOTP(ctx, "Ops@Yoday.app")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if challenge.TransactionID == "" {
		t.Fatal("empty transaction id")
	}
	if to := f.gateway.last(t).To; to != "ops@yoday.app" {
		t.Errorf("delivered to %q", to)
	}
}

func TestAdminVerifyOTP_SessionLifecycle(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.RequestOTP(ctx, "ops@yoday.app")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := f.gateway.last(t).Code

	if _, err := f.svc.VerifyOTP(ctx, challenge.TransactionID, "ops@yoday.app", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("err = %v, want ErrCodeMismatch", err)
	}

	session, err := f.svc.VerifyOTP(ctx, challenge.TransactionID, "ops@yoday.app", code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if session.Admin.ID != "a-1" {
		t.Errorf("session admin = %+v", session.Admin)
	}
	if !f.mr.Exists("admin_session:" + session.ID) {
		t.Fatal("session not written to redis")
	}

	got, err := f.svc.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.Admin.Email != "ops@yoday.app" {
		t.Errorf("Session admin = %+v", got.Admin)
	}

	if err := f.svc.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.svc.Session(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Session after logout err = %v, want ErrNotFound", err)
	}
}

func TestAdminSession_Expires(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	challenge, _ := f.svc.RequestOTP(ctx, "ops@yoday.app")
	session, err := f.svc.VerifyOTP(ctx, challenge.TransactionID, "ops@yoday.app", f.gateway.last(t).Code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	f.mr.FastForward(25 * time.Hour)
	if _, err := f.svc.Session(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAdminVerifyOTP_FiveMinuteWindow(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()
	f.otp.now = func() time.Time { return base }

	early, _ := f.svc.RequestOTP(ctx, "ops@yoday.app")
	earlyCode := f.gateway.last(t).Code
	late, _ := f.svc.RequestOTP(ctx, "ops@yoday.app")
	lateCode := f.gateway.last(t).Code

	f.otp.now = func() time.Time { return base.Add(4 * time.Minute) }
	if _, err := f.svc.VerifyOTP(ctx, early.TransactionID, "ops@yoday.app", earlyCode); err != nil {
		t.Fatalf("verify within 5 minutes: %v", err)
	}

	f.otp.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, err := f.svc.VerifyOTP(ctx, late.TransactionID, "ops@yoday.app", lateCode); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("err = %v, want ErrChallengeExpired", err)
	}
}

func TestAdminVerifyOTP_IgnoresAppChallenges(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()
	f.appOTP.now = func() time.Time { return base }
	f.otp.now = func() time.Time { return base.Add(2 * time.Minute) }

	// An app challenge for the admin's address, past its 60 second window
	// but inside the admin one.
	app, err := f.appOTP.IssueChallenge(ctx, "ops@yoday.app", "")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	code := f.appGateway.last(t).Code

	if _, err := f.svc.VerifyOTP(ctx, app.TransactionID, "ops@yoday.app", code); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("err = %v, want ErrChallengeNotFound", err)
	}
	row, _ := f.ledger.Get(app.TransactionID, "ops@yoday.app")
	if row.Status != models.OTPStatusPending || row.Purpose != models.OTPPurposeUser {
		t.Fatalf("app row = %+v, want untouched PENDING user row", row)
	}
}

func TestAppVerify_IgnoresAdminChallenges(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.RequestOTP(ctx, "ops@yoday.app")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := f.gateway.last(t).Code

	if err := f.appOTP.VerifyChallenge(ctx, challenge.TransactionID, "ops@yoday.app", code); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("err = %v, want ErrChallengeNotFound", err)
	}
	if _, err := f.svc.VerifyOTP(ctx, challenge.TransactionID, "ops@yoday.app", code); err != nil {
		t.Fatalf("admin verify after app attempt: %v", err)
	}
}

func TestAdminVerifyOTP_UnknownAdminBeforeCode(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.RequestOTP(ctx, "ops@yoday.app")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := f.gateway.last(t).Code

	for _, guess := range []string{code, "000000"} {
		if _, err := f.svc.VerifyOTP(ctx, challenge.TransactionID, "former@yoday.app", guess); !errors.Is(err, ErrNotFound) {
			t.Errorf("guess %s: err = %v, want ErrNotFound", guess, err)
		}
	}
	row, _ := f.ledger.Get(challenge.TransactionID, "ops@yoday.app")
	if row.Status != models.OTPStatusPending {
		t.Fatalf("row status = %s, want PENDING", row.Status)
	}
}

func TestAdminRequestOTP_ReturnsNormalizedHandle(t *testing.T) {
	f := newAdminFixture(t)

	challenge, err := f.svc.RequestOTP(context.Background(), "  Ops@Yoday.APP ")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if challenge.Handle != "ops@yoday.app" {
		t.Errorf("Handle = %q, want ops@yoday.app", challenge.Handle)
	}
}
