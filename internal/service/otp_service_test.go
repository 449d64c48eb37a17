package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
)

func TestGenerateCode_RangeAndWidth(t *testing.T) {
	for i := 0; i < 5000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside [100000, 999999]", n)
		}
	}
}

func TestIssueChallenge_PersistsPendingAndDelivers(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())

	challenge, err := svc.IssueChallenge(context.Background(), "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}

	row, ok := ledger.Get(challenge.TransactionID, "9876543210")
	if !ok {
		t.Fatal("challenge not persisted")
	}
	if row.Status != models.OTPStatusPending || row.Attempts != 0 {
		t.Errorf("row = %+v, want PENDING with 0 attempts", row)
	}
	if row.CountryCode != "+91" {
		t.Errorf("CountryCode = %q", row.CountryCode)
	}
	if row.Purpose != models.OTPPurposeUser {
		t.Errorf("Purpose = %q, want %q", row.Purpose, models.OTPPurposeUser)
	}
	if challenge.Handle != "9876543210" {
		t.Errorf("Handle = %q", challenge.Handle)
	}

	msg := gw.last(t)
	if msg.To != "9876543210" {
		t.Errorf("delivered to %q", msg.To)
	}
	if row.CodeHash == "" || row.CodeHash == msg.Code {
		t.Error("code stored in plain text")
	}
}

func TestIssueChallenge_IndependentTransactions(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	first, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	firstCode := gw.last(t).Code
	second, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	secondCode := gw.last(t).Code

	if first.TransactionID == second.TransactionID {
		t.Fatal("transaction ids collide")
	}
	if ledger.Len() != 2 {
		t.Fatalf("ledger has %d rows, want 2", ledger.Len())
	}

	// Both stay verifiable; only the presented transaction is evaluated.
	if err := svc.VerifyChallenge(ctx, second.TransactionID, "9876543210", secondCode); err != nil {
		t.Fatalf("verify second: %v", err)
	}
	if err := svc.VerifyChallenge(ctx, first.TransactionID, "9876543210", firstCode); err != nil {
		t.Fatalf("verify first: %v", err)
	}
}

func TestIssueChallenge_DeliveryFailureKeepsRow(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{err: errors.New("provider down")}
	svc := newTestOTPService(ledger, gw, testOTPConfig())

	_, err := svc.IssueChallenge(context.Background(), "9876543210", "+91")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if ledger.Len() != 1 {
		t.Fatalf("ledger has %d rows, want 1", ledger.Len())
	}
}

func TestVerifyChallenge_SucceedsOnce(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	challenge, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	code := gw.last(t).Code

	if err := svc.VerifyChallenge(ctx, challenge.TransactionID, "9876543210", code); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	row, _ := ledger.Get(challenge.TransactionID, "9876543210")
	if row.Status != models.OTPStatusVerified {
		t.Errorf("status = %q, want VERIFIED", row.Status)
	}

	err = svc.VerifyChallenge(ctx, challenge.TransactionID, "9876543210", code)
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("second verify err = %v, want ErrChallengeNotFound", err)
	}
}

func TestVerifyChallenge_UnknownOrWrongHandle(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	challenge, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	code := gw.last(t).Code

	if err := svc.VerifyChallenge(ctx, "not-a-transaction", "9876543210", code); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("unknown transaction err = %v", err)
	}
	if err := svc.VerifyChallenge(ctx, challenge.TransactionID, "1111111111", code); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("wrong handle err = %v", err)
	}
}

func TestVerifyChallenge_Expiry(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	expired, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	expiredCode := gw.last(t).Code
	onTime, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	onTimeCode := gw.last(t).Code

	svc.now = func() time.Time { return base.Add(60 * time.Second) }
	if err := svc.VerifyChallenge(ctx, onTime.TransactionID, "9876543210", onTimeCode); err != nil {
		t.Fatalf("verify at the TTL boundary: %v", err)
	}

	svc.now = func() time.Time { return base.Add(61 * time.Second) }
	for i := 0; i < 2; i++ {
		err := svc.VerifyChallenge(ctx, expired.TransactionID, "9876543210", expiredCode)
		if !errors.Is(err, ErrChallengeExpired) {
			t.Fatalf("attempt %d err = %v, want ErrChallengeExpired", i, err)
		}
	}
	row, _ := ledger.Get(expired.TransactionID, "9876543210")
	if row.Status != models.OTPStatusPending {
		t.Errorf("expired row status = %q, want PENDING", row.Status)
	}
}

func TestVerifyChallenge_MismatchLeavesPending(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	challenge, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	code := gw.last(t).Code

	for i := 0; i < 3; i++ {
		if err := svc.VerifyChallenge(ctx, challenge.TransactionID, "9876543210", "000000"); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("mismatch err = %v", err)
		}
	}
	row, _ := ledger.Get(challenge.TransactionID, "9876543210")
	if row.Status != models.OTPStatusPending || row.Attempts != 0 {
		t.Fatalf("row mutated by mismatch: %+v", row)
	}

	if err := svc.VerifyChallenge(ctx, challenge.TransactionID, "9876543210", code); err != nil {
		t.Fatalf("verify after mismatch: %v", err)
	}
}

func TestVerifyChallenge_ConcurrentSingleWinner(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	svc := newTestOTPService(ledger, gw, testOTPConfig())
	ctx := context.Background()

	challenge, err := svc.IssueChallenge(ctx, "9876543210", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	code := gw.last(t).Code

	const n = 25
	var wg sync.WaitGroup
	results := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- svc.VerifyChallenge(ctx, challenge.TransactionID, "9876543210", code)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrChallengeNotFound):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
}

func TestIssueChallenge_TestBypass(t *testing.T) {
	ledger := repository.NewMemoryOTPLedger()
	gw := &recordingGateway{}
	cfg := testOTPConfig()
	cfg.TestBypass = true
	svc := newTestOTPService(ledger, gw, cfg)
	ctx := context.Background()

	challenge, err := svc.IssueChallenge(ctx, "9999999999", "+91")
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	if gw.count() != 0 {
		t.Fatal("gateway invoked for the test number")
	}
	if err := svc.VerifyChallenge(ctx, challenge.TransactionID, "9999999999", "123456"); err != nil {
		t.Fatalf("verify with fixed code: %v", err)
	}

	if _, err := svc.IssueChallenge(ctx, "9876543210", "+91"); err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	if gw.count() != 1 {
		t.Fatal("gateway skipped for a regular number")
	}
}

func TestIssueChallenge_BypassDisabled(t *testing.T) {
	gw := &recordingGateway{}
	svc := newTestOTPService(repository.NewMemoryOTPLedger(), gw, testOTPConfig())

	if _, err := svc.IssueChallenge(context.Background(), "9999999999", "+91"); err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	if gw.count() != 1 {
		t.Fatal("test number must go through the gateway when the bypass is off")
	}
}
