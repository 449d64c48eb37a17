package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"github.com/yoday/yoday/internal/delivery"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []delivery.Message
	err  error
}

func (g *recordingGateway) Send(_ context.Context, msg delivery.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	return g.err
}

func (g *recordingGateway) last(t *testing.T) delivery.Message {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		t.Fatal("no message delivered")
	}
	return g.sent[len(g.sent)-1]
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		Purpose:    models.OTPPurposeUser,
		Length:     6,
		Expiry:     60 * time.Second,
		HashCost:   bcrypt.MinCost,
		TestNumber: "9999999999",
		TestCode:   "123456",
	}
}

func newTestOTPService(ledger repository.OTPLedger, gw delivery.Gateway, cfg config.OTPConfig) *OTPService {
	return NewOTPService(ledger, gw, cfg, newTestLogger())
}

func newTestJWTService(t *testing.T, users repository.UserStore) *JWTService {
	t.Helper()
	svc, err := NewJWTService(config.JWTConfig{SecretKey: testSecret, Expiry: 7 * 24 * time.Hour}, users, newTestLogger())
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}
	return svc
}
