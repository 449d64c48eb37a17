package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/yoday/yoday/internal/models"
)

type recordedQuery struct {
	sql  string
	args []any
}

// recordingQuerier matches nothing: every update touches zero rows and
// every select comes back empty.
type recordingQuerier struct {
	queries []recordedQuery
}

type emptyRow struct{}

func (emptyRow) Scan(...any) error { return pgx.ErrNoRows }

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.queries = append(q.queries, recordedQuery{sql, args})
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.queries = append(q.queries, recordedQuery{sql, args})
	return emptyRow{}
}

func TestPostgresOTPLedgerFiltersOnPurpose(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	db := &recordingQuerier{}
	ledger := NewPostgresOTPRepository(db, logger)
	tx := uuid.NewString()

	if _, err := ledger.FindPending(ctx, models.OTPPurposeAdmin, tx, "ops@yoday.app"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindPending err = %v, want ErrNotFound", err)
	}
	if err := ledger.MarkVerified(ctx, models.OTPPurposeAdmin, tx, "ops@yoday.app"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("MarkVerified err = %v, want ErrNotPending", err)
	}

	if len(db.queries) != 2 {
		t.Fatalf("ran %d queries, want 2", len(db.queries))
	}
	for _, q := range db.queries {
		if !strings.Contains(q.sql, "purpose = $3") {
			t.Errorf("query does not filter on purpose: %s", q.sql)
		}
		if q.args[2] != models.OTPPurposeAdmin {
			t.Errorf("purpose arg = %v, want %s", q.args[2], models.OTPPurposeAdmin)
		}
	}
}
