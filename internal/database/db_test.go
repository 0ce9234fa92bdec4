package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnect_Validation(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}

	if _, err := Connect(context.Background(), "invalid-dsn"); err == nil {
		t.Fatalf("expected error for invalid dsn")
	}
}

type execStub struct {
	sql string
	err error
}

func (s *execStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	return pgconn.CommandTag{}, s.err
}

func TestEnsureSchema(t *testing.T) {
	db := &execStub{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.sql, "CREATE TABLE IF NOT EXISTS lead_enrichments") {
		t.Fatalf("unexpected schema: %s", db.sql)
	}

	if err := EnsureSchema(context.Background(), &execStub{err: errors.New("denied")}); err == nil {
		t.Fatalf("expected exec error to propagate")
	}
}
