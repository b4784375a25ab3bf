package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestCursor_RoundTrip(t *testing.T) {
	in := Cursor{RoomID: "r1", CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC), ID: "01J0000000000000000000000A"}
	out, err := DecodeCursor("r1", EncodeCursor(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestDecodeCursor_EmptyAndInvalid(t *testing.T) {
	if c, err := DecodeCursor("r1", ""); err != nil || c != nil {
		t.Fatalf("empty: c=%v err=%v", c, err)
	}
	other := EncodeCursor(Cursor{RoomID: "r2", CreatedAt: time.Now(), ID: "x"})
	cases := map[string]string{
		"bad base64":   "!!!",
		"malformed":    "bm90LWEtY3Vyc29y",
		"other room":   other,
		"no timestamp": EncodeCursor(Cursor{RoomID: "r1", ID: "x"}),
	}
	for name, in := range cases {
		if _, err := DecodeCursor("r1", in); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("%s: err=%v, want ErrInvalidCursor", name, err)
		}
	}
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("migrations=%d, want at least 2", len(entries))
	}
	for _, e := range entries {
		b, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(b), "-- +goose Up") || !strings.Contains(string(b), "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", e.Name())
		}
	}
}

func TestApplyPoolConfig_RuntimeParams(t *testing.T) {
	pc, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/live")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	applyPoolConfig(pc, Config{MaxConns: 7, ApplicationName: "live-room", StatementTimeout: 1500 * time.Millisecond})

	if pc.MaxConns != 7 {
		t.Fatalf("MaxConns=%d", pc.MaxConns)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "live-room" {
		t.Fatalf("application_name=%q", got)
	}
	if got := pc.ConnConfig.RuntimeParams["statement_timeout"]; got != "1500" {
		t.Fatalf("statement_timeout=%q", got)
	}
}
