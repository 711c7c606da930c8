package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/sqlinline"
)

type fakeSQL struct {
	key       string
	props     string
	updatedAt time.Time
	err       error

	execQuery string
	execArgs  []any
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execQuery, f.execArgs = query, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return credentialRow{f: f}
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unused")
}

type credentialRow struct{ f *fakeSQL }

func (r credentialRow) Scan(dest ...any) error {
	if r.f.err != nil {
		return r.f.err
	}
	*dest[0].(*string) = r.f.key
	*dest[1].(*[]byte) = []byte(r.f.props)
	*dest[2].(*time.Time) = r.f.updatedAt
	return nil
}

func TestLookup(t *testing.T) {
	at := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	store := NewStore(&fakeSQL{key: " AIzaSecret1234 ", props: `{"note":"ops"}`, updatedAt: at})

	cred, ok, err := store.Lookup(context.Background(), ProviderGemini)
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v", ok, err)
	}
	if cred.APIKey != "AIzaSecret1234" || cred.Properties["note"] != "ops" || !cred.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if got := cred.Masked(); got != "**********1234" {
		t.Fatalf("Masked() = %q", got)
	}
}

func TestLookupMissing(t *testing.T) {
	store := NewStore(&fakeSQL{err: pgx.ErrNoRows})
	_, ok, err := store.Lookup(context.Background(), ProviderGemini)
	if err != nil || ok {
		t.Fatalf("Lookup = %v, %v; want not found without error", ok, err)
	}
}

func TestResolveGeminiAPIKey(t *testing.T) {
	store := NewStore(&fakeSQL{key: "stored"})
	if key, _ := store.ResolveGeminiAPIKey(context.Background(), " env-key "); key != "env-key" {
		t.Fatalf("explicit key should win, got %q", key)
	}
	if key, _ := store.ResolveGeminiAPIKey(context.Background(), ""); key != "stored" {
		t.Fatalf("stored key expected, got %q", key)
	}

	var nilStore *Store
	if key, err := nilStore.ResolveGeminiAPIKey(context.Background(), ""); key != "" || err != nil {
		t.Fatalf("nil store = %q, %v", key, err)
	}

	failing := NewStore(&fakeSQL{err: errors.New("conn refused")})
	if _, err := failing.ResolveGeminiAPIKey(context.Background(), ""); err == nil {
		t.Fatal("database errors should surface")
	}
}

func TestRotate(t *testing.T) {
	fake := &fakeSQL{}
	store := NewStore(fake)
	store.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	if err := store.Rotate(context.Background(), ProviderGemini, " new-key ", "quarterly"); err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if fake.execQuery != sqlinline.QUpsertProviderCredential {
		t.Fatal("unexpected statement")
	}
	if fake.execArgs[0] != ProviderGemini || fake.execArgs[1] != "new-key" {
		t.Fatalf("args = %v", fake.execArgs[:2])
	}
	var props map[string]string
	if err := json.Unmarshal(fake.execArgs[2].([]byte), &props); err != nil {
		t.Fatalf("props: %v", err)
	}
	if props["rotated_at"] != "2025-06-01T00:00:00Z" || props["note"] != "quarterly" {
		t.Fatalf("props = %v", props)
	}

	if err := store.Rotate(context.Background(), ProviderGemini, "  ", ""); err == nil {
		t.Fatal("blank key should be rejected")
	}
}
