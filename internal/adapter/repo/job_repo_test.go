package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.pos-1])
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d dest, %d values", len(dest), len(values))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *bool:
			*d = v.(bool)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", dest[i])
		}
	}
	return nil
}

type execCall struct {
	query string
	args  []any
}

type fakeDB struct {
	execs    []execCall
	affected int64
	row      simpleRow
	rows     *fakeRows
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", f.affected)), nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return f.row
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return f.rows, nil
}

func TestEnqueueAssignsIDAndEncodesJob(t *testing.T) {
	db := &fakeDB{}
	db.row = simpleRow{scan: func(dest ...any) error {
		*(dest[0].(*string)) = db.execs[0].args[0].(string)
		return nil
	}}
	repo := NewJobRepository(db)

	id, err := repo.Enqueue(context.Background(), domain.Job{Mode: domain.ModeFission, Prompt: "coat", Poses: []string{"stand_basic"}})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if id == "" {
		t.Fatal("Enqueue returned empty id")
	}
	call := db.execs[0]
	if !strings.HasPrefix(call.query, "--sql ") {
		t.Fatalf("query missing marker: %q", call.query[:20])
	}
	if call.args[1] != "fission" {
		t.Fatalf("mode arg = %v", call.args[1])
	}
	var decoded domain.Job
	if err := json.Unmarshal(call.args[2].([]byte), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.ID != id || decoded.Poses[0] != "stand_basic" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestClaimEmptyQueueIsNotFound(t *testing.T) {
	repo := NewJobRepository(&fakeDB{})
	if _, err := repo.Claim(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestGetDecodesRecord(t *testing.T) {
	payload, _ := json.Marshal(domain.Job{Mode: domain.ModeCreative, Prompt: "tee"})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: simpleRow{scan: func(dest ...any) error {
		return assign(dest, []any{"job-1", "PARTIAL", payload, 6, 5, 1, false, now, now})
	}}}
	rec, err := NewJobRepository(db).Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Status != domain.JobStatusPartial || rec.Job.ID != "job-1" || rec.Job.Prompt != "tee" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Progress != (domain.BatchProgress{Total: 6, Completed: 5, Failed: 1}) {
		t.Fatalf("progress = %+v", rec.Progress)
	}
}

func TestRecordOutcomeArgs(t *testing.T) {
	db := &fakeDB{}
	repo := NewJobRepository(db)
	task := domain.Task{Index: 3, LayerName: "Batch-4"}

	ok := domain.Succeeded(task, domain.AssetRef{Model: "m", Tier: domain.TierFallback}, "layer")
	if err := repo.RecordOutcome(context.Background(), "j", ok, "generated/j/04.png"); err != nil {
		t.Fatalf("RecordOutcome returned error: %v", err)
	}
	args := db.execs[0].args
	if args[1] != 3 || args[3] != true || args[4] != "generated/j/04.png" || args[6] != "fallback" || args[7] != "" {
		t.Fatalf("args = %v", args)
	}

	failed := domain.Failed(task, domain.ErrTransient)
	_ = repo.RecordOutcome(context.Background(), "j", failed, "")
	args = db.execs[1].args
	if args[3] != false || args[7] != "transient failure" {
		t.Fatalf("args = %v", args)
	}
}

func TestOutcomesScansRows(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{0, "Batch-1", true, "k1", "m", "primary", ""},
		{1, "Batch-2", false, "", "", "", "boom"},
	}}}
	out, err := NewJobRepository(db).Outcomes(context.Background(), "j")
	if err != nil {
		t.Fatalf("Outcomes returned error: %v", err)
	}
	if len(out) != 2 || out[0].Tier != domain.TierPrimary || out[1].Error != "boom" {
		t.Fatalf("out = %+v", out)
	}
}

func TestRequestCancelUnknownJob(t *testing.T) {
	repo := NewJobRepository(&fakeDB{affected: 0})
	if err := repo.RequestCancel(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := NewJobRepository(&fakeDB{affected: 1}).RequestCancel(context.Background(), "j"); err != nil {
		t.Fatalf("RequestCancel returned error: %v", err)
	}
}
