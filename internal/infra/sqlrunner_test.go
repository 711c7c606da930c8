package infra

import (
	"errors"
	"strings"
	"testing"

	"studio/internal/sqlinline"
)

func TestSplitMarker(t *testing.T) {
	marker, stmt, err := SplitMarker("\n--sql 0b6d3a52-5f0e-4c0a-9a38-2d7f6c1e9b10\nSELECT 1\n")
	if err != nil {
		t.Fatalf("SplitMarker returned error: %v", err)
	}
	if marker != "0b6d3a52-5f0e-4c0a-9a38-2d7f6c1e9b10" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(stmt) != "SELECT 1" {
		t.Fatalf("stmt = %q", stmt)
	}
}

func TestSplitMarkerRejects(t *testing.T) {
	for _, q := range []string{"SELECT 1", "--sql not-a-uuid\nSELECT 1", ""} {
		if _, _, err := SplitMarker(q); !errors.Is(err, ErrSQLMarker) {
			t.Fatalf("SplitMarker(%q) err = %v, want ErrSQLMarker", q, err)
		}
	}
	if _, _, err := SplitMarker("--sql 0b6d3a52-5f0e-4c0a-9a38-2d7f6c1e9b10\n  "); err == nil {
		t.Fatal("marker without a statement should fail")
	}
}

func TestInlineStatementsCarryMarkers(t *testing.T) {
	for name, q := range map[string]string{
		"ensure_schema": sqlinline.QEnsureGenerationSchema,
		"enqueue":       sqlinline.QEnqueueGenerationJob,
		"claim":         sqlinline.QClaimGenerationJob,
		"credential":    sqlinline.QSelectProviderCredential,
	} {
		if _, _, err := SplitMarker(q); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}
