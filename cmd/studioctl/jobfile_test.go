package main

import (
	"os"
	"path/filepath"
	"testing"

	"studio/internal/domain"
)

func TestParseJobFileLoadsImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dress.jpg"), []byte{0xff, 0xd8}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bag.png"), []byte{0x89, 'P'}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	raw := []byte(`
mode: agent_batch
prompt: summer collection
image_size: 2k
product_images: [dress.jpg, bag.png]
poses: [stand_basic]
scenes: []
options:
  lighting: soft
`)
	job, err := parseJobFile(raw, dir)
	if err != nil {
		t.Fatalf("parseJobFile returned error: %v", err)
	}
	if job.Mode != domain.ModeBatch || job.ImageSize != domain.Size2K {
		t.Fatalf("mode/size = %q/%q", job.Mode, job.ImageSize)
	}
	if len(job.ProductImages) != 2 || job.ProductImages[0].MIMEType != "image/jpeg" || job.ProductImages[1].Data[0] != 0x89 {
		t.Fatalf("product images = %+v", job.ProductImages)
	}
	if job.Options.Lighting != "soft" {
		t.Fatalf("options = %+v", job.Options)
	}
	if job.ReferenceImage != nil {
		t.Fatal("reference image should stay nil when not given")
	}
}

func TestParseJobFileRejectsUnknownMode(t *testing.T) {
	if _, err := parseJobFile([]byte("mode: sculpt\n"), t.TempDir()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestParseJobFileMissingImage(t *testing.T) {
	if _, err := parseJobFile([]byte("mode: creative\nreference_image: nope.png\n"), t.TempDir()); err == nil {
		t.Fatal("expected error for a missing image file")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
}
