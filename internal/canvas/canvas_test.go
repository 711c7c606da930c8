package canvas

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"studio/internal/domain"
	"studio/internal/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestStoreAddUpdateSelect(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.CanvasSize{})
	if size := store.CanvasSize(); size.Width != 1080 || size.Height != 1080 {
		t.Fatalf("default size = %+v", size)
	}

	first, err := store.AddLayer(ctx, domain.Layer{Type: domain.LayerText, Text: "SALE"})
	if err != nil {
		t.Fatalf("AddLayer returned error: %v", err)
	}
	if first.ID == "" || first.Opacity != 1 || first.ZIndex != 1 {
		t.Fatalf("defaults not applied: %+v", first)
	}
	second, _ := store.AddLayer(ctx, domain.Layer{Type: domain.LayerImage})
	if second.ZIndex != 2 {
		t.Fatalf("ZIndex = %d, want 2", second.ZIndex)
	}

	updated, err := store.UpdateLayer(ctx, first.ID, func(l *domain.Layer) {
		l.Text = "NEW"
		l.ID = "hijack"
	})
	if err != nil {
		t.Fatalf("UpdateLayer returned error: %v", err)
	}
	if updated.Text != "NEW" || updated.ID != first.ID {
		t.Fatalf("updated = %+v", updated)
	}
	if _, err := store.UpdateLayer(ctx, "missing", func(*domain.Layer) {}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	_ = store.SelectLayers(ctx, []string{second.ID, "ghost"})
	if sel := store.Selected(); len(sel) != 1 || sel[0] != second.ID {
		t.Fatalf("Selected() = %v", sel)
	}
	if err := store.Remove(ctx, second.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if sel := store.Selected(); len(sel) != 0 {
		t.Fatalf("selection not pruned: %v", sel)
	}
}

func TestStoreSnapshotsDoNotShareTextStyle(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.CanvasSize{})
	style := &domain.TextStyle{FontSize: 60, Color: "#111111"}
	added, err := store.AddLayer(ctx, domain.Layer{Type: domain.LayerText, Text: "SALE", TextStyle: style})
	if err != nil {
		t.Fatalf("AddLayer returned error: %v", err)
	}
	style.FontSize = 1

	snapshot, _ := store.Layers(ctx)
	updated, err := store.UpdateLayer(ctx, added.ID, func(l *domain.Layer) {
		l.TextStyle.FontSize = 10
		l.TextStyle.Color = "#ff0000"
	})
	if err != nil {
		t.Fatalf("UpdateLayer returned error: %v", err)
	}
	if snapshot[0].TextStyle.FontSize != 60 || snapshot[0].TextStyle.Color != "#111111" {
		t.Fatalf("snapshot style mutated: %+v", snapshot[0].TextStyle)
	}
	if added.TextStyle.FontSize != 60 {
		t.Fatalf("AddLayer result mutated: %+v", added.TextStyle)
	}
	updated.TextStyle.FontSize = 99
	current, _ := store.Layers(ctx)
	if current[0].TextStyle.FontSize != 10 {
		t.Fatalf("stored font size = %v, want 10", current[0].TextStyle.FontSize)
	}
}

func TestIngesterPlacesOnGrid(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.CanvasSize{})
	ing := NewIngester(store, nil, "", nil)
	data := pngBytes(t, 64, 128)

	for i := range 5 {
		task := domain.Task{JobID: "job", Index: i, LayerName: "Batch"}
		if _, err := ing.Ingest(ctx, task, domain.AssetRef{MIMEType: "image/png", Data: data}); err != nil {
			t.Fatalf("Ingest returned error: %v", err)
		}
	}
	layers, _ := store.Layers(ctx)
	if len(layers) != 5 {
		t.Fatalf("len(layers) = %d, want 5", len(layers))
	}
	last := layers[4]
	if last.X != 400 || last.Y != 500 {
		t.Fatalf("index 4 at (%v,%v), want (400,500)", last.X, last.Y)
	}
	if last.Width != 160 || last.Height != 320 {
		t.Fatalf("fitted size = %vx%v, want 160x320", last.Width, last.Height)
	}
	if last.Src[:5] != "data:" {
		t.Fatalf("Src = %q, want data uri", last.Src[:10])
	}
}

func TestIngesterSpoolsToStorage(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	store := NewStore(domain.CanvasSize{})
	ing := NewIngester(store, files, "/static/", nil)

	data := pngBytes(t, 10, 10)
	id, err := ing.Ingest(ctx, domain.Task{JobID: "j1", Index: 0, LayerName: "Pose Standing"}, domain.AssetRef{MIMEType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	layers, _ := store.Layers(ctx)
	if layers[0].ID != id {
		t.Fatalf("layer id = %q, want %q", layers[0].ID, id)
	}
	if want := "generated/j1/01-Pose-Standing.png"; layers[0].StorageKey != want {
		t.Fatalf("StorageKey = %q, want %q", layers[0].StorageKey, want)
	}
	if want := "/static/generated/j1/01-Pose-Standing.png"; layers[0].Src != want {
		t.Fatalf("Src = %q, want %q", layers[0].Src, want)
	}

	archive, n, err := Export(ctx, store, files, nil)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported %d, want 1", n)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "01-Pose-Standing.png" {
		t.Fatalf("archive entries = %v", zr.File)
	}
}

func TestExportWithoutImagesIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.CanvasSize{})
	_, _ = store.AddLayer(ctx, domain.Layer{Type: domain.LayerText, Text: "x"})
	if _, _, err := Export(ctx, store, nil, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestDimensionsFallsBackToAspect(t *testing.T) {
	w, h := Dimensions([]byte("not an image"), "16:9")
	if w != 1024 || h != 576 {
		t.Fatalf("Dimensions = %vx%v, want 1024x576", w, h)
	}
	if w, h := Fit(2000, 1000, 320); w != 320 || h != 160 {
		t.Fatalf("Fit = %vx%v", w, h)
	}
}
