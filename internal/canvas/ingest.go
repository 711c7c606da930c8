package canvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path"
	"strconv"
	"strings"

	// Decoders for probing generated asset dimensions.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

const (
	gridColumns = 3
	gridStartX  = 50
	gridStartY  = 50
	gridStepX   = 350
	gridStepY   = 450
	fitMaxSide  = 320
)

// AssetWriter persists asset bytes; satisfied by *storage.FileStore.
type AssetWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Ingester turns a generated asset into an image layer placed on a
// three-column grid by the task's submission index.
type Ingester struct {
	store   domain.LayerStore
	files   AssetWriter
	baseURL string
	logger  *infra.Logger
}

// NewIngester builds an Ingester. With a nil writer layers carry the asset
// inline as a data URI.
func NewIngester(store domain.LayerStore, files AssetWriter, baseURL string, logger *infra.Logger) *Ingester {
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Ingester{store: store, files: files, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (i *Ingester) Ingest(ctx context.Context, task domain.Task, asset domain.AssetRef) (string, error) {
	if len(asset.Data) == 0 {
		return "", fmt.Errorf("canvas: empty asset for %q", task.LayerName)
	}
	w, h := Dimensions(asset.Data, task.AspectRatio)
	w, h = Fit(w, h, fitMaxSide)

	layer := domain.Layer{
		Type:    domain.LayerImage,
		Name:    task.LayerName,
		X:       float64(gridStartX + (task.Index%gridColumns)*gridStepX),
		Y:       float64(gridStartY + (task.Index/gridColumns)*gridStepY),
		Width:   w,
		Height:  h,
		Opacity: 1,
		Src:     asset.DataURI(),
	}
	if i.files != nil {
		key, err := i.files.Write(ctx, AssetKey(task.JobID, task.Index, task.LayerName, asset.MIMEType), asset.Data)
		if err != nil {
			return "", err
		}
		layer.StorageKey = key
		if i.baseURL != "" {
			layer.Src = i.baseURL + "/" + key
		}
	}

	added, err := i.store.AddLayer(ctx, layer)
	if err != nil {
		return "", err
	}
	i.logger.Debug().
		Str("job_id", task.JobID).
		Int("task_index", task.Index).
		Str("layer_id", added.ID).
		Msg("canvas: asset ingested")
	return added.ID, nil
}

// AssetKey is the storage key of one generated asset.
func AssetKey(jobID string, index int, name, mime string) string {
	ext := "png"
	switch mime {
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, name)
	if jobID == "" {
		jobID = "adhoc"
	}
	return path.Join("generated", jobID, fmt.Sprintf("%02d-%s.%s", index+1, slug, ext))
}

// Dimensions probes encoded image bytes; unknown formats fall back to the
// aspect ratio at 1024 wide.
func Dimensions(data []byte, aspect string) (float64, float64) {
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return float64(cfg.Width), float64(cfg.Height)
	}
	if a, b, ok := ParseRatio(aspect); ok {
		return 1024, 1024 * b / a
	}
	return 1024, 1024
}

// ParseRatio parses "W:H".
func ParseRatio(aspect string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, errA := strconv.ParseFloat(parts[0], 64)
	b, errB := strconv.ParseFloat(parts[1], 64)
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return 0, 0, false
	}
	return a, b, true
}

// Fit scales w x h so the longer side equals maxSide.
func Fit(w, h, maxSide float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxSide, maxSide
	}
	if w >= h {
		return maxSide, maxSide * h / w
	}
	return maxSide * w / h, maxSide
}
