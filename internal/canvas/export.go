package canvas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/pkg/zip"
)

// AssetReader loads persisted asset bytes; satisfied by *storage.FileStore.
type AssetReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Export archives every image layer, or only the listed ids when given.
// Layers whose bytes cannot be resolved are skipped.
func Export(ctx context.Context, store domain.LayerStore, files AssetReader, ids []string) ([]byte, int, error) {
	layers, err := store.Layers(ctx)
	if err != nil {
		return nil, 0, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var assets []zip.Asset
	for _, layer := range layers {
		if layer.Type != domain.LayerImage {
			continue
		}
		if len(want) > 0 && !want[layer.ID] {
			continue
		}
		ref, ok := layerBytes(ctx, layer, files)
		if !ok {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: exportName(len(assets), layer, ref.MIMEType),
			MIME:     ref.MIMEType,
			Data:     ref.Data,
		})
	}
	if len(assets) == 0 {
		return nil, 0, fmt.Errorf("canvas: no exportable images: %w", domain.ErrNotFound)
	}
	data, err := zip.ArchiveAssets(assets, time.Now())
	if err != nil {
		return nil, 0, err
	}
	return data, len(assets), nil
}

func layerBytes(ctx context.Context, layer domain.Layer, files AssetReader) (domain.ImageRef, bool) {
	if strings.HasPrefix(layer.Src, "data:") {
		ref, err := domain.ParseDataURI(layer.Src)
		return ref, err == nil
	}
	if layer.StorageKey != "" && files != nil {
		data, err := files.Read(ctx, layer.StorageKey)
		if err != nil {
			return domain.ImageRef{}, false
		}
		mime := "image/png"
		switch {
		case strings.HasSuffix(layer.StorageKey, ".jpg"):
			mime = "image/jpeg"
		case strings.HasSuffix(layer.StorageKey, ".webp"):
			mime = "image/webp"
		}
		return domain.ImageRef{MIMEType: mime, Data: data}, true
	}
	return domain.ImageRef{}, false
}

func exportName(i int, layer domain.Layer, mime string) string {
	key := AssetKey("", i, layer.Name, mime)
	return key[strings.LastIndex(key, "/")+1:]
}
