package domain

import "context"

// LayerType distinguishes canvas layer kinds.
type LayerType string

const (
	LayerText  LayerType = "text"
	LayerImage LayerType = "image"
)

// TextStyle describes how a text layer renders.
type TextStyle struct {
	FontSize   float64 `json:"font_size"`
	Color      string  `json:"color"`
	FontFamily string  `json:"font_family"`
	FontWeight string  `json:"font_weight"`
	Align      string  `json:"align"`
	Effect     string  `json:"effect"`
}

// Layer is one element on the design canvas.
type Layer struct {
	ID         string     `json:"id"`
	Type       LayerType  `json:"type"`
	Name       string     `json:"name"`
	Text       string     `json:"text,omitempty"`
	Src        string     `json:"src,omitempty"`
	StorageKey string     `json:"storage_key,omitempty"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Opacity    float64    `json:"opacity"`
	Rotation   float64    `json:"rotation"`
	ZIndex     int        `json:"z_index"`
	GroupID    string     `json:"group_id,omitempty"`
	Color      string     `json:"color,omitempty"`
	TextStyle  *TextStyle `json:"text_style,omitempty"`
}

// CanvasSize is the design surface dimensions.
type CanvasSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ratio  string  `json:"ratio"`
	Label  string  `json:"label"`
}

// LayerStore is the canvas collaborator the engine writes results into.
type LayerStore interface {
	AddLayer(ctx context.Context, layer Layer) (Layer, error)
	UpdateLayer(ctx context.Context, id string, mutate func(*Layer)) (Layer, error)
	Layers(ctx context.Context) ([]Layer, error)
	SelectLayers(ctx context.Context, ids []string) error
	CanvasSize() CanvasSize
}
