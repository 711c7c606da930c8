package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/canvas"
	"studio/internal/domain"
	"studio/internal/imagegen"
	"studio/internal/infra"
	"studio/internal/providers/chat"
	"studio/internal/providers/image"
)

const (
	maxImagesPerCall = 9
	gridMargin       = 20.0
	gridGap          = 10.0
	defaultFontSize  = 60.0
	defaultTextColor = "#18181b"
	agentPromptTail  = " --quality 2 --stylize 1000"
	layerNotFound    = "Layer not found"
	emptyCanvas      = "Empty canvas"
)

// Dispatcher executes model tool calls against the canvas.
type Dispatcher struct {
	store    domain.LayerStore
	synth    image.Synthesizer
	composer *imagegen.Composer
	logger   *infra.Logger
}

func NewDispatcher(store domain.LayerStore, synth image.Synthesizer, composer *imagegen.Composer, logger *infra.Logger) *Dispatcher {
	if composer == nil {
		composer = imagegen.NewComposer(nil, "")
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Dispatcher{store: store, synth: synth, composer: composer, logger: logger}
}

// Execute runs one call and returns a short summary for the model. Missing
// or malformed arguments fail with domain.ErrValidation before any canvas
// access.
func (d *Dispatcher) Execute(ctx context.Context, call chat.FunctionCall) (string, error) {
	args := call.Args
	switch call.Name {
	case ToolAddText:
		return d.addText(ctx, args)
	case ToolGenerateImage:
		return d.generateImages(ctx, args)
	case ToolUpdateLayer:
		return d.updateLayer(ctx, args)
	case ToolInspectCanvas:
		return d.inspect(ctx)
	default:
		return "", domain.Invalid("agent.unknown_tool", fmt.Sprintf("unknown tool %q", call.Name))
	}
}

func (d *Dispatcher) addText(ctx context.Context, args map[string]any) (string, error) {
	text, err := requireString(args, "text")
	if err != nil {
		return "", err
	}
	role, _ := stringArg(args, "type")
	style, _ := stringArg(args, "style")
	color, _ := stringArg(args, "color")
	position, _ := stringArg(args, "yPosition")
	fontSize, ok := numberArg(args, "fontSize")
	height := 100.0
	if ok && fontSize > 0 {
		height = fontSize * 1.5
	} else {
		fontSize = defaultFontSize
	}

	size := d.store.CanvasSize()
	layer := TextPlacement(size, text, role, position, fontSize)
	layer.Height = height
	layer.Name = role
	if layer.Name == "" {
		layer.Name = "Text"
	}
	if color == "" {
		color = defaultTextColor
	}
	family, weight := "Inter", "normal"
	if strings.Contains(style, "serif") {
		family = "Georgia"
	}
	if strings.Contains(style, "bold") {
		weight = "bold"
	}
	layer.TextStyle = &domain.TextStyle{
		FontSize:   fontSize,
		Color:      color,
		FontFamily: family,
		FontWeight: weight,
		Align:      "center",
		Effect:     "none",
	}

	if _, err := d.store.AddLayer(ctx, layer); err != nil {
		return "", err
	}
	return fmt.Sprintf("Success: Added text %q", text), nil
}

// TextPlacement positions a text layer: vertical slot from position and
// role, width estimated from length, centred horizontally.
func TextPlacement(size domain.CanvasSize, text, role, position string, fontSize float64) domain.Layer {
	y := 100.0
	switch position {
	case "center":
		y = size.Height/2 - 50
	case "bottom":
		y = size.Height - 250
	case "top":
		y = 150
	}
	switch role {
	case "sub_title":
		y += 100
	case "button_text":
		y = size.Height - 180
	}

	width := math.Min(float64(utf8.RuneCountInString(text))*fontSize, size.Width*0.9)
	x := (size.Width - width) / 2
	if x <= 0 {
		x = 50
	}
	return domain.Layer{Type: domain.LayerText, Text: text, X: x, Y: y, Width: width}
}

func (d *Dispatcher) generateImages(ctx context.Context, args map[string]any) (string, error) {
	prompt, err := requireString(args, "prompt")
	if err != nil {
		return "", err
	}
	name, err := requireString(args, "layerName")
	if err != nil {
		return "", err
	}
	if d.synth == nil {
		return "", fmt.Errorf("agent: image synthesis not configured: %w", domain.ErrProviderUnavailable)
	}
	count := 1
	if n, ok := numberArg(args, "count"); ok {
		count = min(max(1, int(n)), maxImagesPerCall)
	}
	size := d.store.CanvasSize()
	aspect, _ := stringArg(args, "aspectRatio")
	if _, _, ok := canvas.ParseRatio(aspect); !ok {
		aspect = size.Ratio
	}
	if _, _, ok := canvas.ParseRatio(aspect); !ok {
		aspect = "1:1"
	}

	comp, err := d.composer.Compose(domain.Job{
		Mode:        domain.ModeCreative,
		Prompt:      prompt + agentPromptTail,
		AspectRatio: aspect,
		ImageSize:   domain.Size1K,
	}, domain.Combination{})
	if err != nil {
		return "", err
	}

	assets := make([]domain.AssetRef, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range count {
		g.Go(func() error {
			asset, err := d.synth.Synthesize(gctx, image.SynthesisRequest{
				Prompt:      comp.Prompt,
				Negative:    comp.Negative,
				AspectRatio: aspect,
				ImageSize:   domain.Size1K,
			})
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	group := uuid.NewString()
	ids := make([]string, 0, count)
	for i, cell := range GridLayout(size, count, aspect) {
		added, err := d.store.AddLayer(ctx, domain.Layer{
			Type:    domain.LayerImage,
			Name:    fmt.Sprintf("%s %d", name, i+1),
			Src:     assets[i].DataURI(),
			X:       cell.X,
			Y:       cell.Y,
			Width:   cell.Width,
			Height:  cell.Height,
			GroupID: group,
		})
		if err != nil {
			return "", err
		}
		ids = append(ids, added.ID)
	}
	if err := d.store.SelectLayers(ctx, ids); err != nil {
		d.logger.Warn().Err(err).Msg("agent: select generated layers")
	}
	d.logger.Info().
		Int("count", count).
		Str("group_id", group).
		Msg("agent: images generated")
	return fmt.Sprintf("Generated %d images in a matrix layout.", count), nil
}

// Cell is one placed rectangle of an image grid.
type Cell struct {
	X, Y, Width, Height float64
}

// GridLayout arranges n images of the given aspect ratio on a near-square
// grid inside the canvas, each centred in its cell.
func GridLayout(size domain.CanvasSize, n int, aspect string) []Cell {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))
	availW := size.Width - gridMargin*2
	availH := size.Height - gridMargin*2
	cellW := (availW - gridGap*float64(cols-1)) / float64(cols)
	cellH := (availH - gridGap*float64(rows-1)) / float64(rows)

	ratio := 1.0
	if a, b, ok := canvas.ParseRatio(aspect); ok {
		ratio = a / b
	}
	w, h := cellW, cellW/ratio
	if h > cellH {
		h = cellH
		w = h * ratio
	}

	cells := make([]Cell, n)
	for i := range cells {
		c, r := i%cols, i/cols
		cells[i] = Cell{
			X:      gridMargin + float64(c)*(cellW+gridGap) + (cellW-w)/2,
			Y:      gridMargin + float64(r)*(cellH+gridGap) + (cellH-h)/2,
			Width:  w,
			Height: h,
		}
	}
	return cells
}

func (d *Dispatcher) updateLayer(ctx context.Context, args map[string]any) (string, error) {
	keyword, err := requireString(args, "layerNameKeyword")
	if err != nil {
		return "", err
	}
	property, err := requireString(args, "property")
	if err != nil {
		return "", err
	}
	value, err := requireString(args, "value")
	if err != nil {
		return "", err
	}
	patch, err := layerPatch(property, value)
	if err != nil {
		return "", err
	}

	layers, err := d.store.Layers(ctx)
	if err != nil {
		return "", err
	}
	target, ok := FindLayer(layers, keyword)
	if !ok {
		return layerNotFound, nil
	}
	if _, err := d.store.UpdateLayer(ctx, target.ID, patch); err != nil {
		return "", err
	}
	return "Updated " + target.Name, nil
}

// FindLayer returns the first layer whose name, or text for text layers,
// contains keyword case-insensitively.
func FindLayer(layers []domain.Layer, keyword string) (domain.Layer, bool) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return domain.Layer{}, false
	}
	for _, l := range layers {
		if strings.Contains(strings.ToLower(l.Name), kw) {
			return l, true
		}
		if l.Type == domain.LayerText && strings.Contains(strings.ToLower(l.Text), kw) {
			return l, true
		}
	}
	return domain.Layer{}, false
}

func layerPatch(property, value string) (func(*domain.Layer), error) {
	switch property {
	case "x", "y", "width", "height", "opacity", "rotation", "fontSize":
		n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "px"), 64)
		if err != nil {
			return nil, domain.Invalid("agent.bad_value", fmt.Sprintf("%s must be numeric, got %q", property, value))
		}
		return func(l *domain.Layer) {
			switch property {
			case "x":
				l.X = n
			case "y":
				l.Y = n
			case "width":
				l.Width = n
			case "height":
				l.Height = n
			case "opacity":
				l.Opacity = n
			case "rotation":
				l.Rotation = n
			case "fontSize":
				if l.TextStyle != nil {
					l.TextStyle.FontSize = n
				}
			}
		}, nil
	case "color":
		return func(l *domain.Layer) {
			l.Color = value
			if l.TextStyle != nil {
				l.TextStyle.Color = value
			}
		}, nil
	case "text":
		return func(l *domain.Layer) { l.Text = value }, nil
	case "name":
		return func(l *domain.Layer) { l.Name = value }, nil
	}
	return nil, domain.Invalid("agent.bad_property", fmt.Sprintf("unsupported property %q", property))
}

func (d *Dispatcher) inspect(ctx context.Context) (string, error) {
	layers, err := d.store.Layers(ctx)
	if err != nil {
		return "", err
	}
	if len(layers) == 0 {
		return emptyCanvas, nil
	}
	parts := make([]string, len(layers))
	for i, l := range layers {
		parts[i] = fmt.Sprintf("%s (%s)", l.Name, l.Type)
	}
	return strings.Join(parts, ", "), nil
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := stringArg(args, key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", domain.Invalid("agent.missing_arg", fmt.Sprintf("missing required argument %q", key))
	}
	return v, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	switch v := args[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
