package genai

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	// Registers JPEG and GIF decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
)

// previewEdge is the long edge of synthetic renders. They stand in for real
// output, so only the aspect ratio has to be faithful.
const previewEdge = 256

// syntheticImage renders a placeholder "product card": a vertical gradient
// with a centred panel. Identical requests produce identical bytes.
func (c *Client) syntheticImage(req ImageRequest) ImageAsset {
	h := sha256.New()
	for _, part := range []string{req.Model, req.Prompt, req.AspectRatio, req.ImageSize} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, ref := range req.References {
		h.Write(ref.Data)
	}
	sum := h.Sum(nil)

	width, height := previewSize(req.AspectRatio)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	top := color.NRGBA{sum[0], sum[1], sum[2], 255}
	bottom := color.NRGBA{sum[3], sum[4], sum[5], 255}
	panel := color.NRGBA{sum[6] | 0x80, sum[7] | 0x80, sum[8] | 0x80, 255}

	inset := image.Rect(width/5, height/5, width-width/5, height-height/5)
	for y := 0; y < height; y++ {
		row := blend(top, bottom, y, height)
		for x := 0; x < width; x++ {
			if (image.Point{X: x, Y: y}).In(inset) {
				img.SetNRGBA(x, y, panel)
				continue
			}
			img.SetNRGBA(x, y, row)
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	c.logger.Debug().
		Str("model", req.Model).
		Str("aspect_ratio", req.AspectRatio).
		Int("bytes", buf.Len()).
		Msg("genai: rendered synthetic image")

	return ImageAsset{
		Format:    "image/png",
		Width:     width,
		Height:    height,
		Data:      buf.Bytes(),
		Synthetic: true,
	}
}

func blend(a, b color.NRGBA, step, steps int) color.NRGBA {
	if steps <= 1 {
		return a
	}
	mix := func(x, y uint8) uint8 {
		return uint8((int(x)*(steps-1-step) + int(y)*step) / (steps - 1))
	}
	return color.NRGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// previewSize scales "W:H" so the long edge is previewEdge. Anything
// unparseable renders square.
func previewSize(aspect string) (int, int) {
	w, h, ok := parseRatio(aspect)
	if !ok {
		return previewEdge, previewEdge
	}
	if w >= h {
		return previewEdge, max(1, previewEdge*h/w)
	}
	return max(1, previewEdge*w/h), previewEdge
}

func parseRatio(aspect string) (int, int, bool) {
	left, right, found := strings.Cut(strings.TrimSpace(aspect), ":")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(left))
	h, errH := strconv.Atoi(strings.TrimSpace(right))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
