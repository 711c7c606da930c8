package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const defaultImageMIME = "image/png"

// ImageRef is an inline reference image payload.
type ImageRef struct {
	MIMEType string
	Data     []byte
}

// ParseDataURI decodes "data:<mime>;base64,<payload>" or a bare base64 string.
func ParseDataURI(raw string) (ImageRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ImageRef{}, errors.New("empty image payload")
	}
	mime := defaultImageMIME
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		idx := strings.Index(raw, ",")
		if idx < 0 {
			return ImageRef{}, errors.New("malformed data uri")
		}
		header := raw[len("data:"):idx]
		if semi := strings.Index(header, ";"); semi >= 0 {
			header = header[:semi]
		}
		if header != "" {
			mime = header
		}
		payload = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageRef{}, err
	}
	return ImageRef{MIMEType: mime, Data: data}, nil
}

// DataURI renders the image as a base64 data URI.
func (r ImageRef) DataURI() string {
	mime := r.MIMEType
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Empty reports whether the reference carries no bytes.
func (r ImageRef) Empty() bool {
	return len(r.Data) == 0
}

func (r ImageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.DataURI())
}

func (r *ImageRef) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseDataURI(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// AssetRef is a generated image returned by the synthesis provider.
type AssetRef struct {
	MIMEType string
	Data     []byte
	Model    string
	Tier     Tier
}

// DataURI renders the asset as a base64 data URI.
func (a AssetRef) DataURI() string {
	return ImageRef{MIMEType: a.MIMEType, Data: a.Data}.DataURI()
}
