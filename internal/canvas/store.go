// Package canvas holds the in-memory design surface and places generated
// assets onto it.
package canvas

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// Store is an in-memory LayerStore. Mutations are serialized.
type Store struct {
	mu       sync.RWMutex
	size     domain.CanvasSize
	layers   []domain.Layer
	selected []string
}

func NewStore(size domain.CanvasSize) *Store {
	if size.Width <= 0 {
		size.Width = 1080
	}
	if size.Height <= 0 {
		size.Height = 1080
	}
	if size.Label == "" {
		size.Label = "Custom"
	}
	return &Store{size: size}
}

func (s *Store) CanvasSize() domain.CanvasSize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// AddLayer assigns an id and stacking order when missing.
func (s *Store) AddLayer(ctx context.Context, layer domain.Layer) (domain.Layer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Layer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer.ID == "" {
		layer.ID = uuid.NewString()
	}
	if layer.Opacity == 0 {
		layer.Opacity = 1
	}
	if layer.ZIndex == 0 {
		layer.ZIndex = len(s.layers) + 1
	}
	if layer.Name == "" {
		layer.Name = fmt.Sprintf("Layer %d", len(s.layers)+1)
	}
	s.layers = append(s.layers, cloneLayer(layer))
	return cloneLayer(layer), nil
}

func (s *Store) UpdateLayer(ctx context.Context, id string, mutate func(*domain.Layer)) (domain.Layer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Layer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.layers {
		if s.layers[i].ID == id {
			mutate(&s.layers[i])
			s.layers[i].ID = id
			return cloneLayer(s.layers[i]), nil
		}
	}
	return domain.Layer{}, fmt.Errorf("canvas: layer %s: %w", id, domain.ErrNotFound)
}

func (s *Store) Layers(ctx context.Context) ([]domain.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = cloneLayer(l)
	}
	return out, nil
}

// cloneLayer detaches the text style so callers never share it with the store.
func cloneLayer(l domain.Layer) domain.Layer {
	if l.TextStyle != nil {
		style := *l.TextStyle
		l.TextStyle = &style
	}
	return l
}

// SelectLayers replaces the selection. Unknown ids are ignored.
func (s *Store) SelectLayers(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = s.selected[:0]
	for _, id := range ids {
		if slices.ContainsFunc(s.layers, func(l domain.Layer) bool { return l.ID == id }) {
			s.selected = append(s.selected, id)
		}
	}
	return nil
}

func (s *Store) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

// Remove deletes a layer by id.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.layers, func(l domain.Layer) bool { return l.ID == id })
	if idx < 0 {
		return fmt.Errorf("canvas: layer %s: %w", id, domain.ErrNotFound)
	}
	s.layers = slices.Delete(s.layers, idx, idx+1)
	s.selected = slices.DeleteFunc(s.selected, func(sel string) bool { return sel == id })
	return nil
}

// Clear empties the canvas.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = nil
	s.selected = nil
}

var _ domain.LayerStore = (*Store)(nil)
