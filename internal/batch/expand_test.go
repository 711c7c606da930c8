package batch

import (
	"testing"

	"studio/internal/domain"
)

func TestExpandRightmostVariesFastest(t *testing.T) {
	axes := []domain.Axis{
		{Name: "image", Values: []string{"0", "1"}},
		{Name: "pose", Values: []string{"a", "b", "c"}},
		{Name: "scene", Values: []string{"x", "y"}},
	}
	got := Expand(axes)
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	want := [][3]string{
		{"0", "a", "x"}, {"0", "a", "y"}, {"0", "b", "x"}, {"0", "b", "y"},
		{"0", "c", "x"}, {"0", "c", "y"}, {"1", "a", "x"}, {"1", "a", "y"},
	}
	for i, w := range want {
		c := got[i]
		if c.Ordinal != i || c.Value("image") != w[0] || c.Value("pose") != w[1] || c.Value("scene") != w[2] {
			t.Fatalf("combo %d = %+v, want %v", i, c, w)
		}
	}
}

func TestExpandEmptyAxisUsesSentinel(t *testing.T) {
	got := Expand([]domain.Axis{
		{Name: "image", Values: []string{"0"}},
		{Name: "pose"},
		{Name: "scene"},
	})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Value("pose") != DefaultAxisValue || got[0].Value("scene") != DefaultAxisValue {
		t.Fatalf("combo = %+v", got[0])
	}
}

func TestExpandCountIsProduct(t *testing.T) {
	cases := []struct {
		sizes []int
		want  int
	}{
		{nil, 1},
		{[]int{3}, 3},
		{[]int{2, 0, 4}, 8},
		{[]int{5, 5, 3}, 75},
	}
	for _, tc := range cases {
		axes := make([]domain.Axis, len(tc.sizes))
		for i, n := range tc.sizes {
			axes[i].Name = string(rune('a' + i))
			for v := 0; v < n; v++ {
				axes[i].Values = append(axes[i].Values, string(rune('0'+v)))
			}
		}
		if got := len(Expand(axes)); got != tc.want {
			t.Fatalf("sizes %v: len = %d, want %d", tc.sizes, got, tc.want)
		}
	}
}
