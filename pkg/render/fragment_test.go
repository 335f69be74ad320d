package render

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/taigrr/scanline/pkg/math3d"
)

func TestOrderedDepthMonotonic(t *testing.T) {
	depths := []float64{math.Inf(-1), -1e30, -1, -0.5, -1e-30, 0, 1e-30, 0.25, 0.5, 1, 1e30, math.Inf(1)}
	for i := 1; i < len(depths); i++ {
		a, b := orderedDepth(depths[i-1]), orderedDepth(depths[i])
		if a >= b {
			t.Errorf("orderedDepth(%v) = %#x, not below orderedDepth(%v) = %#x", depths[i-1], a, depths[i], b)
		}
	}
}

func TestFragmentKeyOrdering(t *testing.T) {
	tests := []struct {
		name string
		win  func() uint64
		lose func() uint64
	}{
		{
			name: "nearer depth wins",
			win:  func() uint64 { return fragmentKey(DepthNearest, -0.2, 9) },
			lose: func() uint64 { return fragmentKey(DepthNearest, 0.4, 0) },
		},
		{
			name: "equal depth lower index wins",
			win:  func() uint64 { return fragmentKey(DepthNearest, 0.4, 2) },
			lose: func() uint64 { return fragmentKey(DepthNearest, 0.4, 5) },
		},
		{
			name: "depths within one float32 step tie on index",
			win:  func() uint64 { return fragmentKey(DepthNearest, 0.5+1e-9, 0) },
			lose: func() uint64 { return fragmentKey(DepthNearest, 0.5, 1) },
		},
		{
			name: "depth off higher index wins",
			win:  func() uint64 { return fragmentKey(DepthOff, 0.9, 7) },
			lose: func() uint64 { return fragmentKey(DepthOff, -0.9, 6) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w, l := tc.win(), tc.lose(); w >= l {
				t.Errorf("winner key %#x not below loser key %#x", w, l)
			}
			if tc.win() == emptyKey {
				t.Error("key collides with the empty marker")
			}
		})
	}
}

func TestFragmentStoreClear(t *testing.T) {
	store := NewFragmentStore(5, 3)
	bg := math3d.V3(0.25, 0.5, 0.75)
	store.Clear(bg)

	for y := range 3 {
		for x := range 5 {
			f := store.At(x, y)
			if f.Color != bg || f.Triangle != -1 || !math.IsInf(f.Depth, 1) {
				t.Fatalf("At(%d,%d) = %+v, want background", x, y, f)
			}
			if store.Covered(x, y) {
				t.Fatalf("pixel (%d,%d) covered after Clear", x, y)
			}
		}
	}
}

func TestFragmentStoreTryClaim(t *testing.T) {
	store := NewFragmentStore(1, 1)
	store.Clear(math3d.Vec3{})

	if !store.TryClaim(0, 50) {
		t.Fatal("first claim failed")
	}
	if store.TryClaim(0, 80) {
		t.Error("larger key claimed the pixel")
	}
	if !store.TryClaim(0, 50) {
		t.Error("re-claim with the winning key reported false")
	}
	if !store.TryClaim(0, 20) {
		t.Error("smaller key did not claim the pixel")
	}
	if store.Owns(0, 50) {
		t.Error("previous owner still owns the pixel")
	}
	if !store.Owns(0, 20) {
		t.Error("new owner does not own the pixel")
	}
}

func TestFragmentStoreConcurrentClaims(t *testing.T) {
	const (
		pixels     = 64
		goroutines = 32
		claims     = 500
	)
	store := NewFragmentStore(pixels, 1)
	store.Clear(math3d.Vec3{})

	mins := make([][]uint64, goroutines)
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(g), 1))
			local := make([]uint64, pixels)
			for i := range local {
				local[i] = emptyKey
			}
			for range claims {
				idx := rng.IntN(pixels)
				key := rng.Uint64N(1 << 40)
				store.TryClaim(idx, key)
				local[idx] = min(local[idx], key)
			}
			mins[g] = local
		}()
	}
	wg.Wait()

	for idx := range pixels {
		want := uint64(emptyKey)
		for g := range goroutines {
			want = min(want, mins[g][idx])
		}
		if !store.Owns(idx, want) {
			t.Errorf("pixel %d: owner is not the minimum key %#x", idx, want)
		}
	}
}

func TestFragmentStoreCompose(t *testing.T) {
	store := NewFragmentStore(2, 2)
	store.Clear(math3d.V3(0, 0, 1))
	store.Write(1, Fragment{Color: math3d.V3(1.5, -0.2, 0.5), Triangle: 0})

	fb := NewFramebuffer(2, 2)
	if err := store.Compose(fb); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got, want := fb.GetPixel(0, 0), RGB(0, 0, 255); got != want {
		t.Errorf("background pixel = %v, want %v", got, want)
	}
	if got, want := fb.GetPixel(1, 0), RGB(255, 0, 128); got != want {
		t.Errorf("clamped pixel = %v, want %v", got, want)
	}
}

func TestFragmentStoreComposeSizeMismatch(t *testing.T) {
	store := NewFragmentStore(4, 4)
	err := store.Compose(NewFramebuffer(4, 3))
	if !errors.Is(err, ErrSurfaceSize) {
		t.Errorf("Compose error = %v, want ErrSurfaceSize", err)
	}
}

func BenchmarkTryClaim(b *testing.B) {
	store := NewFragmentStore(256, 256)
	store.Clear(math3d.Vec3{})
	n := store.Len()
	i := 0
	for b.Loop() {
		store.TryClaim(i%n, fragmentKey(DepthNearest, 0.5, i))
		i++
	}
}

func TestParseModes(t *testing.T) {
	for _, m := range []DepthMode{DepthNearest, DepthOff} {
		got, err := ParseDepthMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseDepthMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	for _, m := range []ShadeMode{ShadeNormal, ShadeVertexColor} {
		got, err := ParseShadeMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseShadeMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseDepthMode("farthest"); err == nil {
		t.Error("ParseDepthMode should reject unknown modes")
	}
	if _, err := ParseShadeMode("phong"); err == nil {
		t.Error("ParseShadeMode should reject unknown modes")
	}
}
