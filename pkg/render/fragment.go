package render

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/taigrr/scanline/pkg/math3d"
)

// DepthMode selects which of several fragments competing for one pixel is kept.
type DepthMode int

const (
	// DepthNearest keeps the fragment with the smallest NDC z. Depths are
	// compared at float32 precision, and depths equal at that precision
	// resolve to the lowest triangle index. Perspective z crowds toward 1,
	// so distant surfaces closer together than a float32 step tie.
	DepthNearest DepthMode = iota

	// DepthOff ignores depth: the highest triangle index (the one submitted
	// last) wins, regardless of the order the workers finish in.
	DepthOff
)

func (m DepthMode) String() string {
	switch m {
	case DepthNearest:
		return "nearest"
	case DepthOff:
		return "off"
	default:
		return fmt.Sprintf("DepthMode(%d)", int(m))
	}
}

// ParseDepthMode is the inverse of DepthMode.String.
func ParseDepthMode(s string) (DepthMode, error) {
	switch s {
	case "nearest", "":
		return DepthNearest, nil
	case "off":
		return DepthOff, nil
	}
	return 0, fmt.Errorf("unknown depth mode %q (want nearest or off)", s)
}

// emptyKey marks a pixel no triangle has claimed this frame.
const emptyKey = math.MaxUint64

// fragmentKey packs the ordering of a candidate fragment into 64 bits so a
// single atomic min decides the winner: ordered depth in the high word and
// the triangle index in the low word.
func fragmentKey(mode DepthMode, depth float64, tri int) uint64 {
	if mode == DepthOff {
		return uint64(math.MaxUint32 - uint32(tri))
	}
	return uint64(orderedDepth(depth))<<32 | uint64(uint32(tri))
}

// orderedDepth maps a depth to a uint32 whose unsigned order matches the
// float order. The depth is rounded to float32 first.
func orderedDepth(z float64) uint32 {
	bits := math.Float32bits(float32(z))
	if bits&0x80000000 != 0 {
		return ^bits
	}
	return bits | 0x80000000
}

// Fragment is the shading result stored for one pixel.
type Fragment struct {
	Depth    float64     // Interpolated NDC z, +Inf for background
	Color    math3d.Vec3 // Unclamped RGB
	Triangle int         // Triangle that produced it, -1 for background
}

// FragmentStore is the per-pixel fragment array shared by all rasterization
// workers of a frame. Ownership of a pixel is decided by an atomic
// compare-and-swap on its key; only the owner writes the fragment.
type FragmentStore struct {
	width     int
	height    int
	keys      []atomic.Uint64
	fragments []Fragment
}

// NewFragmentStore allocates a store of width*height fragments.
// Callers validate the dimensions; see Pipeline.Init.
func NewFragmentStore(width, height int) *FragmentStore {
	n := width * height
	return &FragmentStore{
		width:     width,
		height:    height,
		keys:      make([]atomic.Uint64, n),
		fragments: make([]Fragment, n),
	}
}

// Width returns the store width in pixels.
func (s *FragmentStore) Width() int { return s.width }

// Height returns the store height in pixels.
func (s *FragmentStore) Height() int { return s.height }

// Len returns width*height.
func (s *FragmentStore) Len() int { return len(s.fragments) }

// Clear resets every fragment to background and releases every pixel.
func (s *FragmentStore) Clear(background math3d.Vec3) {
	s.clearRange(0, len(s.fragments), background)
}

func (s *FragmentStore) clearRange(lo, hi int, background math3d.Vec3) {
	bg := Fragment{Depth: math.Inf(1), Color: background, Triangle: -1}
	for i := lo; i < hi; i++ {
		s.keys[i].Store(emptyKey)
		s.fragments[i] = bg
	}
}

// TryClaim lowers the key at idx to key if key is smaller. It reports
// whether key is the pixel's key afterwards, i.e. whether the caller
// currently owns the pixel.
func (s *FragmentStore) TryClaim(idx int, key uint64) bool {
	slot := &s.keys[idx]
	for {
		cur := slot.Load()
		if key >= cur {
			return key == cur
		}
		if slot.CompareAndSwap(cur, key) {
			return true
		}
	}
}

// Owns reports whether key is the winning key at idx.
func (s *FragmentStore) Owns(idx int, key uint64) bool {
	return s.keys[idx].Load() == key
}

// Write stores f at idx. Only the owner of the pixel may call it while
// other workers are active.
func (s *FragmentStore) Write(idx int, f Fragment) {
	s.fragments[idx] = f
}

// At returns the fragment at pixel (x, y), row 0 at the top.
func (s *FragmentStore) At(x, y int) Fragment {
	return s.fragments[y*s.width+x]
}

// Covered reports whether any triangle claimed pixel (x, y) this frame.
func (s *FragmentStore) Covered(x, y int) bool {
	return s.keys[y*s.width+x].Load() != emptyKey
}

// Compose copies every fragment color into fb, 1:1 with no blending.
func (s *FragmentStore) Compose(fb *Framebuffer) error {
	if fb.Width != s.width || fb.Height != s.height {
		return fmt.Errorf("%w: framebuffer %dx%d, fragment store %dx%d",
			ErrSurfaceSize, fb.Width, fb.Height, s.width, s.height)
	}
	s.composeRange(fb.Pixels, 0, len(s.fragments))
	return nil
}

func (s *FragmentStore) composeRange(dst []Color, lo, hi int) {
	for i := lo; i < hi; i++ {
		dst[i] = ColorFromVec3(s.fragments[i].Color)
	}
}
