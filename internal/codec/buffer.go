// Package codec implements the per-instance control queue, worker, and
// codec session state machine that sit between a host bridge and a native
// media library. See SPEC_FULL.md for the full operation contract.
package codec

import (
	"fmt"
)

// PixelFormat identifies the layout of an uncompressed FrameBuffer.
type PixelFormat string

const (
	PixelRGBA     PixelFormat = "RGBA"
	PixelRGBX     PixelFormat = "RGBX"
	PixelBGRA     PixelFormat = "BGRA"
	PixelBGRX     PixelFormat = "BGRX"
	PixelI420     PixelFormat = "I420"
	PixelI420A    PixelFormat = "I420A"
	PixelI422     PixelFormat = "I422"
	PixelI422A    PixelFormat = "I422A"
	PixelI444     PixelFormat = "I444"
	PixelI444A    PixelFormat = "I444A"
	PixelNV12     PixelFormat = "NV12"
	PixelNV21     PixelFormat = "NV21"
	PixelNV12A    PixelFormat = "NV12A"
	PixelI420P10  PixelFormat = "I420P10"
	PixelI422P10  PixelFormat = "I422P10"
	PixelI444P10  PixelFormat = "I444P10"
	PixelNV12P10  PixelFormat = "NV12P10"
	PixelI420AP10 PixelFormat = "I420AP10"
	PixelI422AP10 PixelFormat = "I422AP10"
	PixelI444AP10 PixelFormat = "I444AP10"
	PixelI420P12  PixelFormat = "I420P12"
	PixelI422P12  PixelFormat = "I422P12"
	PixelI444P12  PixelFormat = "I444P12"
)

// formatDesc carries the parameters needed to compute an allocation size and
// a canonical plane layout for a pixel format.
type formatDesc struct {
	bitDepth     int
	numPlanes    int
	chromaHShift int
	chromaVShift int
	hasAlpha     bool
	isSemiPlanar bool
	isPacked     bool
}

var formatTable = map[PixelFormat]formatDesc{
	PixelRGBA: {bitDepth: 8, numPlanes: 1, isPacked: true},
	PixelRGBX: {bitDepth: 8, numPlanes: 1, isPacked: true},
	PixelBGRA: {bitDepth: 8, numPlanes: 1, isPacked: true},
	PixelBGRX: {bitDepth: 8, numPlanes: 1, isPacked: true},

	PixelI420:  {bitDepth: 8, numPlanes: 3, chromaHShift: 1, chromaVShift: 1},
	PixelI420A: {bitDepth: 8, numPlanes: 4, chromaHShift: 1, chromaVShift: 1, hasAlpha: true},
	PixelI422:  {bitDepth: 8, numPlanes: 3, chromaHShift: 1, chromaVShift: 0},
	PixelI422A: {bitDepth: 8, numPlanes: 4, chromaHShift: 1, chromaVShift: 0, hasAlpha: true},
	PixelI444:  {bitDepth: 8, numPlanes: 3, chromaHShift: 0, chromaVShift: 0},
	PixelI444A: {bitDepth: 8, numPlanes: 4, chromaHShift: 0, chromaVShift: 0, hasAlpha: true},

	PixelNV12:  {bitDepth: 8, numPlanes: 2, chromaHShift: 1, chromaVShift: 1, isSemiPlanar: true},
	PixelNV21:  {bitDepth: 8, numPlanes: 2, chromaHShift: 1, chromaVShift: 1, isSemiPlanar: true},
	PixelNV12A: {bitDepth: 8, numPlanes: 3, chromaHShift: 1, chromaVShift: 1, isSemiPlanar: true, hasAlpha: true},

	PixelI420P10: {bitDepth: 10, numPlanes: 3, chromaHShift: 1, chromaVShift: 1},
	PixelI422P10: {bitDepth: 10, numPlanes: 3, chromaHShift: 1, chromaVShift: 0},
	PixelI444P10: {bitDepth: 10, numPlanes: 3, chromaHShift: 0, chromaVShift: 0},
	PixelNV12P10: {bitDepth: 10, numPlanes: 2, chromaHShift: 1, chromaVShift: 1, isSemiPlanar: true},

	PixelI420AP10: {bitDepth: 10, numPlanes: 4, chromaHShift: 1, chromaVShift: 1, hasAlpha: true},
	PixelI422AP10: {bitDepth: 10, numPlanes: 4, chromaHShift: 1, chromaVShift: 0, hasAlpha: true},
	PixelI444AP10: {bitDepth: 10, numPlanes: 4, chromaHShift: 0, chromaVShift: 0, hasAlpha: true},

	PixelI420P12: {bitDepth: 12, numPlanes: 3, chromaHShift: 1, chromaVShift: 1},
	PixelI422P12: {bitDepth: 12, numPlanes: 3, chromaHShift: 1, chromaVShift: 0},
	PixelI444P12: {bitDepth: 12, numPlanes: 3, chromaHShift: 0, chromaVShift: 0},
}

// bytesPerSample rounds bit depth up to a whole byte, per the ⌈bit_depth/8⌉
// rule used throughout the allocation-size formulas.
func (d formatDesc) bytesPerSample() int {
	return (d.bitDepth + 7) / 8
}

// AllocationSize returns the minimum byte length a FrameBuffer payload must
// have to hold width x height pixels of format.
func AllocationSize(format PixelFormat, width, height int) (int, error) {
	d, ok := formatTable[format]
	if !ok {
		return 0, fmt.Errorf("codec: unknown pixel format %q", format)
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("codec: invalid dimensions %dx%d", width, height)
	}

	if d.isPacked {
		return width * height * 4, nil
	}

	bps := d.bytesPerSample()
	cw := width >> d.chromaHShift
	ch := height >> d.chromaVShift
	y := width * height * bps

	if d.isSemiPlanar {
		uv := cw * 2 * ch * bps
		total := y + uv
		if d.hasAlpha {
			total += y
		}
		return total, nil
	}

	uv := cw * ch * bps
	total := y + 2*uv
	if d.hasAlpha {
		total += y
	}
	return total, nil
}

// Rect is a pixel-space rectangle used for the visible region of a coded
// frame and for copy-out destination regions.
type Rect struct {
	X, Y, Width, Height int
}

// Dimensions is a plain width/height pair.
type Dimensions struct {
	Width, Height int
}

// Rotation is a clockwise rotation applied at render time.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Colorspace carries the optional color metadata W3C VideoColorSpace exposes.
type Colorspace struct {
	Primaries string
	Transfer  string
	Matrix    string
	FullRange bool
}

// PlaneLayout describes one plane's placement within a buffer for copy-out.
type PlaneLayout struct {
	Offset int
	Stride int
}

// FrameBuffer is an owned, uncompressed media buffer plus its pixel-format
// metadata. It is produced by a host submitting an encode; a decoder session
// also wraps each decoded I420 frame in one to convert it into the RGBA
// bytes of a DecodedOutput payload.
type FrameBuffer struct {
	Data        []byte
	Format      PixelFormat
	Coded       Dimensions
	Visible     Rect
	Display     Dimensions
	Timestamp   int64
	Duration    *int64
	Rotation    Rotation
	HFlip       bool
	Colorspace  *Colorspace
}

// Validate checks the invariants from the data-model spec: the visible rect
// must lie within the coded dimensions, and the payload must be large enough
// to hold the coded dimensions at the declared format.
func (f *FrameBuffer) Validate() error {
	if f.Visible.X < 0 || f.Visible.Y < 0 {
		return fmt.Errorf("codec: visible rect origin (%d,%d) must be non-negative", f.Visible.X, f.Visible.Y)
	}
	if f.Visible.X+f.Visible.Width > f.Coded.Width {
		return fmt.Errorf("codec: visible rect exceeds coded width (%d+%d > %d)", f.Visible.X, f.Visible.Width, f.Coded.Width)
	}
	if f.Visible.Y+f.Visible.Height > f.Coded.Height {
		return fmt.Errorf("codec: visible rect exceeds coded height (%d+%d > %d)", f.Visible.Y, f.Visible.Height, f.Coded.Height)
	}
	minLen, err := AllocationSize(f.Format, f.Coded.Width, f.Coded.Height)
	if err != nil {
		return err
	}
	if len(f.Data) < minLen {
		return fmt.Errorf("codec: payload too small for %s at %dx%d: have %d, need %d", f.Format, f.Coded.Width, f.Coded.Height, len(f.Data), minLen)
	}
	return nil
}

// canonicalPlaneLayout returns the default plane offsets/strides for format
// at the given dimensions, in the canonical Y,U,V,A (planar) or Y,UV
// (semi-planar) order.
func canonicalPlaneLayout(format PixelFormat, width, height int) ([]PlaneLayout, error) {
	d, ok := formatTable[format]
	if !ok {
		return nil, fmt.Errorf("codec: unknown pixel format %q", format)
	}
	if d.isPacked {
		return []PlaneLayout{{Offset: 0, Stride: width * 4}}, nil
	}

	bps := d.bytesPerSample()
	cw := width >> d.chromaHShift
	ch := height >> d.chromaVShift
	ySize := width * height * bps
	yStride := width * bps

	if d.isSemiPlanar {
		layout := []PlaneLayout{
			{Offset: 0, Stride: yStride},
			{Offset: ySize, Stride: cw * 2 * bps},
		}
		if d.hasAlpha {
			layout = append(layout, PlaneLayout{Offset: ySize + cw*2*ch*bps, Stride: yStride})
		}
		return layout, nil
	}

	uSize := cw * ch * bps
	uStride := cw * bps
	layout := []PlaneLayout{
		{Offset: 0, Stride: yStride},
		{Offset: ySize, Stride: uStride},
		{Offset: ySize + uSize, Stride: uStride},
	}
	if d.hasAlpha {
		layout = append(layout, PlaneLayout{Offset: ySize + 2*uSize, Stride: yStride})
	}
	return layout, nil
}

// CopyOptions controls a FrameBuffer.CopyTo call.
type CopyOptions struct {
	Rect         Rect
	TargetFormat PixelFormat
	Layout       []PlaneLayout
}

// CopyTo writes the region described by opts into dst and returns the number
// of bytes written. When opts.Rect is the zero value, the full visible rect
// is used. When opts.TargetFormat is empty, the source format is used. A
// format or rect change triggers convertAndScale; otherwise this is a
// straight plane-by-plane copy using the canonical (or caller-supplied)
// layout.
func (f *FrameBuffer) CopyTo(dst []byte, opts CopyOptions) (int, error) {
	rect := opts.Rect
	if rect == (Rect{}) {
		rect = f.Visible
	}
	targetFormat := opts.TargetFormat
	if targetFormat == "" {
		targetFormat = f.Format
	}

	need, err := AllocationSize(targetFormat, rect.Width, rect.Height)
	if err != nil {
		return 0, err
	}
	if len(dst) < need {
		return 0, fmt.Errorf("codec: destination buffer too small: have %d, need %d", len(dst), need)
	}

	if targetFormat != f.Format || rect != f.Coded0Rect() {
		return convertAndScale(f, dst, rect, targetFormat, opts.Layout)
	}
	return copyPlanes(f, dst, opts.Layout)
}

// Coded0Rect returns the coded dimensions expressed as a zero-origin Rect,
// used to detect whether CopyTo is a full-frame copy or a sub-rect extract.
func (f *FrameBuffer) Coded0Rect() Rect {
	return Rect{X: 0, Y: 0, Width: f.Coded.Width, Height: f.Coded.Height}
}

func copyPlanes(f *FrameBuffer, dst []byte, layout []PlaneLayout) (int, error) {
	srcLayout, err := canonicalPlaneLayout(f.Format, f.Coded.Width, f.Coded.Height)
	if err != nil {
		return 0, err
	}
	dstLayout := layout
	if dstLayout == nil {
		dstLayout = srcLayout
	}
	if len(dstLayout) != len(srcLayout) {
		return 0, fmt.Errorf("codec: layout has %d planes, format %s needs %d", len(dstLayout), f.Format, len(srcLayout))
	}

	total := 0
	for i, sp := range srcLayout {
		dp := dstLayout[i]
		planeLen := planeByteLen(f.Format, f.Coded.Width, f.Coded.Height, i)
		if sp.Offset+planeLen > len(f.Data) {
			return 0, fmt.Errorf("codec: source plane %d out of range", i)
		}
		if dp.Offset+planeLen > len(dst) {
			return 0, fmt.Errorf("codec: destination plane %d out of range", i)
		}
		copy(dst[dp.Offset:dp.Offset+planeLen], f.Data[sp.Offset:sp.Offset+planeLen])
		total += planeLen
	}
	return total, nil
}

// planeByteLen returns the byte length of plane index in format at the given
// dimensions; used by copyPlanes to bound each memcpy.
func planeByteLen(format PixelFormat, width, height, planeIndex int) int {
	d := formatTable[format]
	bps := d.bytesPerSample()
	if d.isPacked {
		return width * height * 4
	}
	cw := width >> d.chromaHShift
	ch := height >> d.chromaVShift
	ySize := width * height * bps

	if d.isSemiPlanar {
		switch planeIndex {
		case 0:
			return ySize
		case 1:
			return cw * 2 * ch * bps
		default:
			return ySize
		}
	}
	switch planeIndex {
	case 0, 3:
		return ySize
	default:
		return cw * ch * bps
	}
}

// PacketType distinguishes a PacketBuffer that a decoder can start from
// (key) from one that depends on prior reference frames (delta).
type PacketType string

const (
	PacketKey   PacketType = "key"
	PacketDelta PacketType = "delta"
)

// PacketBuffer is a compressed, codec-specific payload produced by an
// encoder session or consumed by a decoder session.
type PacketBuffer struct {
	Data      []byte
	Type      PacketType
	Timestamp int64
	Duration  *int64
}
