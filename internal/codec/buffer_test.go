package codec

import "testing"

func TestAllocationSizePacked(t *testing.T) {
	got, err := AllocationSize(PixelRGBA, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	if want := 64 * 32 * 4; got != want {
		t.Fatalf("AllocationSize(RGBA, 64, 32) = %d, want %d", got, want)
	}
}

func TestAllocationSizePlanar420(t *testing.T) {
	got, err := AllocationSize(PixelI420, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	y := 64 * 32
	uv := 32 * 16
	if want := y + 2*uv; got != want {
		t.Fatalf("AllocationSize(I420, 64, 32) = %d, want %d", got, want)
	}
}

func TestAllocationSizePlanarWithAlpha(t *testing.T) {
	got, err := AllocationSize(PixelI420A, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	y := 64 * 32
	uv := 32 * 16
	if want := y + 2*uv + y; got != want {
		t.Fatalf("AllocationSize(I420A, 64, 32) = %d, want %d", got, want)
	}
}

func TestAllocationSizeSemiPlanar(t *testing.T) {
	got, err := AllocationSize(PixelNV12, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	y := 64 * 32
	uv := 32 * 2 * 16
	if want := y + uv; got != want {
		t.Fatalf("AllocationSize(NV12, 64, 32) = %d, want %d", got, want)
	}
}

func TestAllocationSizeUnknownFormat(t *testing.T) {
	if _, err := AllocationSize(PixelFormat("bogus"), 64, 32); err == nil {
		t.Fatal("expected error for unknown pixel format")
	}
}

func TestFrameBufferValidateVisibleRectOutOfBounds(t *testing.T) {
	size, _ := AllocationSize(PixelRGBA, 64, 64)
	f := &FrameBuffer{
		Data:    make([]byte, size),
		Format:  PixelRGBA,
		Coded:   Dimensions{Width: 64, Height: 64},
		Visible: Rect{X: 0, Y: 0, Width: 128, Height: 64},
	}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for visible rect exceeding coded width")
	}
}

func TestFrameBufferValidatePayloadTooSmall(t *testing.T) {
	f := &FrameBuffer{
		Data:    make([]byte, 10),
		Format:  PixelRGBA,
		Coded:   Dimensions{Width: 64, Height: 64},
		Visible: Rect{X: 0, Y: 0, Width: 64, Height: 64},
	}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for undersized payload")
	}
}

func TestFrameBufferValidateOK(t *testing.T) {
	size, _ := AllocationSize(PixelI420, 64, 64)
	f := &FrameBuffer{
		Data:    make([]byte, size),
		Format:  PixelI420,
		Coded:   Dimensions{Width: 64, Height: 64},
		Visible: Rect{X: 0, Y: 0, Width: 64, Height: 64},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCopyToAllocationSizeRoundTrip(t *testing.T) {
	size, _ := AllocationSize(PixelI420, 32, 16)
	f := &FrameBuffer{
		Data:    make([]byte, size),
		Format:  PixelI420,
		Coded:   Dimensions{Width: 32, Height: 16},
		Visible: Rect{X: 0, Y: 0, Width: 32, Height: 16},
	}
	dst := make([]byte, size)
	n, err := f.CopyTo(dst, CopyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if n != size {
		t.Fatalf("CopyTo wrote %d bytes, want %d", n, size)
	}
}

func TestCopyToVisibleRectSubset(t *testing.T) {
	size, _ := AllocationSize(PixelI420, 32, 16)
	f := &FrameBuffer{
		Data:    make([]byte, size),
		Format:  PixelI420,
		Coded:   Dimensions{Width: 32, Height: 16},
		Visible: Rect{X: 0, Y: 0, Width: 32, Height: 16},
	}
	rect := Rect{X: 0, Y: 0, Width: 16, Height: 8}
	want, _ := AllocationSize(PixelI420, 16, 8)
	dst := make([]byte, want)
	n, err := f.CopyTo(dst, CopyOptions{Rect: rect})
	if err != nil {
		t.Fatal(err)
	}
	if n != want {
		t.Fatalf("CopyTo(rect) wrote %d bytes, want %d", n, want)
	}
}

func TestCopyToDestinationTooSmall(t *testing.T) {
	size, _ := AllocationSize(PixelI420, 32, 16)
	f := &FrameBuffer{
		Data:    make([]byte, size),
		Format:  PixelI420,
		Coded:   Dimensions{Width: 32, Height: 16},
		Visible: Rect{X: 0, Y: 0, Width: 32, Height: 16},
	}
	if _, err := f.CopyTo(make([]byte, 4), CopyOptions{}); err == nil {
		t.Fatal("expected error for undersized destination")
	}
}

func TestCopyToFormatConversionRGBAToI420(t *testing.T) {
	size, _ := AllocationSize(PixelRGBA, 4, 4)
	data := make([]byte, size)
	for i := 0; i < len(data); i += 4 {
		data[i+0], data[i+1], data[i+2], data[i+3] = 200, 50, 50, 255
	}
	f := &FrameBuffer{
		Data:    data,
		Format:  PixelRGBA,
		Coded:   Dimensions{Width: 4, Height: 4},
		Visible: Rect{X: 0, Y: 0, Width: 4, Height: 4},
	}
	want, _ := AllocationSize(PixelI420, 4, 4)
	dst := make([]byte, want)
	n, err := f.CopyTo(dst, CopyOptions{TargetFormat: PixelI420})
	if err != nil {
		t.Fatal(err)
	}
	if n != want {
		t.Fatalf("wrote %d bytes, want %d", n, want)
	}
	if dst[0] == 0 {
		t.Fatal("expected non-zero luma sample for a bright red pixel")
	}
}
