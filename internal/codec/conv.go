package codec

import "fmt"

// convertAndScale produces dst in targetFormat at rect.Width x rect.Height by
// cropping to rect and, when the format differs, running it through the
// RGBA<->I420 fixed-point BT.601 paths below. It intentionally only covers
// the packed-RGB family and planar-8-bit-4:2:0 family; any other combination
// of formats returns an error rather than silently mis-converting, since the
// native media library's own scaler (§6.2) is the collaborator responsible
// for the full pixel-format matrix once a backend is wired in.
func convertAndScale(f *FrameBuffer, dst []byte, rect Rect, targetFormat PixelFormat, layout []PlaneLayout) (int, error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return 0, fmt.Errorf("codec: invalid copy-out rect %+v", rect)
	}

	switch {
	case isPackedRGB(f.Format) && targetFormat == PixelI420:
		return packedToI420(f, dst, rect)
	case f.Format == PixelI420 && isPackedRGB(targetFormat):
		return i420ToPacked(f, dst, rect, targetFormat)
	case f.Format == targetFormat:
		return cropPlanes(f, dst, rect, layout)
	default:
		return 0, fmt.Errorf("codec: unsupported copy-out conversion %s -> %s", f.Format, targetFormat)
	}
}

func isPackedRGB(f PixelFormat) bool {
	switch f {
	case PixelRGBA, PixelRGBX, PixelBGRA, PixelBGRX:
		return true
	default:
		return false
	}
}

// cropPlanes copies a sub-rectangle of a same-format frame into dst, row by
// row per plane, honoring chroma subsampling.
func cropPlanes(f *FrameBuffer, dst []byte, rect Rect, layout []PlaneLayout) (int, error) {
	d, ok := formatTable[f.Format]
	if !ok {
		return 0, fmt.Errorf("codec: unknown pixel format %q", f.Format)
	}
	dstLayout := layout
	if dstLayout == nil {
		var err error
		dstLayout, err = canonicalPlaneLayout(f.Format, rect.Width, rect.Height)
		if err != nil {
			return 0, err
		}
	}
	srcLayout, err := canonicalPlaneLayout(f.Format, f.Coded.Width, f.Coded.Height)
	if err != nil {
		return 0, err
	}

	total := 0
	for plane := 0; plane < d.numPlanes; plane++ {
		hShift, vShift := 0, 0
		if plane == 1 || plane == 2 {
			hShift, vShift = d.chromaHShift, d.chromaVShift
		}
		bps := d.bytesPerSample()
		bytesPerPixel := bps
		if d.isPacked {
			bytesPerPixel = 4
		}
		if d.isSemiPlanar && plane == 1 {
			bytesPerPixel = 2 * bps
			hShift, vShift = d.chromaHShift, d.chromaVShift
		}

		rows := rect.Height >> vShift
		cols := rect.Width >> hShift
		rowBytes := cols * bytesPerPixel
		srcRowStart := (rect.Y >> vShift) * srcLayout[plane].Stride
		srcColStart := (rect.X >> hShift) * bytesPerPixel

		for row := 0; row < rows; row++ {
			srcOff := srcLayout[plane].Offset + srcRowStart + row*srcLayout[plane].Stride + srcColStart
			dstOff := dstLayout[plane].Offset + row*dstLayout[plane].Stride
			if srcOff+rowBytes > len(f.Data) || dstOff+rowBytes > len(dst) {
				return 0, fmt.Errorf("codec: crop out of range on plane %d", plane)
			}
			copy(dst[dstOff:dstOff+rowBytes], f.Data[srcOff:srcOff+rowBytes])
			total += rowBytes
		}
	}
	return total, nil
}

// packedToI420 crops rect from a packed RGB(A/X) frame and converts it to
// planar I420, using BT.601 fixed-point coefficients (the same constants the
// teacher's BGRA->NV12 conversion uses, rearranged for a planar destination).
func packedToI420(f *FrameBuffer, dst []byte, rect Rect) (int, error) {
	bOff, gOff, rOff := rgbChannelOffsets(f.Format)
	srcLayout, err := canonicalPlaneLayout(f.Format, f.Coded.Width, f.Coded.Height)
	if err != nil {
		return 0, err
	}
	srcStride := srcLayout[0].Stride

	cw, ch := rect.Width/2, rect.Height/2
	ySize := rect.Width * rect.Height
	uSize := cw * ch
	need := ySize + 2*uSize
	if len(dst) < need {
		return 0, fmt.Errorf("codec: I420 destination too small: have %d, need %d", len(dst), need)
	}
	yPlane := dst[0:ySize]
	uPlane := dst[ySize : ySize+uSize]
	vPlane := dst[ySize+uSize : ySize+2*uSize]

	for y := 0; y < rect.Height; y++ {
		srcRow := (rect.Y+y)*srcStride + rect.X*4
		for x := 0; x < rect.Width; x++ {
			pi := srcRow + x*4
			r := int(f.Data[pi+rOff])
			g := int(f.Data[pi+gOff])
			b := int(f.Data[pi+bOff])

			yVal := clampByte(((66*r + 129*g + 25*b + 128) >> 8) + 16)
			yPlane[y*rect.Width+x] = yVal

			if y%2 == 0 && x%2 == 0 {
				uVal := clampByte(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
				vVal := clampByte(((112*r - 94*g - 18*b + 128) >> 8) + 128)
				uPlane[(y/2)*cw+(x/2)] = uVal
				vPlane[(y/2)*cw+(x/2)] = vVal
			}
		}
	}
	return need, nil
}

// i420ToPacked crops rect from a planar I420 frame and converts it to a
// packed RGB(A/X) destination, the decode-path counterpart of packedToI420.
func i420ToPacked(f *FrameBuffer, dst []byte, rect Rect, targetFormat PixelFormat) (int, error) {
	srcLayout, err := canonicalPlaneLayout(f.Format, f.Coded.Width, f.Coded.Height)
	if err != nil {
		return 0, err
	}
	cw := f.Coded.Width / 2

	need := rect.Width * rect.Height * 4
	if len(dst) < need {
		return 0, fmt.Errorf("codec: packed destination too small: have %d, need %d", len(dst), need)
	}
	bOff, gOff, rOff := rgbChannelOffsets(targetFormat)
	aVal := byte(255)

	for y := 0; y < rect.Height; y++ {
		srcY := rect.Y + y
		yRow := srcLayout[0].Offset + srcY*srcLayout[0].Stride + rect.X
		uRow := srcLayout[1].Offset + (srcY/2)*srcLayout[1].Stride + rect.X/2
		vRow := srcLayout[2].Offset + (srcY/2)*srcLayout[2].Stride + rect.X/2
		_ = cw

		for x := 0; x < rect.Width; x++ {
			yv := int(f.Data[yRow+x]) - 16
			uv := int(f.Data[uRow+x/2]) - 128
			vv := int(f.Data[vRow+x/2]) - 128

			r := clampByte((298*yv + 409*vv + 128) >> 8)
			g := clampByte((298*yv - 100*uv - 208*vv + 128) >> 8)
			b := clampByte((298*yv + 516*uv + 128) >> 8)

			di := (y*rect.Width + x) * 4
			dst[di+rOff] = r
			dst[di+gOff] = g
			dst[di+bOff] = b
			if targetFormat == PixelRGBA || targetFormat == PixelBGRA {
				dst[di+3] = aVal
			} else {
				dst[di+3] = 255
			}
		}
	}
	return need, nil
}

// rgbChannelOffsets returns the (B,G,R) byte offsets within a packed pixel
// for the given packed format.
func rgbChannelOffsets(format PixelFormat) (bOff, gOff, rOff int) {
	switch format {
	case PixelBGRA, PixelBGRX:
		return 0, 1, 2
	default: // RGBA, RGBX
		return 2, 1, 0
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
