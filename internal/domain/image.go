package domain

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// Supported channel layouts for raw pixel buffers.
const (
	ChannelsGray = 1
	ChannelsRGB  = 3
	ChannelsRGBA = 4
)

// ImageBuffer is a raw, row-major, interleaved pixel buffer with no header.
// Pixels is borrowed from the caller for the duration of a single call and
// must not be retained afterwards.
type ImageBuffer struct {
	Width    int32
	Height   int32
	Channels int32
	Pixels   []byte
}

// Validate checks that the declared dimensions are positive, the channel
// layout is supported and the pixel slice holds exactly width*height*channels
// bytes.
func (b ImageBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return ErrMalformedBuffer.WithError(fmt.Errorf("non-positive dimensions %dx%d", b.Width, b.Height))
	}

	switch b.Channels {
	case ChannelsGray, ChannelsRGB, ChannelsRGBA:
	default:
		return ErrMalformedBuffer.WithError(fmt.Errorf("unsupported channel count %d", b.Channels))
	}

	want := int64(b.Width) * int64(b.Height) * int64(b.Channels)
	if int64(len(b.Pixels)) != want {
		return ErrMalformedBuffer.WithError(fmt.Errorf("got %d bytes, want %d", len(b.Pixels), want))
	}

	return nil
}

// Bounds returns the image rectangle anchored at the origin.
func (b ImageBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(b.Width), int(b.Height))
}

// At returns the RGB value of the pixel at (x, y). Gray buffers replicate the
// single channel; the alpha channel of RGBA buffers is ignored.
func (b ImageBuffer) At(x, y int) (r, g, bl uint8) {
	off := (y*int(b.Width) + x) * int(b.Channels)
	if b.Channels == ChannelsGray {
		v := b.Pixels[off]
		return v, v, v
	}
	return b.Pixels[off], b.Pixels[off+1], b.Pixels[off+2]
}

// ToImage copies the buffer into a standard library image so it can be handed
// to encoders. The returned image shares no memory with Pixels.
func (b ImageBuffer) ToImage() image.Image {
	rect := b.Bounds()

	if b.Channels == ChannelsGray {
		img := image.NewGray(rect)
		copy(img.Pix, b.Pixels)
		return img
	}

	img := image.NewNRGBA(rect)
	for y := 0; y < int(b.Height); y++ {
		for x := 0; x < int(b.Width); x++ {
			r, g, bl := b.At(x, y)
			a := uint8(0xff)
			if b.Channels == ChannelsRGBA {
				a = b.Pixels[(y*int(b.Width)+x)*4+3]
			}
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: a})
		}
	}
	return img
}

// FromImage flattens a decoded image into a 3-channel RGB buffer.
func FromImage(img image.Image) ImageBuffer {
	rect := img.Bounds()
	w, h := rect.Dx(), rect.Dy()
	pixels := make([]byte, 0, w*h*ChannelsRGB)

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, c.R, c.G, c.B)
		}
	}

	return ImageBuffer{
		Width:    int32(w),
		Height:   int32(h),
		Channels: ChannelsRGB,
		Pixels:   pixels,
	}
}

// Crop returns the part of the buffer inside box, clipped to the image, as
// a standard library image. A nil box returns the whole image.
func (b ImageBuffer) Crop(box *FaceBox) (image.Image, error) {
	img := b.ToImage()
	if box == nil {
		return img, nil
	}

	clipped := box.Clip(b.Width, b.Height)
	if !clipped.Valid() {
		return nil, fmt.Errorf("crop %+v outside %dx%d image", *box, b.Width, b.Height)
	}
	si, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image type %T cannot be cropped", img)
	}
	return si.SubImage(clipped.Rect()), nil
}

// EncodePNG renders the buffer, or the part of it inside crop, as a PNG.
func (b ImageBuffer) EncodePNG(crop *FaceBox) ([]byte, error) {
	img, err := b.Crop(crop)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
