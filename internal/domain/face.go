package domain

import "image"

// FaceBox representa uma região retangular da face em coordenadas de pixel
type FaceBox struct {
	X      int32 `json:"x" cbor:"x"`
	Y      int32 `json:"y" cbor:"y"`
	Width  int32 `json:"width" cbor:"width"`
	Height int32 `json:"height" cbor:"height"`
}

func (b FaceBox) Area() int64 {
	return int64(b.Width) * int64(b.Height)
}

// Valid reports whether the box has a positive extent. Containment within an
// image is not checked.
func (b FaceBox) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

func (b FaceBox) Rect() image.Rectangle {
	return image.Rect(int(b.X), int(b.Y), int(b.X)+int(b.Width), int(b.Y)+int(b.Height))
}

// Clip intersects the box with the image bounds. The result is empty when the
// box lies entirely outside the image.
func (b FaceBox) Clip(width, height int32) FaceBox {
	r := b.Rect().Intersect(image.Rect(0, 0, int(width), int(height)))
	return FaceBox{
		X:      int32(r.Min.X),
		Y:      int32(r.Min.Y),
		Width:  int32(r.Dx()),
		Height: int32(r.Dy()),
	}
}

// DetectedFace is a single detector hit. Confidence is in the backend's
// native range and is not guaranteed to be normalized.
type DetectedFace struct {
	Box        FaceBox `json:"box" cbor:"box"`
	Confidence float32 `json:"confidence" cbor:"confidence"`
}

type Point struct {
	X float32 `json:"x" cbor:"x"`
	Y float32 `json:"y" cbor:"y"`
}

// Landmarks are the facial keypoints located inside Box.
type Landmarks struct {
	Box    FaceBox `json:"box" cbor:"box"`
	Points []Point `json:"points" cbor:"points"`
}

// FaceEncoding é o vetor de características produzido pelo reconhecedor
type FaceEncoding []float32

func (e FaceEncoding) Dim() int {
	return len(e)
}

// LargestFace returns the detection with the biggest box area. The first one
// wins on ties.
func LargestFace(faces []DetectedFace) (DetectedFace, bool) {
	if len(faces) == 0 {
		return DetectedFace{}, false
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Box.Area() > best.Box.Area() {
			best = f
		}
	}
	return best, true
}
