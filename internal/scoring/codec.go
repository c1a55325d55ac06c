package scoring

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

const float32Size = 4

// EncodeBytes serializes an encoding as consecutive little-endian float32 values.
func EncodeBytes(e domain.FaceEncoding) []byte {
	out := make([]byte, len(e)*float32Size)
	for i, v := range e {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(v))
	}
	return out
}

// DecodeBytes is the inverse of EncodeBytes.
func DecodeBytes(b []byte) (domain.FaceEncoding, error) {
	if len(b)%float32Size != 0 {
		return nil, domain.ErrMalformedBuffer.WithError(fmt.Errorf("encoding length %d is not a multiple of %d", len(b), float32Size))
	}

	out := make(domain.FaceEncoding, len(b)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}
