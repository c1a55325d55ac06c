package face_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/face"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/provider/deepface"
)

// fakeDeepFace answers like a DeepFace server: one centred face per image
// and a fixed-size embedding.
func fakeDeepFace(t *testing.T) *httptest.Server {
	t.Helper()

	size := func(img string) (int, int, error) {
		raw, err := base64.StdEncoding.DecodeString(img[strings.Index(img, ",")+1:])
		if err != nil {
			return 0, 0, err
		}
		decoded, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return 0, 0, err
		}
		return decoded.Bounds().Dx(), decoded.Bounds().Dy(), nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/extract_faces", func(w http.ResponseWriter, r *http.Request) {
		var req deepface.ExtractFacesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		width, height, err := size(req.Img)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		found := deepface.ExtractedFace{
			FacialArea: deepface.FacialArea{X: width / 4, Y: height / 4, W: width / 2, H: height / 2},
			Confidence: 0.9,
		}
		if req.AntiSpoofing {
			live := true
			found.IsReal = &live
			found.AntispoofScore = 0.88
		}
		_ = json.NewEncoder(w).Encode(deepface.ExtractFacesResponse{Results: []deepface.ExtractedFace{found}})
	})
	mux.HandleFunc("/represent", func(w http.ResponseWriter, r *http.Request) {
		var req deepface.RepresentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		embedding := make([]float64, 128)
		for i := range embedding {
			embedding[i] = float64(len(req.Img)%97+i) / 128
		}
		_ = json.NewEncoder(w).Encode(deepface.RepresentResponse{Results: []deepface.RepresentResult{{Embedding: embedding}}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func rgb(w, h int32) []byte {
	pixels := make([]byte, int(w)*int(h)*3)
	for i := range pixels {
		pixels[i] = byte(i * 17)
	}
	return pixels
}

// TestBackendParity runs the same call sequence against the mock and the
// DeepFace backends and checks both honour the same shapes, ranges and
// sentinels.
func TestBackendParity(t *testing.T) {
	server := fakeDeepFace(t)

	loader, err := face.NewLoader(&config.Config{FaceBackend: "mock", DeepFaceURL: server.URL})
	require.NoError(t, err)

	backends := map[string]engine.ModelPaths{
		"mock": {
			Detector:     "mock://detector",
			Landmarker:   "mock://landmarker",
			Recognizer:   "mock://recognizer",
			AntiSpoofing: "mock://anti_spoofing",
		},
		"deepface": {
			Detector:     "deepface://retinaface",
			Landmarker:   "deepface://retinaface",
			Recognizer:   "deepface://Facenet512",
			AntiSpoofing: "deepface://retinaface",
		},
	}

	for name, paths := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := bridge.New(engine.NewRegistry(loader), bridge.WithBackendNamer(loader.Backend))
			defer b.Close()

			h, err := b.InitializeWith(ctx, paths)
			require.NoError(t, err)
			require.GreaterOrEqual(t, h, int64(0))

			const w, hgt int32 = 160, 120
			pixels := rgb(w, hgt)

			flat, err := b.Detect(ctx, h, pixels, w, hgt, 3)
			require.NoError(t, err)
			require.NotEmpty(t, flat)
			require.Zero(t, len(flat)%bridge.DetectionStride)

			faces := bridge.UnflattenDetections(flat)
			require.Len(t, faces, 1)
			box := faces[0].Box
			assert.Equal(t, domain.FaceBox{X: 40, Y: 30, Width: 80, Height: 60}, box)
			assert.Greater(t, faces[0].Confidence, float32(0))
			assert.LessOrEqual(t, faces[0].Confidence, float32(1))

			enc, err := b.ExtractEncoding(ctx, h, pixels, w, hgt, 3, box.X, box.Y, box.Width, box.Height)
			require.NoError(t, err)
			require.NotEmpty(t, enc)

			sim, err := b.CompareEncodings(enc, enc)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, sim, 1e-5)

			live, err := b.DetectLiveness(ctx, h, pixels, w, hgt, 3, box.X, box.Y, box.Width, box.Height)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, live, float32(0))
			assert.LessOrEqual(t, live, float32(1))

			_, err = b.Detect(ctx, h, pixels[:10], w, hgt, 3)
			assert.ErrorIs(t, err, domain.ErrMalformedBuffer)

			b.Release(h)

			flat, err = b.Detect(ctx, h, pixels, w, hgt, 3)
			assert.Nil(t, flat)
			assert.ErrorIs(t, err, domain.ErrInvalidHandle)

			score, err := b.DetectLiveness(ctx, h, pixels, w, hgt, 3, box.X, box.Y, box.Width, box.Height)
			assert.Equal(t, bridge.NoScore, score)
			assert.ErrorIs(t, err, domain.ErrInvalidHandle)
			assert.Equal(t, "Invalid engine handle", b.LastError())
		})
	}
}
