package deepface

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

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

func testImage(w, h int32) domain.ImageBuffer {
	pixels := make([]byte, int(w)*int(h)*3)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	return domain.ImageBuffer{Width: w, Height: h, Channels: 3, Pixels: pixels}
}

// decodedSize returns the dimensions of the PNG carried in a request payload
func decodedSize(t *testing.T, payload string) (int, int) {
	t.Helper()
	require.True(t, strings.HasPrefix(payload, dataURIPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, dataURIPrefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func newLoader(t *testing.T, handler http.HandlerFunc) *Loader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0
	return NewLoader(config)
}

func TestDetector_Detect(t *testing.T) {
	loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
		var req ExtractFacesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "mtcnn", req.Detector)
		assert.False(t, req.AntiSpoofing)
		width, height := decodedSize(t, req.Img)
		assert.Equal(t, 64, width)
		assert.Equal(t, 48, height)

		_ = json.NewEncoder(w).Encode(ExtractFacesResponse{Results: []ExtractedFace{
			{FacialArea: FacialArea{X: 4, Y: 5, W: 20, H: 30}, Confidence: 0.97},
			{FacialArea: FacialArea{X: 1, Y: 1, W: 60, H: 60}},
			{FacialArea: FacialArea{X: 1, Y: 1, W: 0, H: 10}, Confidence: 0.99},
		}})
	})

	det, err := loader.LoadDetector(context.Background(), "mtcnn")
	require.NoError(t, err)

	faces, err := det.Detect(context.Background(), testImage(64, 48))
	require.NoError(t, err)
	require.Len(t, faces, 2)

	assert.Equal(t, domain.FaceBox{X: 4, Y: 5, Width: 20, Height: 30}, faces[0].Box)
	assert.InDelta(t, 0.97, faces[0].Confidence, 1e-6)
	assert.InDelta(t, calculateConfidence(3600), faces[1].Confidence, 1e-6)
}

func TestDetector_DetectServerError(t *testing.T) {
	loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	det, err := loader.LoadDetector(context.Background(), "")
	require.NoError(t, err)

	faces, err := det.Detect(context.Background(), testImage(8, 8))
	assert.Nil(t, faces)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detect faces")
}

func TestLandmarker_Mark(t *testing.T) {
	loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
		var req ExtractFacesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		width, height := decodedSize(t, req.Img)
		assert.Equal(t, 30, width, "crop is clipped to the image")
		assert.Equal(t, 20, height)

		_ = json.NewEncoder(w).Encode(ExtractFacesResponse{Results: []ExtractedFace{
			{FacialArea: FacialArea{W: 30, H: 20, LeftEye: &[2]int{8, 6}, RightEye: &[2]int{20, 6}}},
		}})
	})

	lm, err := loader.LoadLandmarker(context.Background(), "")
	require.NoError(t, err)

	got, err := lm.Mark(context.Background(), testImage(40, 40), domain.FaceBox{X: 10, Y: 20, Width: 50, Height: 20})
	require.NoError(t, err)

	assert.Equal(t, domain.FaceBox{X: 10, Y: 20, Width: 30, Height: 20}, got.Box)
	assert.Equal(t, []domain.Point{{X: 18, Y: 26}, {X: 30, Y: 26}}, got.Points)
}

func TestLandmarker_MarkOutsideImage(t *testing.T) {
	loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	lm, err := loader.LoadLandmarker(context.Background(), "")
	require.NoError(t, err)

	_, err = lm.Mark(context.Background(), testImage(10, 10), domain.FaceBox{X: 50, Y: 50, Width: 5, Height: 5})
	assert.ErrorIs(t, err, ErrInvalidImageFormat)
}

func TestRecognizer_Extract(t *testing.T) {
	tests := []struct {
		name    string
		results []RepresentResult
		wantErr error
		wantLen int
	}{
		{
			name:    "embedding converted to float32",
			results: []RepresentResult{{Embedding: []float64{0.25, -0.5, 1}}},
			wantLen: 3,
		},
		{
			name:    "no face",
			results: []RepresentResult{},
			wantErr: ErrNoFaceInResponse,
		},
		{
			name:    "empty embedding",
			results: []RepresentResult{{}},
			wantErr: ErrNoFaceInResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/represent", r.URL.Path)

				var req RepresentRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "ArcFace", req.Model)
				assert.Equal(t, skipDetector, req.Detector)
				assert.True(t, req.Align)

				_ = json.NewEncoder(w).Encode(RepresentResponse{Results: tt.results})
			})

			rec, err := loader.LoadRecognizer(context.Background(), "ArcFace")
			require.NoError(t, err)

			enc, err := rec.Extract(context.Background(), testImage(16, 16), domain.Landmarks{
				Box:    domain.FaceBox{X: 2, Y: 2, Width: 8, Height: 8},
				Points: []domain.Point{{X: 4, Y: 4}},
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, enc, tt.wantLen)
			assert.Equal(t, domain.FaceEncoding{0.25, -0.5, 1}, enc)
		})
	}
}

func TestAntiSpoofer_Predict(t *testing.T) {
	isReal, isFake := true, false

	tests := []struct {
		name    string
		face    *ExtractedFace
		want    float32
		wantErr error
	}{
		{
			name: "real face keeps the score",
			face: &ExtractedFace{IsReal: &isReal, AntispoofScore: 0.9},
			want: 0.9,
		},
		{
			name: "spoof inverts the score",
			face: &ExtractedFace{IsReal: &isFake, AntispoofScore: 0.75},
			want: 0.25,
		},
		{
			name: "out of range score is clamped",
			face: &ExtractedFace{IsReal: &isReal, AntispoofScore: 1.5},
			want: 1,
		},
		{
			name:    "no verdict",
			face:    &ExtractedFace{},
			wantErr: ErrNoAntiSpoofVerdict,
		},
		{
			name:    "no face",
			wantErr: ErrNoFaceInResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newLoader(t, func(w http.ResponseWriter, r *http.Request) {
				var req ExtractFacesRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.True(t, req.AntiSpoofing)

				resp := ExtractFacesResponse{Results: []ExtractedFace{}}
				if tt.face != nil {
					resp.Results = append(resp.Results, *tt.face)
				}
				_ = json.NewEncoder(w).Encode(resp)
			})

			as, err := loader.LoadAntiSpoofer(context.Background(), "")
			require.NoError(t, err)

			score, err := as.Predict(context.Background(), testImage(20, 20), domain.FaceBox{X: 0, Y: 0, Width: 10, Height: 10})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, score, 1e-6)
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	assert.Equal(t, 0.5, calculateConfidence(100))
	assert.InDelta(t, 0.7, calculateConfidence(minFaceArea), 1e-9)
	assert.InDelta(t, 0.99, calculateConfidence(maxFaceArea), 1e-9)
	assert.InDelta(t, 0.99, calculateConfidence(maxFaceArea*4), 1e-9)
}

func TestEncodeImage_Gray(t *testing.T) {
	buf := domain.ImageBuffer{Width: 3, Height: 2, Channels: 1, Pixels: []byte{0, 50, 100, 150, 200, 250}}

	payload, err := encodeImage(buf, nil)
	require.NoError(t, err)

	w, h := decodedSize(t, payload)
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
}
