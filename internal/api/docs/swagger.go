package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

const mimeCBOR = mime.MIME("application/cbor")

// Image is a raw interleaved row-major pixel buffer; pixels are base64 in JSON
type Image struct {
	Width    int32  `json:"width" example:"640"`
	Height   int32  `json:"height" example:"480"`
	Channels int32  `json:"channels" example:"3"`
	Pixels   string `json:"pixels" example:"AAECAwQF"`
}

type Box struct {
	X      int32 `json:"x" example:"120"`
	Y      int32 `json:"y" example:"80"`
	Width  int32 `json:"width" example:"200"`
	Height int32 `json:"height" example:"240"`
}

type InitializeEngineRequest struct {
	Detector     string `json:"detector,omitempty" example:"deepface://retinaface"`
	Landmarker   string `json:"landmarker,omitempty" example:"deepface://retinaface"`
	Recognizer   string `json:"recognizer,omitempty" example:"deepface://Facenet512"`
	AntiSpoofing string `json:"anti_spoofing,omitempty" example:"deepface://retinaface"`
	Preset       string `json:"preset,omitempty" example:"default"`
}

type InitializeEngineResponse struct {
	Handle int64 `json:"handle" example:"4294967296"`
}

type EngineStatus struct {
	Handle       int64  `json:"handle" example:"4294967296"`
	Detector     string `json:"detector" example:"deepface"`
	Landmarker   string `json:"landmarker" example:"deepface"`
	Recognizer   string `json:"recognizer" example:"deepface"`
	AntiSpoofer  string `json:"anti_spoofer,omitempty" example:"deepface"`
	AntiSpoofing bool   `json:"anti_spoofing" example:"true"`
	CreatedAt    string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

type EnginesResponse struct {
	Engines []EngineStatus `json:"engines"`
}

type DetectRequest struct {
	Image Image `json:"image"`
}

type DetectedFace struct {
	Box        Box     `json:"box"`
	Confidence float32 `json:"confidence" example:"0.98"`
}

type DetectResponse struct {
	Faces []DetectedFace `json:"faces"`
	Flat  []float32      `json:"flat" example:"120,80,200,240,0.98"`
}

type FaceRequest struct {
	Image Image `json:"image"`
	Box   Box   `json:"box"`
}

type EncodingResponse struct {
	Encoding  []float32 `json:"encoding" example:"0.12,-0.03,0.08"`
	Dimension int       `json:"dimension" example:"512"`
}

type LivenessResponse struct {
	Score   float32 `json:"score" example:"0.93"`
	Live    bool    `json:"live" example:"true"`
	Warning string  `json:"warning,omitempty" example:"Anti-spoofing not initialized"`
}

type CompareRequest struct {
	A      []float32 `json:"a" example:"0.12,-0.03,0.08"`
	B      []float32 `json:"b" example:"0.11,-0.02,0.09"`
	Handle int64     `json:"handle,omitempty" example:"4294967296"`
}

type CompareResponse struct {
	Similarity float32 `json:"similarity" example:"0.91"`
	Distance   float32 `json:"distance" example:"0.09"`
}

type MatchRequest struct {
	Probe         []float32   `json:"probe" example:"0.12,-0.03,0.08"`
	Candidates    [][]float32 `json:"candidates"`
	MaxDistance   float32     `json:"max_distance,omitempty" example:"0.6"`
	MinConfidence float32     `json:"min_confidence,omitempty" example:"0.8"`
}

type MatchResponse struct {
	Index      int     `json:"index" example:"2"`
	Similarity float32 `json:"similarity" example:"0.91"`
	Distance   float32 `json:"distance" example:"0.09"`
	Matched    bool    `json:"matched" example:"true"`
}

type QualityRequest struct {
	Image Image `json:"image"`
}

type QualityResponse struct {
	Score      float32 `json:"score" example:"0.8"`
	Acceptable bool    `json:"acceptable" example:"true"`
}

type LastErrorResponse struct {
	Message string `json:"message" example:"Invalid engine handle"`
}

type AuditSummary struct {
	EventType    string  `json:"event_type" example:"FACE_DETECTED"`
	Backend      string  `json:"backend" example:"deepface"`
	Total        int64   `json:"total" example:"120"`
	Failures     int64   `json:"failures" example:"3"`
	AvgLatencyMs float64 `json:"avg_latency_ms" example:"84.2"`
	P99LatencyMs float64 `json:"p99_latency_ms" example:"310"`
}

type AuditSummaryResponse struct {
	Since  string         `json:"since" example:"2024-01-01T00:00:00Z"`
	Window string         `json:"window" example:"1h0m0s"`
	Events []AuditSummary `json:"events"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_HANDLE"`
	Message string `json:"message" example:"Invalid engine handle"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	consumes = []mime.MIME{mime.JSON, mimeCBOR}
	produces = []mime.MIME{mime.JSON, mimeCBOR}

	errBadRequest    = response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request")
	errMalformed     = response.New(ErrorResponse{Code: "MALFORMED_BUFFER", Message: "Image buffer does not match declared dimensions"}, "400", "Bad Request")
	errInvalidHandle = response.New(ErrorResponse{Code: "INVALID_HANDLE", Message: "Invalid engine handle"}, "404", "Not Found")
	errValidation    = response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity")
	errDimension     = response.New(ErrorResponse{Code: "DIMENSION_MISMATCH", Message: "Encoding lengths do not match"}, "422", "Unprocessable Entity")
	errInternal      = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	handleParam      = parameter.IntParam("handle", parameter.Path, parameter.WithDescription("Engine handle returned by POST /engines"))
)

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "facebridge API",
		Version:     "v1.0.0",
		Description: "Face engine bridge: engine handles, detection, encodings, liveness and quality over JSON or CBOR",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			"/engines",
			endpoint.WithTags("Engines"),
			endpoint.WithSummary("Initialize an engine"),
			endpoint.WithDescription("Loads detector, landmarker, recognizer and optional anti-spoofer. Give explicit model paths or a preset name; with neither the default preset is used."),
			endpoint.WithBody(InitializeEngineRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(InitializeEngineResponse{}, "201", "Engine created"),
			}),
			endpoint.WithErrors([]response.Response{
				errBadRequest,
				errValidation,
				response.New(ErrorResponse{Code: "INITIALIZATION_FAILURE", Message: "Failed to initialize engine"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/engines",
			endpoint.WithTags("Engines"),
			endpoint.WithSummary("List live engines"),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnginesResponse{}, "200", "Live engines"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/engines/{handle}",
			endpoint.WithTags("Engines"),
			endpoint.WithSummary("Release an engine"),
			endpoint.WithDescription("Idempotent: unknown or already released handles also return 204"),
			endpoint.WithParams(handleParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Released"),
			}),
			endpoint.WithErrors([]response.Response{errValidation}),
		),

		endpoint.New(
			endpoint.POST,
			"/engines/{handle}/detect",
			endpoint.WithTags("Inference"),
			endpoint.WithSummary("Detect faces"),
			endpoint.WithDescription("Returns each face as a box plus confidence, and the same data flattened as five floats per face"),
			endpoint.WithParams(handleParam),
			endpoint.WithBody(DetectRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DetectResponse{}, "200", "Detections"),
			}),
			endpoint.WithErrors([]response.Response{errMalformed, errInvalidHandle, errInternal}),
		),

		endpoint.New(
			endpoint.POST,
			"/engines/{handle}/encoding",
			endpoint.WithTags("Inference"),
			endpoint.WithSummary("Extract a face encoding"),
			endpoint.WithParams(handleParam),
			endpoint.WithBody(FaceRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EncodingResponse{}, "200", "Encoding"),
			}),
			endpoint.WithErrors([]response.Response{errMalformed, errInvalidHandle, errInternal}),
		),

		endpoint.New(
			endpoint.POST,
			"/engines/{handle}/liveness",
			endpoint.WithTags("Inference"),
			endpoint.WithSummary("Score liveness"),
			endpoint.WithDescription("Engines created without an anti-spoofer report score 1.0 with a warning"),
			endpoint.WithParams(handleParam),
			endpoint.WithBody(FaceRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessResponse{}, "200", "Liveness score"),
			}),
			endpoint.WithErrors([]response.Response{errMalformed, errInvalidHandle, errInternal}),
		),

		endpoint.New(
			endpoint.GET,
			"/engines/{handle}/errors/last",
			endpoint.WithTags("Errors"),
			endpoint.WithSummary("Last error recorded for an engine"),
			endpoint.WithParams(handleParam),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LastErrorResponse{}, "200", "Last error, empty when none"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/encodings/compare",
			endpoint.WithTags("Scoring"),
			endpoint.WithSummary("Compare two encodings"),
			endpoint.WithDescription("Cosine similarity remapped to [0, 1]. With a handle, the engine's recognizer may supply a calibrated similarity."),
			endpoint.WithBody(CompareRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CompareResponse{}, "200", "Similarity"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errDimension, errInvalidHandle}),
		),

		endpoint.New(
			endpoint.POST,
			"/encodings/match",
			endpoint.WithTags("Scoring"),
			endpoint.WithSummary("Find the best matching candidate"),
			endpoint.WithBody(MatchRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MatchResponse{}, "200", "Best candidate; index -1 when none is within max_distance"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errValidation}),
		),

		endpoint.New(
			endpoint.POST,
			"/quality",
			endpoint.WithTags("Scoring"),
			endpoint.WithSummary("Assess image quality"),
			endpoint.WithDescription("Dimension heuristic; acceptable when score >= 0.7"),
			endpoint.WithBody(QualityRequest{}),
			endpoint.WithConsume(consumes),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(QualityResponse{}, "200", "Quality score"),
			}),
			endpoint.WithErrors([]response.Response{errMalformed}),
		),

		endpoint.New(
			endpoint.GET,
			"/audit/summary",
			endpoint.WithTags("Audit"),
			endpoint.WithSummary("Aggregate the audit trail"),
			endpoint.WithDescription("Counts, failures and latency per event type and backend over the trailing window. Needs AUDIT_DATABASE_URL."),
			endpoint.WithParams(parameter.StrParam("window", parameter.Query, parameter.WithDescription("Go duration, default 1h, at most 720h"))),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AuditSummaryResponse{}, "200", "Audit summary"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				response.New(ErrorResponse{Code: "UNSUPPORTED_OPERATION", Message: "Operation not supported by this backend"}, "501", "Not Implemented"),
				errInternal,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/errors/last",
			endpoint.WithTags("Errors"),
			endpoint.WithSummary("Last error from any call"),
			endpoint.WithProduce(produces),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LastErrorResponse{}, "200", "Last error, empty when none"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
