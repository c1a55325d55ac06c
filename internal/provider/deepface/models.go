package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img      string `json:"img"`      // base64 encoded image
	Model    string `json:"model"`    // "Facenet512", "VGG-Face", etc
	Detector string `json:"detector"` // "retinaface", "mtcnn", "skip", etc
	Align    bool   `json:"align"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

type FacialArea struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	W        int     `json:"w"`
	H        int     `json:"h"`
	LeftEye  *[2]int `json:"left_eye,omitempty"`
	RightEye *[2]int `json:"right_eye,omitempty"`
}

// ExtractFacesRequest for POST /extract_faces
type ExtractFacesRequest struct {
	Img          string `json:"img"`
	Detector     string `json:"detector"`
	AntiSpoofing bool   `json:"anti_spoofing"`
}

// ExtractFacesResponse from POST /extract_faces
type ExtractFacesResponse struct {
	Results []ExtractedFace `json:"results"`
}

type ExtractedFace struct {
	FacialArea     FacialArea `json:"facial_area"`
	Confidence     float64    `json:"confidence"`
	IsReal         *bool      `json:"is_real,omitempty"`
	AntispoofScore float64    `json:"antispoof_score,omitempty"`
}
