package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
)

// DefaultPreset is always available, even without a presets file
const DefaultPreset = "default"

var ErrUnknownPreset = errors.New("unknown model preset")

// Preset names the model artifacts of one engine configuration. Fields left
// empty in the file take the defaults below; anti-spoofing stays off unless
// set.
type Preset struct {
	Detector     string `toml:"detector" default:"models/face_detector.csta"`
	Landmarker   string `toml:"landmarker" default:"models/face_landmarker_pts68.csta"`
	Recognizer   string `toml:"recognizer" default:"models/face_recognizer.csta"`
	AntiSpoofing string `toml:"anti_spoofing"`
}

func (p Preset) Paths() engine.ModelPaths {
	return engine.ModelPaths{
		Detector:     p.Detector,
		Landmarker:   p.Landmarker,
		Recognizer:   p.Recognizer,
		AntiSpoofing: p.AntiSpoofing,
	}
}

// Presets is the decoded presets file:
//
//	[presets.cloud]
//	detector = "rekognition://sa-east-1"
//	landmarker = "rekognition://sa-east-1"
//	recognizer = "deepface://Facenet512"
type Presets struct {
	Presets map[string]Preset `toml:"presets"`
}

// LoadPresets reads path, fills defaults and adds DefaultPreset when the
// file does not define it. An empty path yields only DefaultPreset.
func LoadPresets(path string) (*Presets, error) {
	ps := &Presets{}

	if path != "" {
		md, err := toml.DecodeFile(path, ps)
		if err != nil {
			return nil, fmt.Errorf("load presets %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("load presets %s: unknown keys %v", path, undecoded)
		}
	}

	if ps.Presets == nil {
		ps.Presets = make(map[string]Preset)
	}
	if _, ok := ps.Presets[DefaultPreset]; !ok {
		ps.Presets[DefaultPreset] = Preset{}
	}

	for name, p := range ps.Presets {
		defaults.SetDefaults(&p)
		ps.Presets[name] = p
	}
	return ps, nil
}

func (ps *Presets) Get(name string) (Preset, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := ps.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names lists presets in lexical order
func (ps *Presets) Names() []string {
	names := make([]string, 0, len(ps.Presets))
	for n := range ps.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
