package scoring

import (
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

const (
	DefaultMaxDistance   float32 = 0.6
	DefaultMinConfidence float32 = 0.8
)

type MatchOptions struct {
	// MaxDistance bounds 1-similarity for a candidate to be considered at all.
	MaxDistance float32
	// MinConfidence is the similarity the best candidate needs to count as a match.
	MinConfidence float32
}

func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		MaxDistance:   DefaultMaxDistance,
		MinConfidence: DefaultMinConfidence,
	}
}

// Match is the outcome of BestMatch. Index is -1 when no candidate was within
// MaxDistance.
type Match struct {
	Index      int     `json:"index" cbor:"index"`
	Similarity float32 `json:"similarity" cbor:"similarity"`
	Distance   float32 `json:"distance" cbor:"distance"`
	Matched    bool    `json:"matched" cbor:"matched"`
}

// BestMatch picks the candidate with the highest similarity to probe among
// those within MaxDistance. Candidates whose length differs from probe or
// that have zero magnitude are skipped.
func BestMatch(probe domain.FaceEncoding, candidates []domain.FaceEncoding, opts MatchOptions) Match {
	best := Match{Index: -1, Distance: 1}

	for i, c := range candidates {
		sim, err := Similarity(probe, c)
		if err != nil {
			continue
		}

		dist := Distance(sim)
		if sim > best.Similarity && dist <= opts.MaxDistance {
			best = Match{Index: i, Similarity: sim, Distance: dist}
		}
	}

	best.Matched = best.Index >= 0 && best.Similarity >= opts.MinConfidence
	return best
}
