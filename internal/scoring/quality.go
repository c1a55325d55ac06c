package scoring

const (
	// DefaultQualityThreshold is the minimum quality score accepted for enrollment.
	DefaultQualityThreshold float32 = 0.7
	// DefaultLivenessThreshold is the minimum anti-spoofing score treated as live.
	DefaultLivenessThreshold float32 = 0.5

	lowResolution    = 100
	mediumResolution = 200
	minAspect        = 0.5
	maxAspect        = 2.0
)

// Quality scores an image by its dimensions alone. The score starts at 1.0;
// when both sides are under 100 px it is halved, otherwise a side under
// 200 px costs a factor of 0.8. An aspect ratio outside [0.5, 2.0]
// additionally multiplies it by 0.7. Non-positive dimensions score 0.
func Quality(width, height int32) float32 {
	if width <= 0 || height <= 0 {
		return 0
	}

	score := 1.0
	switch {
	case width < lowResolution && height < lowResolution:
		score *= 0.5
	case width < mediumResolution || height < mediumResolution:
		score *= 0.8
	}

	aspect := float64(width) / float64(height)
	if aspect < minAspect || aspect > maxAspect {
		score *= 0.7
	}

	return float32(score)
}

func PassesQuality(score, threshold float32) bool {
	return score >= threshold
}

func IsLive(score, threshold float32) bool {
	return score >= threshold
}
