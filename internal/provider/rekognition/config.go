package rekognition

// Config holds configuration for the AWS Rekognition backend
type Config struct {
	// Region is the AWS region used when a model locator names none (e.g., "us-east-1")
	Region string

	// MinConfidence drops detections below this confidence, in [0, 1]
	MinConfidence float32
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:        "us-east-1",
		MinConfidence: 0.5,
	}
}

// regionFor resolves the region a model locator points at
func (c Config) regionFor(locator string) string {
	if locator != "" {
		return locator
	}
	return c.Region
}
