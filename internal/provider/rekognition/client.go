package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeThroughput         = "ProvisionedThroughputExceededException"
	errCodeThrottling         = "ThrottlingException"

	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// API is the subset of the Rekognition client this backend calls
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewAPI builds a Rekognition client for region using the AWS default
// credential chain
func NewAPI(ctx context.Context, region string) (API, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return rekognition.NewFromConfig(awsCfg), nil
}

// validateImage checks encoded image data against Rekognition's limits
func validateImage(image []byte) error {
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// detectFaces encodes img (or its crop) and calls DetectFaces
func detectFaces(ctx context.Context, api API, img domain.ImageBuffer, crop *domain.FaceBox, attrs ...types.Attribute) ([]types.FaceDetail, error) {
	raw, err := img.EncodePNG(crop)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := validateImage(raw); err != nil {
		return nil, err
	}

	if len(attrs) == 0 {
		attrs = []types.Attribute{types.AttributeDefault}
	}

	output, err := api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: raw},
		Attributes: attrs,
	})
	if err != nil {
		return nil, ParseAPIError(err)
	}
	return output.FaceDetails, nil
}

// ParseAPIError maps Rekognition error codes onto this package's sentinels
func ParseAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("detect faces: %w", err)
	}

	switch apiErr.ErrorCode() {
	case errCodeAccessDenied:
		return ErrInvalidCredentials
	case errCodeInvalidParameter:
		if msg := apiErr.ErrorMessage(); msg != "" {
			return fmt.Errorf("%w: %s", ErrNoFaceDetected, msg)
		}
		return ErrNoFaceDetected
	case errCodeImageTooLarge, errCodeInvalidImageFormat:
		return fmt.Errorf("%w: %s", ErrInvalidImage, apiErr.ErrorMessage())
	case errCodeThroughput, errCodeThrottling:
		return ErrThrottled
	}
	return fmt.Errorf("detect faces: %w", err)
}

// ratioBox converts a Rekognition bounding box, expressed as ratios of the
// frame, to pixels of a width x height frame
func ratioBox(bb *types.BoundingBox, width, height int32) domain.FaceBox {
	if bb == nil {
		return domain.FaceBox{}
	}
	return domain.FaceBox{
		X:      int32(deref(bb.Left) * float32(width)),
		Y:      int32(deref(bb.Top) * float32(height)),
		Width:  int32(deref(bb.Width) * float32(width)),
		Height: int32(deref(bb.Height) * float32(height)),
	}
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
