package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/scoring"
)

var errNoFace = errors.New("no face detected")

type qualityOutput struct {
	Score      float32 `json:"score"`
	Acceptable bool    `json:"acceptable"`
}

type livenessOutput struct {
	Box     domain.FaceBox `json:"box"`
	Score   float32        `json:"score"`
	Live    bool           `json:"live"`
	Warning string         `json:"warning,omitempty"`
}

type encodeOutput struct {
	Box       domain.FaceBox `json:"box"`
	Dimension int            `json:"dimension"`
	Output    string         `json:"output"`
}

type compareOutput struct {
	Similarity float32 `json:"similarity"`
	Distance   float32 `json:"distance"`
	Match      bool    `json:"match"`
}

func newQualityCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "quality <image>",
		Short: "Score image quality from its dimensions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}

			score, err := s.bridge.AssessQuality(img.Pixels, img.Width, img.Height, img.Channels)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), qualityOutput{
				Score:      score,
				Acceptable: scoring.PassesQuality(score, scoring.DefaultQualityThreshold),
			})
		},
	}
}

func newDetectCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "List the faces found in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			faces, err := s.detect(cmd, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), faces)
		},
	}
}

func newEncodeCmd(s *session) *cobra.Command {
	var out, boxFlag string

	cmd := &cobra.Command{
		Use:   "encode <image>",
		Short: "Write the encoding of the largest (or given) face to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, img, box, err := s.face(cmd, args[0], boxFlag)
			if err != nil {
				return err
			}

			enc, err := s.bridge.ExtractEncoding(cmd.Context(), h,
				img.Pixels, img.Width, img.Height, img.Channels,
				box.X, box.Y, box.Width, box.Height)
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, scoring.EncodeBytes(enc), 0o644); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), encodeOutput{Box: box, Dimension: len(enc), Output: out})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Encoding file to write (little-endian float32)")
	cmd.Flags().StringVar(&boxFlag, "box", "", "Face box x,y,w,h (default: largest detected face)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCompareCmd(s *session) *cobra.Command {
	threshold := scoring.DefaultMinConfidence

	cmd := &cobra.Command{
		Use:   "compare <a.enc> <b.enc>",
		Short: "Compare two encoding files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readEncoding(args[0])
			if err != nil {
				return err
			}
			b, err := readEncoding(args[1])
			if err != nil {
				return err
			}

			sim, err := s.bridge.CompareEncodings(a, b)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), compareOutput{
				Similarity: sim,
				Distance:   scoring.Distance(sim),
				Match:      sim >= threshold,
			})
		},
	}

	cmd.Flags().Float32Var(&threshold, "threshold", threshold, "Similarity needed to report a match")
	return cmd
}

func newLivenessCmd(s *session) *cobra.Command {
	var boxFlag string

	cmd := &cobra.Command{
		Use:   "liveness <image>",
		Short: "Score the largest (or given) face for liveness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, img, box, err := s.face(cmd, args[0], boxFlag)
			if err != nil {
				return err
			}

			score, err := s.bridge.DetectLiveness(cmd.Context(), h,
				img.Pixels, img.Width, img.Height, img.Channels,
				box.X, box.Y, box.Width, box.Height)

			out := livenessOutput{Box: box, Score: score, Live: scoring.IsLive(score, scoring.DefaultLivenessThreshold)}
			switch {
			case errors.Is(err, domain.ErrMissingCapability):
				out.Warning = s.bridge.LastErrorFor(h)
			case err != nil:
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&boxFlag, "box", "", "Face box x,y,w,h (default: largest detected face)")
	return cmd
}

func (s *session) detect(cmd *cobra.Command, path string) ([]domain.DetectedFace, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	h, err := s.engine(cmd)
	if err != nil {
		return nil, err
	}

	flat, err := s.bridge.Detect(cmd.Context(), h, img.Pixels, img.Width, img.Height, img.Channels)
	if err != nil {
		return nil, err
	}
	return bridge.UnflattenDetections(flat), nil
}

// face loads the image, initializes an engine and picks the face box: the
// --box flag when given, otherwise the largest detection.
func (s *session) face(cmd *cobra.Command, path, boxFlag string) (int64, domain.ImageBuffer, domain.FaceBox, error) {
	img, err := loadImage(path)
	if err != nil {
		return bridge.InvalidHandle, img, domain.FaceBox{}, err
	}
	h, err := s.engine(cmd)
	if err != nil {
		return bridge.InvalidHandle, img, domain.FaceBox{}, err
	}

	if boxFlag != "" {
		box, err := parseBox(boxFlag)
		return h, img, box, err
	}

	flat, err := s.bridge.Detect(cmd.Context(), h, img.Pixels, img.Width, img.Height, img.Channels)
	if err != nil {
		return h, img, domain.FaceBox{}, err
	}
	largest, ok := domain.LargestFace(bridge.UnflattenDetections(flat))
	if !ok {
		return h, img, domain.FaceBox{}, fmt.Errorf("%s: %w", path, errNoFace)
	}
	return h, img, largest.Box, nil
}

func readEncoding(path string) (domain.FaceEncoding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	enc, err := scoring.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return enc, nil
}

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Initialize the selected preset and print the engine status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := s.engine(cmd); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.bridge.Status())
		},
	}
}
