package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/audit"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/bridge"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/config"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/face"
)

const version = "0.1.0"

// session is the state shared by subcommands for one invocation
type session struct {
	backend    string
	presetFile string
	preset     string
	verbose    bool

	bridge *bridge.Bridge
}

func newRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "facectl",
		Short:         "Run face detection, encoding, liveness and quality checks on image files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.bridge != nil {
				s.bridge.Close()
			}
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&s.backend, "backend", "", "Backend for model paths without a scheme (default: FACE_BACKEND or mock)")
	root.PersistentFlags().StringVar(&s.presetFile, "preset-file", "", "TOML file with model presets (default: MODEL_PRESETS_FILE)")
	root.PersistentFlags().StringVar(&s.preset, "preset", config.DefaultPreset, "Model preset used to initialize the engine")
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "Log engine and audit activity to stderr")

	root.AddCommand(
		newQualityCmd(s),
		newDetectCmd(s),
		newEncodeCmd(s),
		newCompareCmd(s),
		newLivenessCmd(s),
		newStatusCmd(s),
	)
	return root
}

func (s *session) open(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if s.backend != "" {
		cfg.FaceBackend = s.backend
	}
	if s.presetFile == "" {
		s.presetFile = cfg.PresetsFile
	}

	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	loader, err := face.NewLoader(cfg)
	if err != nil {
		return err
	}

	var auditLogger audit.Logger = &audit.NoOpLogger{}
	if s.verbose {
		auditLogger = audit.NewSlogLogger(logger)
	}

	registry := engine.NewRegistry(loader, engine.WithLogger(logger), engine.WithBackendNamer(loader.Backend))
	s.bridge = bridge.New(registry,
		bridge.WithLogger(logger),
		bridge.WithAuditLogger(auditLogger),
		bridge.WithBackendNamer(loader.Backend),
	)
	return nil
}

// engine initializes an engine from the selected preset
func (s *session) engine(cmd *cobra.Command) (int64, error) {
	presets, err := config.LoadPresets(s.presetFile)
	if err != nil {
		return bridge.InvalidHandle, err
	}
	preset, err := presets.Get(s.preset)
	if err != nil {
		return bridge.InvalidHandle, err
	}

	h, err := s.bridge.InitializeWith(cmd.Context(), preset.Paths())
	if err != nil {
		return bridge.InvalidHandle, fmt.Errorf("preset %q: %w", s.preset, err)
	}
	return h, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
