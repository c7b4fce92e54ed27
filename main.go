package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"screen-state-recognizer/internal/app"
	"screen-state-recognizer/internal/capture"
	"screen-state-recognizer/internal/config"
	"screen-state-recognizer/internal/detector"
	"screen-state-recognizer/internal/logging"
	"screen-state-recognizer/internal/ocr"
	"screen-state-recognizer/internal/recognizer"
	"screen-state-recognizer/internal/server"
	"screen-state-recognizer/internal/system"
	"screen-state-recognizer/internal/websocket"
)

var (
	logLevel string
	monitor  int
)

// stack is every component wired from one configuration.
type stack struct {
	cfg    *config.Config
	log    zerolog.Logger
	ws     *websocket.Manager
	rec    *recognizer.Recognizer
	app    *app.App
	engine *ocr.Tesseract
}

func (s *stack) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if monitor > 0 {
		cfg.Monitor = monitor
	}
	return cfg, nil
}

func buildStack(cfg *config.Config, sinks ...io.Writer) (*stack, error) {
	ws := websocket.NewManager()
	log := logging.New(cfg.LogLevel, append(sinks, ws)...)

	source := capture.NewScreenSource(cfg.Monitor, logging.Component(log, "capture"))

	var extractor recognizer.TextExtractor
	engine, err := ocr.NewTesseract(cfg.OCRLanguages)
	if err != nil {
		log.Warn().Err(err).Msg("OCR unavailable, marginal states will stay unknown")
	} else {
		extractor = ocr.NewExtractor(engine, logging.Component(log, "ocr"))
	}

	rec, err := recognizer.New(recognizer.Options{
		Threshold:         cfg.Threshold,
		FallbackThreshold: cfg.FallbackThresh,
		ReferencesPath:    cfg.TemplatesMapping,
		ImagesDir:         cfg.ImagesDir,
		RegionsPath:       cfg.OCRMapping,
		CaptureRegion:     cfg.CaptureRegion,
	}, source, detector.NewCVMatcher(), extractor, logging.Component(log, "recognizer"))
	if err != nil {
		if engine != nil {
			engine.Close()
		}
		return nil, err
	}

	a := app.NewApp(app.Deps{
		Recognizer:   rec,
		Source:       source,
		Extractor:    extractor,
		WSManager:    ws,
		System:       system.NewController(),
		Log:          logging.Component(log, "app"),
		PollInterval: cfg.PollInterval,
	})

	return &stack{cfg: cfg, log: log, ws: ws, rec: rec, app: a, engine: engine}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.NewServer(st.app, server.Options{
		Addr:        cfg.HTTPAddr,
		OpenBrowser: cfg.OpenBrowser,
		ImagesDir:   cfg.ImagesDir,
	}, logging.Component(st.log, "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		st.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newRecognizeCmd() *cobra.Command {
	var framePath string
	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Classify the current screen once and print the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if framePath == "" {
				return printJSON(st.rec.Recognize())
			}
			frame, err := imaging.Open(framePath)
			if err != nil {
				return fmt.Errorf("open frame: %w", err)
			}
			return printJSON(st.rec.RecognizeFrame(frame))
		},
	}
	cmd.Flags().StringVar(&framePath, "frame", "", "classify this image file instead of capturing the screen")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe displays, OCR and catalogs, then run one timed recognition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return printJSON(st.app.TestEnvironment())
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:           "screen-state",
		Short:         "Recognize game screen states by template matching with OCR fallback",
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&monitor, "monitor", 0, "override MONITOR (1-based display index)")
	root.AddCommand(newRecognizeCmd(), newCheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
