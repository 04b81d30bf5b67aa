package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/lifecycle"
	"inferd/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Local LLM generation lifecycle daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	root.Flags().StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.Flags().String("addr", "", "HTTP listen address, e.g. :8080")
	root.Flags().String("models-dir", "", "Directory to scan for *.gguf model files")
	root.Flags().String("default-model", "", "Default model id when request omits model")
	root.Flags().Int("ctx-size", 0, "Engine context window size in tokens")
	root.Flags().Int("threads", 0, "Engine decode threads")
	root.Flags().Int("max-tokens", 0, "Default max new tokens per generation")
	root.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	root.Flags().Bool("cors", false, "Enable CORS")
	root.Flags().String("cors-origins", "", "Comma-separated allowed CORS origins")
	root.Flags().String("cors-methods", "", "Comma-separated allowed CORS methods")
	root.Flags().String("cors-headers", "", "Comma-separated allowed CORS headers")
	return root
}

// resolveConfig layers defaults, the optional config file, and explicit flags
// in increasing precedence.
func resolveConfig(cmd *cobra.Command, cfgPath string) (config.Config, error) {
	cfg := config.Config{
		Addr:      ":8080",
		ModelsDir: "~/models/llm",
		LogLevel:  "info",
	}
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if cfgPath != "" {
		fileCfg, err := config.Load(cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		mergeConfig(&cfg, fileCfg)
	}

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if f.Changed("models-dir") {
		cfg.ModelsDir, _ = f.GetString("models-dir")
	}
	if f.Changed("default-model") {
		cfg.DefaultModel, _ = f.GetString("default-model")
	}
	if f.Changed("ctx-size") {
		cfg.CtxSize, _ = f.GetInt("ctx-size")
	}
	if f.Changed("threads") {
		cfg.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("max-tokens") {
		cfg.MaxTokens, _ = f.GetInt("max-tokens")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("cors") {
		cfg.CORSEnabled, _ = f.GetBool("cors")
	}
	if f.Changed("cors-origins") {
		s, _ := f.GetString("cors-origins")
		cfg.CORSOrigins = splitCSV(s)
	}
	if f.Changed("cors-methods") {
		s, _ := f.GetString("cors-methods")
		cfg.CORSMethods = splitCSV(s)
	}
	if f.Changed("cors-headers") {
		s, _ := f.GetString("cors-headers")
		cfg.CORSHeaders = splitCSV(s)
	}
	return cfg, nil
}

// mergeConfig overlays non-zero fields of src onto dst.
func mergeConfig(dst *config.Config, src config.Config) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.ModelsDir != "" {
		dst.ModelsDir = src.ModelsDir
	}
	if src.DefaultModel != "" {
		dst.DefaultModel = src.DefaultModel
	}
	if src.CtxSize > 0 {
		dst.CtxSize = src.CtxSize
	}
	if src.Threads > 0 {
		dst.Threads = src.Threads
	}
	if src.MaxTokens > 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.TokenBuffer > 0 {
		dst.TokenBuffer = src.TokenBuffer
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.CORSEnabled {
		dst.CORSEnabled = true
		dst.CORSOrigins = src.CORSOrigins
		dst.CORSMethods = src.CORSMethods
		dst.CORSHeaders = src.CORSHeaders
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func serve(cfg config.Config) error {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	logger.Info().
		Int("models", len(reg)).
		Str("dir", cfg.ModelsDir).
		Bool("llama_built", engine.LlamaAvailable()).
		Msg("registry loaded")

	ctrl := lifecycle.New(lifecycle.Config{
		Engine:       engine.NewLlama(),
		Registry:     reg,
		DefaultModel: cfg.DefaultModel,
		CtxSize:      cfg.CtxSize,
		Threads:      cfg.Threads,
		Params:       engine.SessionParams{MaxTokens: cfg.MaxTokens},
		TokenBuffer:  cfg.TokenBuffer,
		Logger:       logger.With().Str("component", "lifecycle").Logger(),
	})

	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(ctrl)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-baseCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	// Release the engine on the way out; the warning is already logged.
	_ = ctrl.ResetContext()
	return nil
}
