// Command interloq runs interpretation practice sessions from the terminal:
// it replays a recorded attempt against a reference deck, scores it, and
// prints the annotated transcript and timeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/interloq/interloq/internal/align"
	"github.com/interloq/interloq/internal/config"
	"github.com/interloq/interloq/internal/evaluate"
	"github.com/interloq/interloq/internal/health"
	"github.com/interloq/interloq/internal/history"
	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/internal/practice"
	"github.com/interloq/interloq/internal/refscript"
	"github.com/interloq/interloq/internal/resilience"
	"github.com/interloq/interloq/internal/timeline"
	"github.com/interloq/interloq/pkg/assess"
	"github.com/interloq/interloq/pkg/assess/azure"
	"github.com/interloq/interloq/pkg/capture"
	capturefile "github.com/interloq/interloq/pkg/capture/file"
	"github.com/interloq/interloq/pkg/provider/llm"
	"github.com/interloq/interloq/pkg/provider/llm/anyllm"
	llmopenai "github.com/interloq/interloq/pkg/provider/llm/openai"
	"github.com/interloq/interloq/pkg/recognize"
	"github.com/interloq/interloq/pkg/recognize/deepgram"
	"github.com/interloq/interloq/pkg/recognize/whisper"
	"github.com/interloq/interloq/pkg/scoring"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	deckPath := flag.String("deck", "", "practice deck YAML (overrides scripts.deck from the config)")
	audioPath := flag.String("audio", "", "WAV file replayed as the spoken attempt")
	unitID := flag.String("unit", "", "practice only the unit with this ID")
	recordFor := flag.Duration("record-for", 10*time.Second, "how long to record each attempt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "interloq: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "interloq: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Logging))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	recognizer, assessor, scorer, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	if addr := cfg.Server.ListenAddr; addr != "" {
		monitor := health.New(
			health.ProviderChecker("recognizer", func() bool { return recognizer != nil }),
			health.ProviderChecker("scorer", func() bool { return scorer != nil }),
		)
		go func() {
			if err := monitor.Serve(ctx, addr); err != nil {
				slog.Warn("monitoring server stopped", "err", err)
			}
		}()
		slog.Info("monitoring server listening", "addr", addr)
	}

	var platform capture.Platform
	if *audioPath != "" {
		platform, err = reg.CreatePlatform(config.ProviderEntry{
			Name:    "file",
			Options: map[string]any{"path": *audioPath},
		})
		if err != nil {
			slog.Error("failed to open audio source", "err", err)
			return 1
		}
	} else {
		slog.Warn("no -audio source given; attempts run without audio capture")
	}

	deck := cfg.Scripts.Deck
	if *deckPath != "" {
		deck = *deckPath
	}
	if deck == "" {
		fmt.Fprintln(os.Stderr, "interloq: no practice deck; set scripts.deck or pass -deck")
		return 1
	}
	units, err := loadUnits(ctx, deck, *unitID)
	if err != nil {
		slog.Error("failed to load deck", "err", err)
		return 1
	}

	engine := buildEngine(assessor, scorer)
	coordinator := practice.NewCoordinator(platform, recognizer, engine, practice.Config{
		CountdownTicks:    cfg.Practice.CountdownTicks,
		CountdownInterval: cfg.Practice.CountdownInterval,
		KeepInterimOnStop: cfg.Practice.KeepInterimOnStop,
	}, practice.WithCallbacks(practice.Callbacks{
		OnCountdown: func(remaining int) {
			if remaining > 0 {
				fmt.Printf("  %d...\n", remaining)
			}
		},
		OnTranscript: func(stable, interim string) {
			fmt.Printf("\r  %s %s", stable, interim)
		},
	}))

	var attempts *history.FileStore
	if cfg.Practice.HistoryFile != "" {
		attempts = history.NewFileStore(cfg.Practice.HistoryFile)
	}

	for _, unit := range units {
		if err := runAttempt(ctx, coordinator, unit, *recordFor, cfg.Practice.HighlightThreshold, attempts); err != nil {
			if errors.Is(err, context.Canceled) {
				return 0
			}
			slog.Error("attempt failed", "unit", unit.ID, "err", err)
			return 1
		}
	}
	return 0
}

// runAttempt drives one unit through the full session lifecycle and prints
// the scored result.
func runAttempt(ctx context.Context, c *practice.Coordinator, unit refscript.Unit, recordFor time.Duration, threshold int, attempts *history.FileStore) error {
	fmt.Printf("\n── %s ──\n%s\n\n", title(unit), unit.Primary)
	if attempts != nil {
		if best, found, err := attempts.Best(unit.ID); err == nil && found {
			fmt.Printf("  best so far: %d\n\n", best)
		}
	}

	if err := c.BeginWithCountdown(ctx, unit); err != nil {
		return err
	}

	select {
	case <-time.After(recordFor):
	case <-ctx.Done():
		c.Reset()
		return ctx.Err()
	}

	if err := c.Stop(ctx); err != nil {
		return err
	}
	result, err := c.Evaluate(ctx)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Printf("\n  (no result: %s)\n", c.Warning())
		c.Reset()
		return nil
	}

	printResult(c.Transcript(), result, threshold)
	if attempts != nil {
		rec := history.NewRecord(unit.ID, unit.Language, result)
		if err := attempts.Append(rec); err != nil {
			slog.Warn("failed to record attempt", "unit", unit.ID, "err", err)
		}
	}
	c.Reset()
	return nil
}

// printResult renders the fused scores, the annotated transcript, and the
// pause timeline.
func printResult(transcript string, result *scoring.Result, threshold int) {
	fmt.Printf("\n\n  Overall: %d\n", result.Overall)

	if p := result.Pronunciation; p != nil {
		fmt.Printf("  Pronunciation (%s): accuracy %d, fluency %d", p.Source, p.Accuracy, p.Fluency)
		if p.HasProsody() {
			fmt.Printf(", prosody %d", p.Prosody)
		}
		fmt.Println()

		for _, w := range scoring.TopOffenders(p.Words, 3) {
			fmt.Printf("    weak word: %q (%d)\n", w.Word, w.Accuracy)
		}

		tl := timeline.New(p.Words, p.LongPauses)
		for _, m := range tl.PauseMarkers() {
			fmt.Printf("    %s at %s (%.0f%% in)\n", m.Label, timeline.FormatMs(m.StartMs), m.LeftPercent)
		}

		if transcript != "" && len(p.Words) > 0 {
			fmt.Printf("  Transcript: %s\n", renderSegments(transcript, p.Words, threshold))
		}
	}

	if cs := result.Content; cs != nil {
		fmt.Printf("  Content: accuracy %d, completeness %d, fluency %d\n", cs.Accuracy, cs.Completeness, cs.Fluency)
		if cs.Summary != "" {
			fmt.Printf("    %s\n", cs.Summary)
		}
		if cs.Tips != "" {
			fmt.Printf("    tip: %s\n", cs.Tips)
		}
		for _, d := range cs.Details {
			fmt.Printf("    - %s\n", d)
		}
	}
}

// renderSegments marks low-accuracy spans in the transcript with brackets.
func renderSegments(transcript string, words []scoring.WordAssessment, threshold int) string {
	var sb strings.Builder
	for _, seg := range align.New(align.WithThreshold(threshold)).Highlight(transcript, words) {
		if seg.Highlight {
			fmt.Fprintf(&sb, "[%s](%d)", seg.Text, seg.Accuracy)
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// loadUnits imports the deck and returns the units to practice.
func loadUnits(ctx context.Context, path, unitID string) ([]refscript.Unit, error) {
	deck, err := refscript.LoadDeckFile(path)
	if err != nil {
		return nil, err
	}
	store := refscript.NewMemStore()
	n, err := refscript.ImportDeck(ctx, store, deck)
	if err != nil {
		return nil, err
	}
	slog.Info("deck loaded", "name", deck.Deck.Name, "units", n)

	if unitID != "" {
		unit, err := store.Get(ctx, unitID)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", unitID, err)
		}
		return []refscript.Unit{unit}, nil
	}
	return store.List(ctx, refscript.ListOptions{})
}

func title(u refscript.Unit) string {
	if u.Title != "" {
		return u.Title
	}
	return u.ID
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	// Recognizers.
	reg.RegisterRecognizer("deepgram", func(entry config.ProviderEntry) (recognize.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		return deepgram.New(entry.APIKey, opts...)
	})
	reg.RegisterRecognizer("whisper", func(entry config.ProviderEntry) (recognize.Provider, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	// Capture platforms.
	reg.RegisterPlatform("file", func(entry config.ProviderEntry) (capture.Platform, error) {
		return capturefile.New(optString(entry.Options, "path"))
	})

	// Assessors.
	reg.RegisterAssessor("azure", func(entry config.ProviderEntry) (assess.Provider, error) {
		opts := []azure.Option{azure.WithLongPauseGap(cfg.Practice.LongPauseGapMs)}
		if entry.BaseURL != "" {
			opts = append(opts, azure.WithEndpoint(entry.BaseURL))
		}
		return azure.New(entry.APIKey, entry.Region, opts...)
	})

	// Scorers. The any-llm backends share one pattern: optional APIKey plus
	// optional BaseURL.
	for _, name := range []string{
		"gemini", "anthropic", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterScorer(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterScorer("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})

	// openai goes through the official client.
	reg.RegisterScorer("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates the configured providers, each behind a
// circuit-breaking fallback wrapper.
func buildProviders(cfg *config.Config, reg *config.Registry) (recognize.Provider, assess.Provider, llm.Provider, error) {
	fbCfg := resilience.FallbackConfig{Metrics: observe.DefaultMetrics()}

	var recognizer recognize.Provider
	if entry := cfg.Providers.Recognizer; entry.Configured() {
		p, err := reg.CreateRecognizer(entry)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create recognizer %q: %w", entry.Name, err)
		}
		recognizer = resilience.NewRecognizeFallback(p, entry.Name, fbCfg)
		slog.Info("provider created", "kind", "recognizer", "name", entry.Name)
	}

	var assessor assess.Provider
	if entry := cfg.Providers.Assessor; entry.Configured() {
		p, err := reg.CreateAssessor(entry)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create assessor %q: %w", entry.Name, err)
		}
		assessor = resilience.NewAssessFallback(p, entry.Name, fbCfg)
		slog.Info("provider created", "kind", "assessor", "name", entry.Name)
	}

	var scorer llm.Provider
	if entry := cfg.Providers.Scorer; entry.Configured() {
		p, err := reg.CreateScorer(entry)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create scorer %q: %w", entry.Name, err)
		}
		scorer = resilience.NewLLMFallback(p, entry.Name, fbCfg)
		slog.Info("provider created", "kind", "scorer", "name", entry.Name)
	}

	return recognizer, assessor, scorer, nil
}

// buildEngine assembles the evaluation engine from whichever providers are
// configured. Missing providers degrade: no assessor means heuristic
// pronunciation, no scorer means no content half.
func buildEngine(assessor assess.Provider, scorer llm.Provider) *evaluate.Engine {
	var content *evaluate.ContentEvaluator
	if scorer != nil {
		content = evaluate.NewContentEvaluator(scorer, nil)
	}
	var opts []evaluate.Option
	if assessor != nil {
		opts = append(opts, evaluate.WithAssessor(assessor))
	}
	return evaluate.NewEngine(content, opts...)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var lvl slog.Level
	switch cfg.Level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == config.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, hopts))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
