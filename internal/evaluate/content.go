package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/interloq/interloq/internal/observe"
	"github.com/interloq/interloq/pkg/provider/llm"
	"github.com/interloq/interloq/pkg/scoring"
)

// Prompt and budget constants for the grading call. The first attempt gets a
// compact prompt; the single retry after a truncated or empty response gets
// an ultra-compact prompt with a much smaller output budget.
const (
	maxReferenceRunes = 800
	retryInputRunes   = 200

	primaryMaxTokens   = 256
	primaryTemperature = 0.2

	retryMaxTokens   = 64
	retryTemperature = 0.15
)

// ContentEvaluator grades a recognized hypothesis against a reference script
// through a language-model backend. Evaluate never returns an unusable
// score: unparseable model output degrades to an all-zero ContentScore with
// a diagnostic summary.
type ContentEvaluator struct {
	provider llm.Provider
	metrics  *observe.Metrics
}

// NewContentEvaluator creates an evaluator on the given backend.
func NewContentEvaluator(provider llm.Provider, metrics *observe.Metrics) *ContentEvaluator {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &ContentEvaluator{provider: provider, metrics: metrics}
}

// Evaluate grades hypothesis against reference. language is the hypothesis
// language tag (e.g. "ko", "zh-CN"). Transport failures are returned as
// errors; everything else degrades to a usable score.
func (e *ContentEvaluator) Evaluate(ctx context.Context, hypothesis, reference, language string) (*scoring.ContentScore, error) {
	start := time.Now()
	defer func() {
		e.metrics.ContentDuration.Record(ctx, time.Since(start).Seconds())
	}()

	ref := truncateRunes(reference, maxReferenceRunes)
	hyp := truncateRunes(hypothesis, maxReferenceRunes)
	langName := languageName(language)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: gradingPrompt(langName, ref, hyp)}},
		Temperature: primaryTemperature,
		MaxTokens:   primaryMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: content scoring request: %w", err)
	}

	if score, ok := parseContentScore(resp.Content); ok {
		return score, nil
	}

	// One bounded retry, only for the truncated-or-empty case.
	text := resp.Content
	if truncated(resp) {
		slog.Info("content response truncated or empty, retrying with compact prompt",
			"finish_reason", resp.FinishReason)
		retry, err := e.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{{Role: "user", Content: retryPrompt(
				langName,
				truncateRunes(ref, retryInputRunes),
				truncateRunes(hyp, retryInputRunes),
			)}},
			Temperature: retryTemperature,
			MaxTokens:   retryMaxTokens,
		})
		if err == nil {
			if score, ok := parseContentScore(retry.Content); ok {
				return score, nil
			}
			if retry.Content != "" {
				text = retry.Content
			}
		} else {
			slog.Warn("content retry failed", "error", err)
		}
	}

	if score, ok := extractLabeledScores(text); ok {
		slog.Warn("content scores recovered by label extraction")
		return score, nil
	}
	if score, ok := extractBareScores(text); ok {
		slog.Warn("content scores recovered from bare integers")
		return score, nil
	}

	// Terminal degraded result, never an error.
	slog.Warn("content evaluation degraded to zero scores", "finish_reason", resp.FinishReason)
	return &scoring.ContentScore{
		Summary: "Content evaluation failed: the model response was empty or unparseable.",
		Details: []string{fmt.Sprintf("finish reason: %s", orUnknown(resp.FinishReason))},
	}, nil
}

// gradingPrompt is the compact first-attempt prompt. It asks for JSON only.
func gradingPrompt(langName, reference, hypothesis string) string {
	return fmt.Sprintf(`Grade an interpretation attempt. Return JSON only.
Language: %s
Source text: %s
Interpretation: %s

Criteria (integers 0-100):
- accuracy: meaning preserved, no mistranslation or distortion
- completeness: omission ratio (omitting over 30%% costs heavily)
- fluency: grammar, cohesion, readability (wording differences are fine)

Schema (JSON ONLY): {"accuracy":number,"completeness":number,"fluency":number,
"summary":"one-line verdict","tips":"improvement hint","details":["error: correction"]}`,
		langName, reference, hypothesis)
}

// retryPrompt is the ultra-compact retry used after truncation.
func retryPrompt(langName, reference, hypothesis string) string {
	return fmt.Sprintf(`JSON ONLY. L=%s. R=%s H=%s S={"accuracy":number,"completeness":number,"fluency":number,"summary":string,"tips":string,"details":string[]}`,
		langName, reference, hypothesis)
}

// truncated reports whether a completion stopped at its output budget or
// came back empty.
func truncated(resp *llm.CompletionResponse) bool {
	switch resp.FinishReason {
	case "length", "max_tokens", "MAX_TOKENS":
		return true
	}
	return strings.TrimSpace(resp.Content) == ""
}

// contentPayload is the expected response shape. Score fields stay raw so
// every accepted numeric form ("85%", "85/100", 0.85, 85) can be handled.
type contentPayload struct {
	Accuracy     any      `json:"accuracy"`
	Completeness any      `json:"completeness"`
	Coverage     any      `json:"coverage"`
	Fluency      any      `json:"fluency"`
	Context      any      `json:"context"`
	Summary      string   `json:"summary"`
	Tips         string   `json:"tips"`
	Details      []string `json:"details"`
}

// parseContentScore attempts strict JSON parsing, then balanced-object
// extraction from surrounding prose or code fences.
func parseContentScore(text string) (*scoring.ContentScore, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	if score, ok := unmarshalPayload(trimmed); ok {
		return score, true
	}
	if candidate, ok := extractJSONObject(trimmed); ok {
		return unmarshalPayload(candidate)
	}
	return nil, false
}

func unmarshalPayload(s string) (*scoring.ContentScore, bool) {
	var p contentPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, false
	}
	accuracy, okA := toScore(p.Accuracy)
	completeness, okC := toScore(firstNonNil(p.Completeness, p.Coverage))
	fluency, okF := toScore(firstNonNil(p.Fluency, p.Context))
	if !okA || !okC || !okF {
		return nil, false
	}
	return &scoring.ContentScore{
		Accuracy:     accuracy,
		Completeness: completeness,
		Fluency:      fluency,
		Summary:      p.Summary,
		Tips:         p.Tips,
		Details:      p.Details,
	}, true
}

// extractJSONObject finds the first balanced {...} block, skipping fences
// and prose, and verifies it is valid JSON.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

var labeledScoreRes = map[string]*regexp.Regexp{
	"accuracy":     regexp.MustCompile(`(?i)accuracy["']?\s*[:=]?\s*(\d+)`),
	"completeness": regexp.MustCompile(`(?i)(?:completeness|coverage)["']?\s*[:=]?\s*(\d+)`),
	"fluency":      regexp.MustCompile(`(?i)(?:fluency|context)["']?\s*[:=]?\s*(\d+)`),
}

// extractLabeledScores pulls labeled numbers out of non-JSON text, e.g.
// "accuracy: 80". At least one label must be present.
func extractLabeledScores(text string) (*scoring.ContentScore, bool) {
	found := false
	get := func(key string) int {
		m := labeledScoreRes[key].FindStringSubmatch(text)
		if m == nil {
			return 0
		}
		found = true
		n, _ := strconv.Atoi(m[1])
		return scoring.Clamp(float64(n))
	}
	score := &scoring.ContentScore{
		Accuracy:     get("accuracy"),
		Completeness: get("completeness"),
		Fluency:      get("fluency"),
	}
	if !found {
		return nil, false
	}
	score.Summary = "Scores recovered by pattern matching from a malformed response."
	score.Details = []string{"label extraction"}
	return score, true
}

var bareIntRe = regexp.MustCompile(`\d+`)

// extractBareScores takes the first three integers in the text, provided
// all of them look like percentages.
func extractBareScores(text string) (*scoring.ContentScore, bool) {
	nums := bareIntRe.FindAllString(text, 3)
	if len(nums) < 3 {
		return nil, false
	}
	vals := make([]int, 3)
	for i, s := range nums {
		n, err := strconv.Atoi(s)
		if err != nil || n > 100 {
			return nil, false
		}
		vals[i] = n
	}
	return &scoring.ContentScore{
		Accuracy:     vals[0],
		Completeness: vals[1],
		Fluency:      vals[2],
		Summary:      "Scores recovered from bare integers in a malformed response.",
		Details:      []string{"ordered integer extraction"},
	}, true
}

var fractionRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*100$`)

// toScore normalizes a raw score value. Accepted forms: "85%", "85/100", a
// 0-1 float (scaled by 100), and bare numbers. The second return reports
// whether the value was interpretable at all.
func toScore(raw any) (int, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return scaleNumber(v), true
	case string:
		s := strings.TrimSpace(v)
		if pct, ok := strings.CutSuffix(s, "%"); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(pct), 64); err == nil {
				return scoring.Clamp(n), true
			}
			return 0, false
		}
		if m := fractionRe.FindStringSubmatch(s); m != nil {
			n, _ := strconv.ParseFloat(m[1], 64)
			return scoring.Clamp(n), true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return scaleNumber(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// scaleNumber treats values in (0,1] as fractions of 100.
func scaleNumber(n float64) int {
	if n > 0 && n <= 1 {
		return scoring.Clamp(n * 100)
	}
	return scoring.Clamp(n)
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// languageName maps a locale tag to the English language name used in the
// grading prompt.
func languageName(tag string) string {
	base := tag
	if i := strings.IndexByte(base, '-'); i > 0 {
		base = base[:i]
	}
	switch strings.ToLower(base) {
	case "ko":
		return "Korean"
	case "zh":
		return "Chinese"
	case "en":
		return "English"
	case "ja":
		return "Japanese"
	default:
		if tag == "" {
			return "unknown"
		}
		return tag
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
