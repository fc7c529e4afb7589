package evaluate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/interloq/interloq/internal/evaluate"
	"github.com/interloq/interloq/pkg/provider/llm"
	llmmock "github.com/interloq/interloq/pkg/provider/llm/mock"
)

func TestContentEvaluator_CleanJSON(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond(
		`{"accuracy":85,"completeness":70,"fluency":90,"summary":"solid","tips":"slow down","details":["주식 -> 증시"]}`)
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "오늘 증시가 올랐다", "今天股市上涨了", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 85 || got.Completeness != 70 || got.Fluency != 90 {
		t.Errorf("scores = %d/%d/%d, want 85/70/90", got.Accuracy, got.Completeness, got.Fluency)
	}
	if got.Summary != "solid" || got.Tips != "slow down" {
		t.Errorf("summary/tips = %q/%q", got.Summary, got.Tips)
	}
	if len(got.Details) != 1 {
		t.Errorf("details = %v, want one entry", got.Details)
	}

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].MaxTokens != 256 || reqs[0].Temperature != 0.2 {
		t.Errorf("budget = %d tokens at %.2f, want 256 at 0.20", reqs[0].MaxTokens, reqs[0].Temperature)
	}
	if !strings.Contains(reqs[0].Messages[0].Content, "Korean") {
		t.Error("prompt should name the hypothesis language")
	}
}

func TestContentEvaluator_FencedJSON(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond(
		"Here is the grade:\n```json\n{\"accuracy\":60,\"completeness\":50,\"fluency\":40,\"summary\":\"rough\"}\n```")
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "zh-CN")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 60 || got.Completeness != 50 || got.Fluency != 40 {
		t.Errorf("scores = %d/%d/%d, want 60/50/40", got.Accuracy, got.Completeness, got.Fluency)
	}
}

func TestContentEvaluator_ScoreForms(t *testing.T) {
	t.Parallel()

	// Percent string, fraction string, and a 0-1 float all normalize to the
	// same scale.
	provider := llmmock.New().Respond(
		`{"accuracy":"85%","completeness":"70/100","fluency":0.9,"summary":"ok"}`)
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 85 || got.Completeness != 70 || got.Fluency != 90 {
		t.Errorf("scores = %d/%d/%d, want 85/70/90", got.Accuracy, got.Completeness, got.Fluency)
	}
}

func TestContentEvaluator_AliasKeys(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond(
		`{"accuracy":80,"coverage":60,"context":70,"summary":"aliased"}`)
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Completeness != 60 || got.Fluency != 70 {
		t.Errorf("aliased scores = %d/%d, want 60/70", got.Completeness, got.Fluency)
	}
}

func TestContentEvaluator_RetryAfterTruncation(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().
		RespondWith(&llm.CompletionResponse{
			Content:      `{"accuracy":85,"complet`,
			FinishReason: "length",
		}).
		Respond(`{"accuracy":85,"completeness":70,"fluency":90,"summary":"retry"}`)
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "retry" {
		t.Errorf("Summary = %q, want result from the retry", got.Summary)
	}

	reqs := provider.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want exactly 2", len(reqs))
	}
	if reqs[1].MaxTokens != 64 || reqs[1].Temperature != 0.15 {
		t.Errorf("retry budget = %d tokens at %.2f, want 64 at 0.15", reqs[1].MaxTokens, reqs[1].Temperature)
	}
	if len(reqs[1].Messages[0].Content) >= len(reqs[0].Messages[0].Content) {
		t.Error("retry prompt should be shorter than the first prompt")
	}
}

func TestContentEvaluator_NoRetryForCompleteGarbage(t *testing.T) {
	t.Parallel()

	// A complete but non-JSON response gets label extraction, not a retry.
	provider := llmmock.New().Respond("accuracy: 80, completeness = 65, fluency 72")
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 80 || got.Completeness != 65 || got.Fluency != 72 {
		t.Errorf("scores = %d/%d/%d, want 80/65/72", got.Accuracy, got.Completeness, got.Fluency)
	}
	if len(provider.Requests()) != 1 {
		t.Errorf("requests = %d, want 1", len(provider.Requests()))
	}
}

func TestContentEvaluator_BareIntegerRecovery(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond("The scores are 75, 60 and 82 respectively.")
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 75 || got.Completeness != 60 || got.Fluency != 82 {
		t.Errorf("scores = %d/%d/%d, want 75/60/82", got.Accuracy, got.Completeness, got.Fluency)
	}
}

func TestContentEvaluator_DegradesToZero(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond("I cannot grade this attempt.")
	ev := evaluate.NewContentEvaluator(provider, nil)

	got, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if err != nil {
		t.Fatal(err)
	}
	if got.Accuracy != 0 || got.Completeness != 0 || got.Fluency != 0 {
		t.Errorf("scores = %d/%d/%d, want all zero", got.Accuracy, got.Completeness, got.Fluency)
	}
	if got.Summary == "" {
		t.Error("degraded result must carry a diagnostic summary")
	}
}

func TestContentEvaluator_TransportError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection refused")
	provider := llmmock.New().Fail(wantErr)
	ev := evaluate.NewContentEvaluator(provider, nil)

	_, err := ev.Evaluate(context.Background(), "hyp", "ref", "ko")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestContentEvaluator_TruncatesLongInputs(t *testing.T) {
	t.Parallel()

	provider := llmmock.New().Respond(`{"accuracy":50,"completeness":50,"fluency":50}`)
	ev := evaluate.NewContentEvaluator(provider, nil)

	long := strings.Repeat("가", 2000)
	if _, err := ev.Evaluate(context.Background(), long, long, "ko"); err != nil {
		t.Fatal(err)
	}

	prompt := provider.Requests()[0].Messages[0].Content
	if n := strings.Count(prompt, "가"); n > 1600 {
		t.Errorf("prompt carries %d reference runes, want at most 1600", n)
	}
}
