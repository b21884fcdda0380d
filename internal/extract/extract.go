// Package extract turns cleaned listing-page text into raw show candidates
// using a text-extraction model. Each chunk of a large page is extracted
// independently; one bad chunk never sinks the rest.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/fetch"
	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/resilience"
	"github.com/showscout/showscout-cli/pkg/anthropic"
)

const systemPrompt = `You extract collector-show listings (card shows, coin shows, collectible expos) from noisy web page text.

Return ONLY a JSON array. Each element describes one distinct show with exactly these fields:
{
  "name": "show title, or null",
  "date_text": "date or date range exactly as written, or null",
  "location": "venue and address text exactly as written, or null",
  "contact_text": "organizer contact text, or null",
  "fee_text": "admission fee text, or null",
  "hours_text": "hours text, or null",
  "description": "any remaining descriptive text, or null"
}

Rules:
- Every field is present in every element; use null for missing information, never omit a key.
- Copy text verbatim from the page; do not normalize dates, addresses, or fees.
- One element per show. A listing mentioning several distinct shows becomes several elements.
- Ignore navigation, advertising, and non-show content.
- If the text contains no show listings, return [].
- No prose, no markdown fences, no trailing commentary.`

// Options configures the extraction agent.
type Options struct {
	Model      string
	MaxTokens  int64
	ChunkBytes int
	Retry      resilience.RetryConfig
}

// Agent extracts raw show candidates from page text.
type Agent struct {
	client anthropic.Client
	opts   Options
}

// New creates an extraction Agent.
func New(client anthropic.Client, opts Options) *Agent {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 8192
	}
	if opts.ChunkBytes == 0 {
		opts.ChunkBytes = fetch.DefaultChunkBytes
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &Agent{client: client, opts: opts}
}

// Extract splits text into chunks and extracts candidates from each. Chunks
// that fail produce zero candidates; the error return is non-nil only when
// every chunk failed, which counts as a source-level extract error.
func (a *Agent) Extract(ctx context.Context, sourceURL, text string) ([]model.RawShow, error) {
	chunks := fetch.Chunks(text, a.opts.ChunkBytes)
	if len(chunks) == 0 {
		return nil, nil
	}

	var shows []model.RawShow
	failed := 0
	for i, chunk := range chunks {
		chunkShows, err := a.extractChunk(ctx, chunk)
		if err != nil {
			failed++
			zap.L().Warn("chunk extraction failed",
				zap.String("source_url", sourceURL),
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err),
			)
			continue
		}
		shows = append(shows, chunkShows...)
	}

	if failed == len(chunks) {
		return nil, resilience.NewError(resilience.KindExtract, sourceURL,
			eris.Errorf("all %d chunks failed", len(chunks)))
	}
	return shows, nil
}

func (a *Agent) extractChunk(ctx context.Context, chunk string) ([]model.RawShow, error) {
	cfg := a.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("anthropic", "extract")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.opts.Model,
			MaxTokens: a.opts.MaxTokens,
			System:    systemPrompt,
			Messages:  []anthropic.Message{{Role: "user", Content: chunk}},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(resp.Model, "extract")

	return ParseCandidates(resp.Text)
}

// ParseCandidates parses model output into raw candidates. The output must be
// a JSON array after fence stripping; anything else is an extract error.
func ParseCandidates(text string) ([]model.RawShow, error) {
	cleaned := cleanJSONArray(text)
	if cleaned == "" {
		return nil, eris.New("extract: empty model output")
	}

	var shows []model.RawShow
	if err := json.Unmarshal([]byte(cleaned), &shows); err != nil {
		return nil, eris.Wrap(err, "extract: parse candidate array")
	}
	return shows, nil
}

// cleanJSONArray strips markdown code fences and surrounding prose, keeping
// the outermost JSON array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
