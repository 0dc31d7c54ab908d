package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

const (
	notionAPIBase      = "https://api.notion.com/v1"
	notionAPIVersion   = "2022-06-28"
	notionBatchSize    = 100
	maxPublishAttempts = 3
)

// NotionReporter pushes the block document for a completed job to an
// external page. Publishing is best effort: a failed push marks the
// reporting step as failed without failing the job.
type NotionReporter struct {
	config *common.NotionConfig
	llm    interfaces.LLMService
	client *http.Client
	logger arbor.ILogger
	base   string
}

// NewNotionReporter creates a reporter. The llm service is optional and is
// only used to regenerate an oversized executive summary with stricter
// brevity when the page API rejects the document.
func NewNotionReporter(config *common.NotionConfig, llm interfaces.LLMService, logger arbor.ILogger) *NotionReporter {
	return &NotionReporter{
		config: config,
		llm:    llm,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		base:   notionAPIBase,
	}
}

// Enabled reports whether both the token and target page are configured
func (r *NotionReporter) Enabled() bool {
	return r.config != nil && r.config.Token != "" && r.config.PageID != ""
}

// PushReport builds the block document and appends it to the configured page.
// On rejection it retries with progressively shorter summaries, ending with
// a minimal document. Returns an error only when every attempt failed.
func (r *NotionReporter) PushReport(ctx context.Context, job *models.AnalysisJob) error {
	if !r.Enabled() {
		r.logger.Debug().Str("job_id", job.ID).Msg("External reporting not configured, skipping")
		return nil
	}

	working := job
	var lastErr error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		blocks := BuildBlockDocument(working)
		lastErr = r.appendBlocks(ctx, blocks)
		if lastErr == nil {
			r.logger.Info().
				Str("job_id", job.ID).
				Int("blocks", len(blocks)).
				Msg("Published report to external page")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logger.Warn().
			Str("job_id", job.ID).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("External page rejected report, regenerating with stricter brevity")
		working = r.condensed(ctx, working, attempt)
	}

	// Minimal fallback: title, counts, nothing the page API can object to
	if err := r.appendBlocks(ctx, minimalDocument(job)); err == nil {
		r.logger.Warn().Str("job_id", job.ID).Msg("Published minimal fallback report")
		return nil
	}

	return fmt.Errorf("external report push failed after %d attempts: %w", maxPublishAttempts, lastErr)
}

// condensed returns a shallow copy of the job whose executive summary has
// been regenerated at a tighter length budget
func (r *NotionReporter) condensed(ctx context.Context, job *models.AnalysisJob, attempt int) *models.AnalysisJob {
	if job.AIReview == nil || job.AIReview.ExecutiveSummary == "" {
		return job
	}

	budget := 1000 / attempt
	summary := job.AIReview.ExecutiveSummary

	if r.llm != nil {
		prompt := fmt.Sprintf(
			"Rewrite the following analysis summary in at most %d characters. Plain prose, no headings, no lists.\n\n%s",
			budget, summary)
		rewritten, err := r.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
		if err == nil && rewritten != "" {
			summary = rewritten
		} else if err != nil {
			r.logger.Debug().Err(err).Msg("Summary regeneration failed, truncating instead")
		}
	}
	if len(summary) > budget {
		summary = summary[:budget]
	}

	clone := *job
	review := *job.AIReview
	review.ExecutiveSummary = summary
	clone.AIReview = &review
	return &clone
}

func minimalDocument(job *models.AnalysisJob) []Block {
	summary := job.Summary
	if summary == nil {
		summary = models.NewAnalysisSummary(0, job.Issues)
	}
	return []Block{
		textBlock("heading_1", fmt.Sprintf("Code Analysis Report: %s", job.ID)),
		textBlock("paragraph", fmt.Sprintf("%d issues across %d files. Full report available via the analysis API.",
			summary.TotalIssues, summary.TotalFiles)),
	}
}

// appendBlocks pushes blocks to the page in batches, respecting the page
// API's children-per-request limit
func (r *NotionReporter) appendBlocks(ctx context.Context, blocks []Block) error {
	for start := 0; start < len(blocks); start += notionBatchSize {
		end := start + notionBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := r.appendBatch(ctx, blocks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotionReporter) appendBatch(ctx context.Context, blocks []Block) error {
	payload, err := json.Marshal(map[string]interface{}{"children": blocks})
	if err != nil {
		return fmt.Errorf("failed to serialize block document: %w", err)
	}

	url := fmt.Sprintf("%s/blocks/%s/children", r.base, r.config.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.config.Token)
	req.Header.Set("Notion-Version", notionAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("page API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
