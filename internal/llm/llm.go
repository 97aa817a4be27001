package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/report"
)

// Risk is the model's assessment of one active blueprint.
type Risk struct {
	Blueprint string `json:"blueprint"`
	Level     string `json:"level"` // low, medium, high
	Reason    string `json:"reason"`
}

// Client wraps the Anthropic API for release summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// describeReport renders the facts the model works from as plain text.
func describeReport(r *report.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Series: %s\n", r.Series)
	fmt.Fprintf(&sb, "Release date: %s\n", r.ReleaseDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Cycle position: day %d of %d, zone %s (green from day %d, yellow from %d, red from %d)\n",
		r.Gauge.Progress, r.Gauge.End, r.Gauge.Zone(),
		r.Gauge.GreenThreshold, r.Gauge.YellowThreshold, r.Gauge.RedThreshold)
	fmt.Fprintf(&sb, "Health: %d active, %d with warnings, %d with errors, score %d/100\n",
		r.Health.Total, r.Health.WithWarnings, r.Health.WithErrors, r.Health.Score)
	fmt.Fprintf(&sb, "Completed blueprints: %d\n\n", len(r.Completed))

	sb.WriteString("Active blueprints (most urgent first):\n")
	for _, bp := range r.Active {
		merged, open := countReviews(bp.LinkedReviews)
		fmt.Fprintf(&sb, "- %s/%s: priority %s, status %s, milestone %s",
			bp.Project, bp.Name, bp.Priority, bp.Implementation, orNone(bp.MilestoneName))
		if d := report.MilestoneDate(bp); d != "" {
			fmt.Fprintf(&sb, " (%s)", d)
		}
		fmt.Fprintf(&sb, ", owner %s, reviews %d merged / %d open", orNone(bp.OwnerName), merged, open)
		if notes := append(append([]string{}, bp.Errors...), bp.Warnings...); len(notes) > 0 {
			fmt.Fprintf(&sb, ", issues: %s", strings.Join(notes, "; "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func countReviews(reviews []models.LinkedReview) (merged, open int) {
	for _, r := range reviews {
		if r.Tag == models.ReviewTagMerged {
			merged++
		} else {
			open++
		}
	}
	return merged, open
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// buildDigestPrompt constructs the system and user prompts for a status digest.
func buildDigestPrompt(r *report.Report) (system string, user string) {
	system = `You write release status digests for an open source release manager. Given the state of a release series, write a short markdown digest with these sections:

## Where we are
One or two sentences on the cycle position and what the zone means for remaining work.

## Needs attention
Bullets for the blueprints most at risk: high priority work not started or without reviews late in the cycle, unassigned work, status not set. Name each blueprint.

## Good news
Bullets for work that is progressing well (merged reviews, code review stage).

Rules:
- Only use facts given in the input; never invent blueprints, people or dates
- Keep it under 250 words
- Return markdown only`

	user = "Summarize this release status:\n\n" + describeReport(r)
	return
}

// buildRiskPrompt constructs the system and user prompts for risk assessment.
func buildRiskPrompt(r *report.Report) (system string, user string) {
	system = `You assess delivery risk for blueprints in a release series. Return ONLY a JSON array of objects with these fields:
- "blueprint": the blueprint name exactly as given (without the project prefix)
- "level": one of "low", "medium", "high"
- "reason": one sentence explaining the level

Rules:
- Include every active blueprint exactly once
- Weigh priority, implementation status, linked reviews, owner, milestone date and how far the cycle has progressed
- Return valid JSON only, no markdown fencing or explanation`

	user = "Assess these blueprints:\n\n" + describeReport(r)
	return
}

// Digest asks the model for a prose summary of r.
func (c *Client) Digest(ctx context.Context, r *report.Report) (string, error) {
	system, user := buildDigestPrompt(r)
	text, err := c.complete(ctx, system, user, 2048)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AssessRisks asks the model to rate every active blueprint of r.
func (c *Client) AssessRisks(ctx context.Context, r *report.Report) ([]Risk, error) {
	system, user := buildRiskPrompt(r)
	text, err := c.complete(ctx, system, user, 4096)
	if err != nil {
		return nil, err
	}
	return parseRisks(text)
}

func parseRisks(text string) ([]Risk, error) {
	text = stripFence(text)
	var risks []Risk
	if err := json.Unmarshal([]byte(text), &risks); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return risks, nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

// stripFence removes a surrounding markdown code fence, if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
