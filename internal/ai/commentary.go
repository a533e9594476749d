// Package ai generates short natural-language commentary on sector
// performance from the computed gain tables.
package ai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"energydash/internal/marketdata"
)

type Commentator struct {
	cli oa.Client
}

func NewCommentator(apiKey string) *Commentator {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Commentator{cli: client}
}

// FormatGainLines renders a gain summary as one plain-text line per
// ticker, the prompt payload for Comment. Null gains print as "-".
func FormatGainLines(tickers []string, metrics []string, gains map[string]marketdata.GainResult, nameOf func(string) string) []string {
	lines := make([]string, 0, len(tickers))
	for _, tk := range tickers {
		parts := make([]string, 0, len(metrics))
		for _, m := range metrics {
			cell := "-"
			if g, ok := gains[m]; ok {
				if v := g[tk]; v != nil {
					cell = fmt.Sprintf("%+.2f%%", *v)
				}
			}
			parts = append(parts, m+" "+cell)
		}
		lines = append(lines, nameOf(tk)+": "+strings.Join(parts, ", "))
	}
	return lines
}

// Comment asks the model for a compact read of the sector's gain table.
func (c *Commentator) Comment(ctx context.Context, sector string, lines []string) (string, error) {
	if len(lines) == 0 {
		return "No gain data to comment on.", nil
	}
	systemPrompt := `You are a financial analyst covering Japanese energy-sector equities. You will receive a table of percentage gains over several windows for one sector. Write a concise commentary:
- Name the notable outperformers and laggards with their figures
- Note any divergence between short-term (1d, 5d) and long-term (1y, 3y) moves
- Keep it under 200 words, plain text, no markdown tables
- Do not give investment advice`

	userPrompt := fmt.Sprintf("Sector: %s\n\nGains per stock:\n%s", sector, strings.Join(lines, "\n"))

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(userPrompt),
		},
		MaxTokens: oa.Int(600),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
