package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/teemow/workdigest/internal/pipeline"
)

var _ pipeline.Analyzer = (*Client)(nil)

var jsonArray = regexp.MustCompile(`(?s)\[[^\[\]]*\]`)

// Analyze runs one stage against text. A deadline maps to pipeline.ErrTimeout;
// every other failure wraps pipeline.ErrCapabilityUnavailable. The output is
// returned unvalidated.
func (c *Client) Analyze(ctx context.Context, stage, text string, constraints pipeline.Constraints) (string, error) {
	out, err := c.Complete(ctx, stagePrompt(stage, text, constraints))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", pipeline.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", pipeline.ErrCapabilityUnavailable, err)
	}
	return out, nil
}

// SelectRelevant returns the indices into names of the entries the model
// considers related to topic, in ascending order.
func (c *Client) SelectRelevant(ctx context.Context, topic string, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}

	out, err := c.Complete(ctx, selectPrompt(topic, names))
	if err != nil {
		return nil, fmt.Errorf("failed to select files for topic: %w", err)
	}
	return parseSelection(out, len(names))
}

// parseSelection reads a JSON array of 1-based numbers out of the model answer.
func parseSelection(out string, n int) ([]int, error) {
	raw := jsonArray.FindString(out)
	if raw == "" {
		return nil, fmt.Errorf("selection answer is not a JSON array: %q", out)
	}

	var numbers []int
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		return nil, fmt.Errorf("failed to parse selection %q: %w", raw, err)
	}

	seen := make(map[int]bool, len(numbers))
	indices := make([]int, 0, len(numbers))
	for _, num := range numbers {
		i := num - 1
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}
