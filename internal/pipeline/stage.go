package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Stage names used by the built-in stages.
const (
	StageSummary      = "summary"
	StagePriority     = "priority"
	StageKeyPoints    = "key_points"
	StageActionItems  = "action_items"
	StageDeadlines    = "deadlines"
	StageParticipants = "participants"
)

// Priority levels accepted by the priority stage.
var PriorityLevels = []string{"High", "Medium", "Low"}

// Constraints describe the output shape a stage expects from the analyzer.
type Constraints struct {
	// Instruction tells the analyzer what to produce.
	Instruction string `json:"instruction"`

	// MaxWords bounds free text output (summary, justification). Zero means unbounded.
	MaxWords int `json:"max_words,omitempty"`

	// MaxItems bounds list output. Zero means unbounded.
	MaxItems int `json:"max_items,omitempty"`

	// Labels restricts the leading label of the output.
	Labels []string `json:"labels,omitempty"`

	// Guidance is extra context for the analyzer.
	Guidance string `json:"guidance,omitempty"`
}

// Analyzer is the external text-analysis capability.
type Analyzer interface {
	Analyze(ctx context.Context, stage string, text string, c Constraints) (string, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, stage string, text string, c Constraints) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, stage string, text string, c Constraints) (string, error) {
	return f(ctx, stage, text, c)
}

// Stage is one independent analysis of an item's text.
type Stage struct {
	Name        string
	Constraints Constraints

	// Guide derives additional guidance from the text. Optional.
	Guide func(text string) string

	// Validate checks the analyzer output against the constraints and returns
	// the normalized output. Errors must wrap ErrOutOfContract. Optional.
	Validate func(output string, c Constraints) (string, error)

	// Local computes the output in-process instead of calling the analyzer.
	Local func(text string) (string, error)
}

func (s Stage) constraintsFor(text string) Constraints {
	c := s.Constraints
	if s.Guide == nil {
		return c
	}
	if g := s.Guide(text); g != "" {
		if c.Guidance != "" {
			c.Guidance += "\n"
		}
		c.Guidance += g
	}
	return c
}

func (s Stage) validate(output string, c Constraints) (string, error) {
	if s.Validate == nil {
		out := strings.TrimSpace(output)
		if out == "" {
			return "", fmt.Errorf("%w: empty output", ErrOutOfContract)
		}
		return out, nil
	}
	return s.Validate(output, c)
}

// StageNames returns the names of stages in order.
func StageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

// SummaryStage summarizes the text in at most maxWords words.
func SummaryStage(subject string, maxWords int) Stage {
	return Stage{
		Name: StageSummary,
		Constraints: Constraints{
			Instruction: fmt.Sprintf("Summarize the %s in a single concise paragraph of at most %d words.", subject, maxWords),
			MaxWords:    maxWords,
		},
		Validate: ValidateSummary,
	}
}

// PriorityStage classifies the text as High, Medium or Low priority with a
// justification of at most maxWords words.
func PriorityStage(subject string, maxWords int, guidance string) Stage {
	return Stage{
		Name: StagePriority,
		Constraints: Constraints{
			Instruction: fmt.Sprintf(
				"Categorize the priority of the %s. Answer with one sentence of the form \"<High|Medium|Low> Priority: <justification>\". The justification must not exceed %d words.",
				subject, maxWords),
			MaxWords: maxWords,
			Labels:   PriorityLevels,
			Guidance: guidance,
		},
		Validate: ValidatePriority,
	}
}

// ListStage asks for a list of at most maxItems entries.
func ListStage(name, instruction string, maxItems int) Stage {
	return Stage{
		Name: name,
		Constraints: Constraints{
			Instruction: fmt.Sprintf("%s List at most %d items, one per line, each starting with \"- \". Answer \"None\" if there are none.", instruction, maxItems),
			MaxItems:    maxItems,
		},
		Validate: ValidateList,
	}
}

// ActionItemsStage extracts action items and guides the analyzer with the
// names that appear in the text.
func ActionItemsStage(maxItems int) Stage {
	s := ListStage(StageActionItems,
		"Identify the specific tasks assigned to individuals, including who is responsible and any details.",
		maxItems)
	s.Guide = func(text string) string {
		names := ExtractNames(text)
		if len(names) == 0 {
			return ""
		}
		return "People mentioned: " + strings.Join(names, ", ") + ". Attribute each task to one of them where possible."
	}
	return s
}

// ParticipantsStage lists the capitalized full names found in the text. It
// runs locally.
func ParticipantsStage() Stage {
	return Stage{
		Name: StageParticipants,
		Local: func(text string) (string, error) {
			names := ExtractNames(text)
			if len(names) == 0 {
				return "None", nil
			}
			return strings.Join(names, ", "), nil
		},
	}
}

var (
	summaryLabel  = regexp.MustCompile(`(?i)^\s*\**\s*summary\s*\**\s*:\s*`)
	priorityShape = regexp.MustCompile(`(?is)^[\s\*\[\(]*(high|medium|low)((?:[\s\*\]\)\-]*priority\b)?)([\s\*\]\)]*)([:\-–—]?)\s*(.*)$`)
	bulletPrefix  = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	headerLine    = regexp.MustCompile(`^[\s\*#]*[A-Za-z][A-Za-z ]*:[\s\*]*$`)
	namePattern   = regexp.MustCompile(`[A-Z][a-z]+(?: [A-Z][a-z]+)+`)
)

// ValidateSummary accepts non-empty text within the word limit.
func ValidateSummary(output string, c Constraints) (string, error) {
	out := strings.TrimSpace(summaryLabel.ReplaceAllString(strings.TrimSpace(output), ""))
	if out == "" {
		return "", fmt.Errorf("%w: empty summary", ErrOutOfContract)
	}
	if n := wordCount(out); c.MaxWords > 0 && n > c.MaxWords {
		return "", fmt.Errorf("%w: summary has %d words, limit is %d", ErrOutOfContract, n, c.MaxWords)
	}
	return out, nil
}

// ValidatePriority accepts output that starts with High, Medium or Low and
// carries a justification within the word limit. The result is normalized to
// "<Level> Priority: <justification>".
func ValidatePriority(output string, c Constraints) (string, error) {
	m := priorityShape.FindStringSubmatch(strings.TrimSpace(output))
	// Without "Priority" the level word must end at a space, a colon or the
	// end of the output, so "High-level review" is not a level.
	if m != nil && m[2] == "" && m[3] == "" && m[4] != ":" && m[5] != "" {
		m = nil
	}
	if m == nil {
		return "", fmt.Errorf("%w: priority must start with High, Medium or Low, got %q", ErrOutOfContract, truncate(output, 60))
	}

	level := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	justification := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[5]), "*"))
	if justification == "" {
		return "", fmt.Errorf("%w: priority %s has no justification", ErrOutOfContract, level)
	}
	if n := wordCount(justification); c.MaxWords > 0 && n > c.MaxWords {
		return "", fmt.Errorf("%w: justification has %d words, limit is %d", ErrOutOfContract, n, c.MaxWords)
	}
	return level + " Priority: " + justification, nil
}

// ValidateList accepts one item per line within the item limit. Bullets and
// numbering are normalized to "- ". A bare "None" is an empty list.
func ValidateList(output string, c Constraints) (string, error) {
	trimmed := strings.TrimSpace(output)
	if isNone(trimmed) {
		return "None", nil
	}

	var items []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || headerLine.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, "- "+item)
	}

	if len(items) == 0 {
		return "", fmt.Errorf("%w: empty list", ErrOutOfContract)
	}
	if len(items) == 1 && isNone(strings.TrimPrefix(items[0], "- ")) {
		return "None", nil
	}
	if c.MaxItems > 0 && len(items) > c.MaxItems {
		return "", fmt.Errorf("%w: list has %d items, limit is %d", ErrOutOfContract, len(items), c.MaxItems)
	}
	return strings.Join(items, "\n"), nil
}

// ExtractNames returns the distinct capitalized full names in text in order of
// first appearance.
func ExtractNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range namePattern.FindAllString(text, -1) {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func isNone(s string) bool {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), ".*"))
	return s == "none" || s == "n/a"
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
