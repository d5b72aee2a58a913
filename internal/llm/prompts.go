package llm

import (
	"fmt"
	"strings"

	"github.com/teemow/workdigest/internal/pipeline"
)

const analystSystemPrompt = `You are a precise analyst of workplace documents, emails and meeting transcripts.
Follow the output format exactly. Do not add introductions, explanations or closing remarks.`

const selectSystemPrompt = `You select files that relate to a topic.
Answer with a JSON array of the numbers of the related files, for example [1, 4]. Answer [] if none relate.`

// maxInputRunes bounds the text sent with a single request.
const maxInputRunes = 24000

func stagePrompt(stage, text string, c pipeline.Constraints) []Message {
	var b strings.Builder
	b.WriteString(c.Instruction)
	if c.Instruction == "" {
		fmt.Fprintf(&b, "Perform the %s analysis of the following text.", stage)
	}
	if len(c.Labels) > 0 {
		fmt.Fprintf(&b, "\nThe answer must start with one of: %s.", strings.Join(c.Labels, ", "))
	}
	if c.Guidance != "" {
		b.WriteString("\n\n")
		b.WriteString(c.Guidance)
	}
	b.WriteString("\n\nText:\n")
	b.WriteString(clip(text, maxInputRunes))

	return []Message{
		{Role: "system", Content: analystSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func selectPrompt(topic string, names []string) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nFiles:\n", topic)
	for i, name := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return []Message{
		{Role: "system", Content: selectSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
