package tutor

import (
	"fmt"
	"strings"

	"github.com/echolearn/go-tutor/llm"
	"github.com/echolearn/go-tutor/memory"
)

// Passage is one retrieved excerpt handed to the composer.
type Passage struct {
	Text  string
	Score float64
}

// Composer assembles the bounded generation prompt. MaxChars must not
// exceed the generation capability's input limit; when the assembled prompt
// would, the composer truncates oldest memory turns first, then retrieved
// passages, and never the current question.
type Composer struct {
	MaxChars         int
	MaxPassages      int
	PassageCharLimit int
}

const systemPrompt = "You are EchoLearn, a patient voice tutor. Ground your answer in the " +
	"supplied study material excerpts when they are relevant, citing them as " +
	"[Excerpt N]. When no excerpt helps, answer from general knowledge and " +
	"say so. Keep answers clear and conversational: they may be read aloud."

// Compose builds the chat messages for one question.
func (c Composer) Compose(passages []Passage, history []memory.Turn, question string) []llm.Message {
	passages = c.capPassages(passages)

	for {
		messages := build(passages, history, question)
		if c.MaxChars <= 0 || promptSize(messages) <= c.MaxChars {
			return messages
		}
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		if len(passages) > 0 {
			passages = passages[:len(passages)-1]
			continue
		}
		// Only the question is left; it is never truncated.
		return messages
	}
}

func (c Composer) capPassages(passages []Passage) []Passage {
	if c.MaxPassages > 0 && len(passages) > c.MaxPassages {
		passages = passages[:c.MaxPassages]
	}
	if c.PassageCharLimit <= 0 {
		return passages
	}

	capped := make([]Passage, len(passages))
	for i, p := range passages {
		if len(p.Text) > c.PassageCharLimit {
			p.Text = p.Text[:c.PassageCharLimit] + "..."
		}
		capped[i] = p
	}
	return capped
}

func build(passages []Passage, history []memory.Turn, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)*2+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: formatUserPrompt(passages, question)})
	return messages
}

func formatUserPrompt(passages []Passage, question string) string {
	var sb strings.Builder
	if len(passages) > 0 {
		sb.WriteString("Study material excerpts:\n")
		for i, p := range passages {
			sb.WriteString(fmt.Sprintf("[Excerpt %d]\n%s\n\n", i+1, p.Text))
		}
	}
	sb.WriteString("Question:\n")
	sb.WriteString(question)
	return sb.String()
}

func promptSize(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}
