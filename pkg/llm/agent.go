package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/receptionist/pkg/prompt"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// silentCaller stands in for an empty utterance so the agent always has input
const silentCaller = "(the caller said nothing)"

// AgentGenerator runs the prompt through an openai-agents-go agent. The agent reads its
// API key from OPENAI_API_KEY
type AgentGenerator struct {
	model string
}

// NewAgentGenerator creates an agent backed generator
func NewAgentGenerator(model string) *AgentGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &AgentGenerator{model: model}
}

// Generate implements Generator
func (g *AgentGenerator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	instructions, input := agentInput(p)

	agent := agents.New("receptionist").
		WithInstructions(instructions).
		WithModel(g.model)

	result, err := agents.Run(ctx, agent, input)
	if err != nil {
		return "", classify(KindTransport, err)
	}
	if result == nil || result.FinalOutput == nil {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("agent returned no output")}
	}

	content := fmt.Sprint(result.FinalOutput)
	if strings.TrimSpace(content) == "" {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("agent returned empty output")}
	}

	return content, nil
}

// agentInput splits a prompt into agent instructions and the current input. Everything
// before the final caller message is replayed as a transcript inside the instructions
func agentInput(p prompt.Prompt) (string, string) {
	messages := p.Messages
	input := silentCaller

	if n := len(messages); n > 0 && messages[n-1].Role == prompt.RoleUser {
		if text := strings.TrimSpace(messages[n-1].Content); text != "" {
			input = text
		}
		messages = messages[:n-1]
	}

	if len(messages) == 0 {
		return p.System, input
	}

	var b strings.Builder
	b.WriteString(p.System)
	b.WriteString("\nConversation so far:\n")
	for _, m := range messages {
		speaker := "Caller"
		if m.Role == prompt.RoleAssistant {
			speaker = "You"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}

	return b.String(), input
}
