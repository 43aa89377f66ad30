// Package prompt builds the grounding prompt sent to the language model
package prompt

import (
	"fmt"
	"strings"

	"github.com/ethanbaker/receptionist/pkg/appointment"
	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/ethanbaker/receptionist/pkg/tenant"
)

// MaxHistoryTurns bounds how much of the call is replayed to the model
const MaxHistoryTurns = 10

// DefaultInstructions is the receptionist persona used when no override is configured
const DefaultInstructions = `Instructions:
1. You are a professional, friendly receptionist for this business
2. Answer questions using the knowledge base and business information provided
3. If someone wants to book an appointment, collect: name, phone, preferred date/time, service type
4. Always stay in character as a representative of this business
5. Be helpful, professional, and concise; your reply is read aloud over the phone
6. If you don't know something, say you'll have someone get back to them
7. For appointment booking, confirm details before proceeding`

// Role of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational message replayed to the model
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the complete model input: a system message and the recent conversation
type Prompt struct {
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
}

// Input gathers everything a prompt is grounded on
type Input struct {
	Profile      tenant.Profile
	Snippets     []knowledge.Snippet
	FAQ          string
	History      []session.Turn
	Instructions string // overrides DefaultInstructions when set
}

// Compose builds the prompt for a turn. It has no side effects and the same input always
// produces the same prompt
func Compose(in Input) Prompt {
	var b strings.Builder

	p := in.Profile
	fmt.Fprintf(&b, "You are an AI assistant representing %s.\n\n", p.BusinessName)

	b.WriteString("Business Information:\n")
	fmt.Fprintf(&b, "- Business Name: %s\n", p.BusinessName)
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(p.Industry))
	fmt.Fprintf(&b, "- Services: %s\n", orNA(p.Services))
	fmt.Fprintf(&b, "- Business Hours:%s\n", renderHours(p))
	fmt.Fprintf(&b, "- Phone: %s\n\n", orNA(p.PhoneNumber))

	b.WriteString("Relevant Knowledge Base:\n")
	b.WriteString(renderSnippets(in.Snippets))
	b.WriteString("\n\n")

	b.WriteString("FAQs:\n")
	if faq := strings.TrimSpace(in.FAQ); faq != "" {
		b.WriteString(faq)
	} else {
		b.WriteString("No FAQs available")
	}
	b.WriteString("\n\n")

	instructions := strings.TrimSpace(in.Instructions)
	if instructions == "" {
		instructions = DefaultInstructions
	}
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(DirectiveInstructions())

	return Prompt{
		System:   b.String(),
		Messages: messages(in.History),
	}
}

// DirectiveInstructions tells the model how to hand a booking over to the system
func DirectiveInstructions() string {
	example, _ := appointment.Encode(appointment.Request{
		ClientName:    "<caller name>",
		PhoneNumber:   "<callback number>",
		PreferredDate: "<date>",
		PreferredTime: "<time>",
		ServiceType:   "<service, optional>",
		Notes:         "<notes, optional>",
	})

	return "Booking:\n" +
		"Once the caller has confirmed the details of an appointment, reply with nothing but the line\n" +
		example + "\n" +
		"using exactly these JSON field names. Do not add any other text before or after the JSON object.\n"
}

// messages converts the last MaxHistoryTurns turns into chat messages
func messages(history []session.Turn) []Message {
	tail := session.Tail(history, MaxHistoryTurns)

	out := make([]Message, 0, len(tail))
	for _, turn := range tail {
		role := RoleUser
		if turn.Role == session.RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: turn.Content})
	}
	return out
}

func renderHours(p tenant.Profile) string {
	days := p.HoursDays()
	if len(days) == 0 {
		return " N/A"
	}

	var b strings.Builder
	for _, day := range days {
		h := p.Hours[day]
		switch {
		case h.Closed:
			fmt.Fprintf(&b, "\n  %s: closed", day)
		case h.Open == "" && h.Close == "":
			fmt.Fprintf(&b, "\n  %s: N/A", day)
		default:
			fmt.Fprintf(&b, "\n  %s: %s-%s", day, h.Open, h.Close)
		}
	}
	return b.String()
}

func renderSnippets(snippets []knowledge.Snippet) string {
	var parts []string
	for _, s := range snippets {
		if content := strings.TrimSpace(s.Content); content != "" {
			parts = append(parts, content)
		}
	}

	if len(parts) == 0 {
		return "No knowledge base entries available."
	}
	return strings.Join(parts, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
