package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethanbaker/receptionist/pkg/appointment"
	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/ethanbaker/receptionist/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() tenant.Profile {
	return tenant.Profile{
		ID:           "smile",
		BusinessName: "Smile Dental",
		PhoneNumber:  "+15550001111",
		Industry:     "dentistry",
		Services:     "Cleanings, whitening",
		FAQ:          "Walk-ins on Fridays only.",
		Active:       true,
		Hours: map[string]tenant.Hours{
			"saturday": {Closed: true},
			"monday":   {Open: "09:00", Close: "17:00"},
			"tuesday":  {Open: "09:00", Close: "17:00"},
		},
	}
}

func turns(n int) []session.Turn {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := make([]session.Turn, n)
	for i := range out {
		role := session.RoleCaller
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		out[i] = session.Turn{
			CallID:    "CA1",
			Role:      role,
			Content:   fmt.Sprintf("turn-%02d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestCompose_Grounding(t *testing.T) {
	p := testProfile()
	got := Compose(Input{
		Profile: p,
		Snippets: []knowledge.Snippet{
			{Content: "Whitening costs $200.", Source: "prices.pdf", Score: 0.9},
			{Content: "Parking is behind the building.", Source: "faq.docx", Score: 0.5},
		},
		FAQ:     p.FAQ,
		History: turns(1),
	})

	assert.Contains(t, got.System, "You are an AI assistant representing Smile Dental.")
	assert.Contains(t, got.System, "- Industry: dentistry")
	assert.Contains(t, got.System, "Whitening costs $200.\nParking is behind the building.")
	assert.Contains(t, got.System, "Walk-ins on Fridays only.")
	assert.Contains(t, got.System, "\n  monday: 09:00-17:00\n  tuesday: 09:00-17:00\n  saturday: closed\n")
	assert.Contains(t, got.System, "- Phone: +15550001111")
	assert.Contains(t, got.System, DefaultInstructions)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, Message{Role: RoleUser, Content: "turn-00"}, got.Messages[0])
}

func TestCompose_EmptyGrounding(t *testing.T) {
	in := Input{Profile: tenant.Profile{ID: "bare", BusinessName: "Bare Shop"}}

	got := Compose(in)

	assert.Contains(t, got.System, "Relevant Knowledge Base:\nNo knowledge base entries available.")
	assert.Contains(t, got.System, "FAQs:\nNo FAQs available")
	assert.Contains(t, got.System, "- Business Hours: N/A")
	assert.Contains(t, got.System, "- Industry: N/A")
	assert.Contains(t, got.System, appointment.Marker)
	assert.NotNil(t, got.Messages)
	assert.Empty(t, got.Messages)

	// Blank snippets count as no grounding
	in.Snippets = []knowledge.Snippet{{Content: "   "}}
	assert.Equal(t, got, Compose(in))
}

func TestCompose_Deterministic(t *testing.T) {
	p := testProfile()
	for _, day := range []string{"wednesday", "thursday", "friday", "sunday", "holidays"} {
		p.Hours[day] = tenant.Hours{Open: "10:00", Close: "14:00"}
	}
	in := Input{Profile: p, FAQ: p.FAQ, History: turns(4)}

	first := Compose(in)
	for range 20 {
		assert.Equal(t, first, Compose(in))
	}
}

func TestCompose_HistoryTruncation(t *testing.T) {
	history := turns(12)

	got := Compose(Input{Profile: testProfile(), History: history})

	require.Len(t, got.Messages, MaxHistoryTurns)
	assert.Equal(t, "turn-02", got.Messages[0].Content)
	assert.Equal(t, "turn-11", got.Messages[len(got.Messages)-1].Content)
	for _, m := range got.Messages {
		assert.NotEqual(t, "turn-00", m.Content)
		assert.NotEqual(t, "turn-01", m.Content)
	}

	// Role mapping follows the turn roles
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, RoleAssistant, got.Messages[1].Role)

	// The input slice is untouched
	assert.Len(t, history, 12)
}

func TestCompose_InstructionsOverride(t *testing.T) {
	got := Compose(Input{
		Profile:      testProfile(),
		Instructions: "Speak like a pirate.",
	})

	assert.Contains(t, got.System, "Speak like a pirate.")
	assert.NotContains(t, got.System, DefaultInstructions)
	assert.Contains(t, got.System, DirectiveInstructions(), "directive contract cannot be overridden")
}

func TestDirectiveInstructions_UsesWireFieldNames(t *testing.T) {
	text := DirectiveInstructions()

	assert.True(t, strings.Contains(text, appointment.Marker+" {"))
	for _, field := range []string{"client_name", "phone_number", "preferred_date", "preferred_time", "service_type", "notes"} {
		assert.Contains(t, text, `"`+field+`"`)
	}
}
