package orchestrator

// Fixed sentences spoken in place of generated text
const (
	GreetingFormat       = "Hello! Thank you for calling %s. How can I help you today?"
	ConfirmationReply    = "Perfect! I've booked your appointment. You'll receive a confirmation shortly. Is there anything else I can help you with?"
	BookingTroubleReply  = "I apologize, but I'm having trouble booking your appointment right now. Let me have someone call you back to confirm the details."
	BookingDeferredReply = "I'd be happy to help you book an appointment. Let me have someone call you back to confirm the details."
	ApologyReply         = "I'm sorry, I'm having trouble answering right now. Could you please repeat that?"
	UnavailableReply     = "I'm sorry, this number is not currently available. Please try again later."
)

// Outcome classifies how a turn ended
type Outcome string

const (
	OutcomeGreeted           Outcome = "greeted"
	OutcomeAnswered          Outcome = "answered"
	OutcomeBooked            Outcome = "booked"
	OutcomeBookingFailed     Outcome = "booking_failed"
	OutcomeBookingDeferred   Outcome = "booking_deferred"
	OutcomeGenerationFailed  Outcome = "generation_failed"
	OutcomeTenantUnavailable Outcome = "tenant_unavailable"
)

// State of a call between and during turns
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateProcessing    State = "processing"
	StateResponding    State = "responding"
	StateBooking       State = "booking"
)
