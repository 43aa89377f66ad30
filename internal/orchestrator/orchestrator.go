// Package orchestrator runs the per-call conversation pipeline: record the utterance,
// ground and generate a reply, detect booking directives and dispatch them
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethanbaker/receptionist/internal/metrics"
	"github.com/ethanbaker/receptionist/pkg/appointment"
	"github.com/ethanbaker/receptionist/pkg/booking"
	"github.com/ethanbaker/receptionist/pkg/knowledge"
	"github.com/ethanbaker/receptionist/pkg/llm"
	"github.com/ethanbaker/receptionist/pkg/prompt"
	"github.com/ethanbaker/receptionist/pkg/session"
	"github.com/ethanbaker/receptionist/pkg/tenant"
	"go.uber.org/zap"
)

// ErrCallEnded is returned for a turn that was cancelled because the call hung up
var ErrCallEnded = errors.New("call ended")

const (
	DefaultHistoryLimit      = prompt.MaxHistoryTurns
	DefaultGenerationTimeout = 30 * time.Second
	DefaultRetrievalTimeout  = 10 * time.Second
	DefaultBookingTimeout    = 30 * time.Second
)

// Booker dispatches appointment requests
type Booker interface {
	Book(ctx context.Context, profile tenant.Profile, req appointment.Request, idempotencyKey string) booking.Result
}

// Config tunes the pipeline. Zero values fall back to the defaults
type Config struct {
	HistoryLimit      int
	TopK              int
	GenerationTimeout time.Duration
	RetrievalTimeout  time.Duration
	BookingTimeout    time.Duration
	Instructions      string // persona override passed to the prompt composer
}

func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.TopK <= 0 {
		c.TopK = knowledge.DefaultTopK
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if c.BookingTimeout <= 0 {
		c.BookingTimeout = DefaultBookingTimeout
	}
	return c
}

// Deps are the collaborators an Orchestrator drives
type Deps struct {
	Directory tenant.Directory
	Sessions  session.Store
	Retriever knowledge.Retriever
	Generator llm.Generator
	Booker    Booker
	Metrics   *metrics.Recorder // optional
	Logger    *zap.Logger       // optional
}

// Reply is what the telephony transport speaks back to the caller
type Reply struct {
	Text              string               `json:"text"`
	Outcome           Outcome              `json:"outcome"`
	AppointmentBooked bool                 `json:"appointment_booked"`
	Appointment       *appointment.Request `json:"appointment,omitempty"`
}

// call tracks one call identifier while turns for it are queued or running
type call struct {
	mu     sync.Mutex // held for a whole turn
	refs   int
	state  State
	cancel context.CancelCauseFunc
	ended  bool // set by EndCall; turns still queued on mu are dropped
}

// Orchestrator handles caller utterances. Turns of the same call run one at a time in
// arrival order; turns of different calls run concurrently
type Orchestrator struct {
	directory tenant.Directory
	sessions  session.Store
	retriever knowledge.Retriever
	generator llm.Generator
	booker    Booker
	metrics   *metrics.Recorder
	logger    *zap.Logger
	cfg       Config

	mu    sync.Mutex
	calls map[string]*call
}

// New creates an orchestrator
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Directory == nil:
		return nil, fmt.Errorf("tenant directory is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session store is required")
	case deps.Retriever == nil:
		return nil, fmt.Errorf("knowledge retriever is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("response generator is required")
	case deps.Booker == nil:
		return nil, fmt.Errorf("booking dispatcher is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		directory: deps.Directory,
		sessions:  deps.Sessions,
		retriever: deps.Retriever,
		generator: deps.Generator,
		booker:    deps.Booker,
		metrics:   deps.Metrics,
		logger:    logger.Named("orchestrator"),
		cfg:       cfg.withDefaults(),
		calls:     make(map[string]*call),
	}, nil
}

// ResolveTenant finds a tenant by identifier, or by the dialled number when no
// identifier is given
func (o *Orchestrator) ResolveTenant(ctx context.Context, tenantID, phoneNumber string) (*tenant.Profile, error) {
	tenantID = strings.TrimSpace(tenantID)
	phoneNumber = strings.TrimSpace(phoneNumber)

	var (
		profile *tenant.Profile
		err     error
	)
	switch {
	case tenantID != "":
		profile, err = o.directory.Get(ctx, tenantID)
	case phoneNumber != "":
		profile, err = o.directory.GetByPhone(ctx, phoneNumber)
	default:
		return nil, fmt.Errorf("no tenant identifier or phone number given: %w", tenant.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.Active {
		return nil, tenant.ErrNotFound
	}

	return profile, nil
}

// Greet opens a call with the tenant's greeting, recording it as the first assistant turn
func (o *Orchestrator) Greet(ctx context.Context, callID, tenantID string) Reply {
	profile, err := o.ResolveTenant(ctx, tenantID, "")
	if err != nil {
		o.logger.Warn("Tenant unavailable for incoming call",
			zap.String("call_id", callID), zap.String("tenant_id", tenantID), zap.Error(err))
		return Reply{Text: UnavailableReply, Outcome: OutcomeTenantUnavailable}
	}

	text := fmt.Sprintf(GreetingFormat, profile.BusinessName)

	c := o.acquire(callID)
	defer o.release(callID, c)

	if o.isEnded(c) {
		return Reply{Text: text, Outcome: OutcomeGreeted}
	}

	if _, err := o.sessions.Append(ctx, callID, profile.ID, session.RoleAssistant, text); err != nil {
		o.logger.Warn("Failed to record greeting", zap.String("call_id", callID), zap.Error(err))
	}

	return Reply{Text: text, Outcome: OutcomeGreeted}
}

// HandleUtterance runs one caller turn and returns the reply to speak. Every pipeline
// failure is turned into a fixed sentence; the only error is ErrCallEnded
func (o *Orchestrator) HandleUtterance(ctx context.Context, callID, tenantID, utterance string) (Reply, error) {
	start := time.Now()
	logger := o.logger.With(zap.String("call_id", callID), zap.String("tenant_id", tenantID))

	profile, err := o.ResolveTenant(ctx, tenantID, "")
	if err != nil {
		logger.Warn("Tenant unavailable", zap.Error(err))
		reply := Reply{Text: UnavailableReply, Outcome: OutcomeTenantUnavailable}
		o.metrics.ObserveTurn(string(reply.Outcome), time.Since(start))
		return reply, nil
	}

	c := o.acquire(callID)
	defer o.release(callID, c)

	turnCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if !o.begin(c, cancel) {
		logger.Info("Dropping turn queued behind the end of the call")
		return Reply{}, ErrCallEnded
	}

	// 1. Record the utterance
	if _, err := o.sessions.Append(turnCtx, callID, profile.ID, session.RoleCaller, utterance); err != nil {
		logger.Warn("Failed to record caller turn", zap.Error(err))
	}
	if ended(turnCtx) {
		// EndCall may have evicted the session before the append recreated it
		if err := o.sessions.End(context.WithoutCancel(ctx), callID); err != nil {
			logger.Warn("Failed to evict ended session", zap.Error(err))
		}
		return Reply{}, ErrCallEnded
	}

	// 2. Recent history, ending with the utterance
	history, err := o.sessions.History(turnCtx, callID, o.cfg.HistoryLimit)
	if err != nil || len(history) == 0 {
		if err != nil {
			logger.Warn("Failed to load history, continuing with the utterance only", zap.Error(err))
		}
		history = []session.Turn{{CallID: callID, Role: session.RoleCaller, Content: utterance, Timestamp: time.Now()}}
	}

	// 3. Grounding
	snippets := o.retrieve(turnCtx, logger, profile.ID, utterance)

	// 4. Generation
	p := prompt.Compose(prompt.Input{
		Profile:      *profile,
		Snippets:     snippets,
		FAQ:          profile.FAQ,
		History:      history,
		Instructions: o.cfg.Instructions,
	})

	var reply Reply
	raw, err := o.generate(turnCtx, p)
	switch {
	case err != nil:
		if ended(turnCtx) {
			return Reply{}, ErrCallEnded
		}
		logger.Error("Response generation failed", zap.Error(err))
		reply = Reply{Text: ApologyReply, Outcome: OutcomeGenerationFailed}

	// 5. Booking directive
	case appointment.HasDirective(raw):
		o.setState(c, StateBooking)
		reply = o.book(turnCtx, logger, callID, *profile, raw)

	// 6. Plain answer
	default:
		o.setState(c, StateResponding)
		reply = Reply{Text: raw, Outcome: OutcomeAnswered}
	}

	if ended(turnCtx) {
		return Reply{}, ErrCallEnded
	}

	// 7. Record the reply actually spoken
	if _, err := o.sessions.Append(turnCtx, callID, profile.ID, session.RoleAssistant, reply.Text); err != nil {
		logger.Warn("Failed to record assistant turn", zap.Error(err))
	}

	logger.Info("Turn completed",
		zap.String("outcome", string(reply.Outcome)),
		zap.Int("snippets", len(snippets)),
		zap.Duration("duration", time.Since(start)))
	o.metrics.ObserveTurn(string(reply.Outcome), time.Since(start))

	// 8. Hand the reply back to the transport
	return reply, nil
}

// EndCall cancels any in-flight turn of the call, drops turns queued behind it and
// evicts its session
func (o *Orchestrator) EndCall(ctx context.Context, callID string) error {
	o.mu.Lock()
	if c, ok := o.calls[callID]; ok {
		c.ended = true
		if c.cancel != nil {
			c.cancel(ErrCallEnded)
		}
	}
	o.mu.Unlock()

	if err := o.sessions.End(ctx, callID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	o.logger.Info("Call ended", zap.String("call_id", callID))
	return nil
}

// Transcript returns the stored session of a call
func (o *Orchestrator) Transcript(ctx context.Context, callID string) (*session.Session, error) {
	return o.sessions.Get(ctx, callID)
}

// State reports where a call is in the turn state machine. Unknown calls await input
func (o *Orchestrator) State(callID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.calls[callID]; ok {
		return c.state
	}
	return StateAwaitingInput
}

func (o *Orchestrator) retrieve(ctx context.Context, logger *zap.Logger, tenantID, query string) []knowledge.Snippet {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()

	start := time.Now()
	snippets, err := o.retriever.Search(ctx, tenantID, query, o.cfg.TopK)
	o.metrics.ObserveStep("retrieval", time.Since(start))

	if err != nil {
		logger.Warn("Knowledge retrieval unavailable, continuing without grounding", zap.Error(err))
		return []knowledge.Snippet{}
	}
	return snippets
}

func (o *Orchestrator) generate(ctx context.Context, p prompt.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	raw, err := o.generator.Generate(ctx, p)
	o.metrics.ObserveStep("generation", time.Since(start))

	return raw, err
}

func (o *Orchestrator) book(ctx context.Context, logger *zap.Logger, callID string, profile tenant.Profile, raw string) Reply {
	req, err := appointment.Parse(raw)
	if err != nil {
		logger.Warn("Malformed booking directive", zap.String("raw", raw), zap.Error(err))
		return Reply{Text: BookingDeferredReply, Outcome: OutcomeBookingDeferred}
	}

	bookCtx, cancel := context.WithTimeout(ctx, o.cfg.BookingTimeout)
	defer cancel()

	start := time.Now()
	result := o.booker.Book(bookCtx, profile, req, booking.IdempotencyKey(callID, req))
	o.metrics.ObserveStep("booking", time.Since(start))
	o.metrics.ObserveBooking(result.Success)

	if !result.Success {
		logger.Warn("Booking dispatch failed", zap.String("reason", result.Reason))
		return Reply{Text: BookingTroubleReply, Outcome: OutcomeBookingFailed, Appointment: &req}
	}

	if err := o.sessions.MarkBooked(ctx, callID); err != nil {
		logger.Warn("Failed to mark session as booked", zap.Error(err))
	}
	logger.Info("Appointment booked", zap.String("client_name", req.ClientName), zap.String("date", req.PreferredDate))

	return Reply{Text: ConfirmationReply, Outcome: OutcomeBooked, AppointmentBooked: true, Appointment: &req}
}

// acquire takes the per-call turn lock, registering the call while it is held or waited on
func (o *Orchestrator) acquire(callID string) *call {
	o.mu.Lock()
	c, ok := o.calls[callID]
	if !ok {
		c = &call{state: StateAwaitingInput}
		o.calls[callID] = c
	}
	c.refs++
	o.mu.Unlock()

	c.mu.Lock()
	return c
}

func (o *Orchestrator) release(callID string, c *call) {
	o.mu.Lock()
	c.state = StateAwaitingInput
	c.cancel = nil
	c.refs--
	if c.refs == 0 {
		delete(o.calls, callID)
	}
	o.mu.Unlock()

	c.mu.Unlock()
}

func (o *Orchestrator) setState(c *call, state State) {
	o.mu.Lock()
	c.state = state
	o.mu.Unlock()
}

// begin registers the turn's cancel func and moves it to Processing, unless the call
// already ended
func (o *Orchestrator) begin(c *call, cancel context.CancelCauseFunc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c.ended {
		return false
	}
	c.cancel = cancel
	c.state = StateProcessing
	return true
}

func (o *Orchestrator) isEnded(c *call) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return c.ended
}

// ended reports whether the turn was cancelled by EndCall
func ended(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrCallEnded)
}
