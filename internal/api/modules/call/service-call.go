package call_module

import (
	"context"
	"errors"

	"github.com/ethanbaker/receptionist/internal/orchestrator"
	"github.com/ethanbaker/receptionist/pkg/sdk"
	"github.com/ethanbaker/receptionist/pkg/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// callService is shared by the module's handlers
var callService *service

type service struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// Init sets up the call module
func Init(orch *orchestrator.Orchestrator, logger *zap.Logger) {
	callService = &service{orch: orch, logger: logger.Named("call")}
}

// unavailable is the reply for calls to a number no active tenant owns
func unavailable(callID string) sdk.CallReply {
	return sdk.CallReply{
		CallID:  callID,
		Text:    orchestrator.UnavailableReply,
		Outcome: string(orchestrator.OutcomeTenantUnavailable),
		Hangup:  true,
	}
}

// resolve finds the tenant of a call, logging lookup failures other than a missing tenant
func (s *service) resolve(ctx context.Context, callID, tenantID, to string) (*tenant.Profile, bool) {
	profile, err := s.orch.ResolveTenant(ctx, tenantID, to)
	if err != nil {
		if !errors.Is(err, tenant.ErrNotFound) {
			s.logger.Error("Tenant lookup failed", zap.String("call_id", callID), zap.Error(err))
		}
		return nil, false
	}
	return profile, true
}

func (s *service) greet(ctx context.Context, req *sdk.IncomingCallRequest) sdk.CallReply {
	profile, ok := s.resolve(ctx, req.CallID, req.TenantID, req.To)
	if !ok {
		s.logger.Info("Call to unavailable number", zap.String("call_id", req.CallID), zap.String("to", req.To))
		return unavailable(req.CallID)
	}

	s.logger.Info("Incoming call",
		zap.String("call_id", req.CallID), zap.String("tenant_id", profile.ID), zap.String("from", req.From))

	return toReply(req.CallID, profile, s.orch.Greet(ctx, req.CallID, profile.ID))
}

func (s *service) speech(ctx context.Context, req *sdk.SpeechRequest) (sdk.CallReply, error) {
	profile, ok := s.resolve(ctx, req.CallID, req.TenantID, req.To)
	if !ok {
		return unavailable(req.CallID), nil
	}

	reply, err := s.orch.HandleUtterance(ctx, req.CallID, profile.ID, req.Utterance)
	if err != nil {
		return sdk.CallReply{}, err
	}

	return toReply(req.CallID, profile, reply), nil
}

// testConversation runs one utterance on a throwaway call
func (s *service) testConversation(ctx context.Context, req *sdk.TestConversationRequest) (sdk.CallReply, bool, error) {
	profile, ok := s.resolve(ctx, "", req.TenantID, "")
	if !ok {
		return sdk.CallReply{}, false, nil
	}

	callID := "test_" + profile.ID + "_" + uuid.NewString()
	defer func() {
		if err := s.orch.EndCall(context.WithoutCancel(ctx), callID); err != nil {
			s.logger.Warn("Failed to clean up test call", zap.String("call_id", callID), zap.Error(err))
		}
	}()

	reply, err := s.orch.HandleUtterance(ctx, callID, profile.ID, req.Message)
	if err != nil {
		return sdk.CallReply{}, true, err
	}

	return toReply(callID, profile, reply), true, nil
}

// toReply converts an orchestrator reply to the wire format
func toReply(callID string, profile *tenant.Profile, reply orchestrator.Reply) sdk.CallReply {
	out := sdk.CallReply{
		CallID:            callID,
		Text:              reply.Text,
		Outcome:           string(reply.Outcome),
		AppointmentBooked: reply.AppointmentBooked,
		Appointment:       reply.Appointment,
		Hangup:            reply.Outcome == orchestrator.OutcomeTenantUnavailable,
	}
	if profile != nil {
		out.TenantID = profile.ID
		out.VoiceID = profile.VoiceID
	}
	return out
}
