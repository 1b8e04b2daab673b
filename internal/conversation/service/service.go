// Package service orchestrates one conversation turn: gate on pauses, hold
// the per-conversation lock, run the configured AI provider, and deliver the
// reply back through Support Board.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"battbot_backend/internal/conversation/engine"
	"battbot_backend/internal/conversation/repository"
	"battbot_backend/internal/conversation/transport"
	"battbot_backend/internal/supportboard"
	"battbot_backend/platform/config"
	"battbot_backend/platform/logger"
	"battbot_backend/platform/redislock"
)

// webhookFunctionMessageSent is the only Support Board webhook function that
// triggers processing.
const webhookFunctionMessageSent = "message-sent"

// replyConfiguration is sent when the AI provider cannot be constructed.
// Provider configuration errors never reach the customer verbatim.
const replyConfiguration = "Error de configuración del servidor de IA. Por favor, contacta a un agente de soporte."

// lockLeaseMargin is added to the run timeout so the lock outlives the
// longest possible provider run before auto-expiring.
const lockLeaseMargin = 10 * time.Second

// Ack statuses returned to Support Board. Deliveries are always acknowledged
// with HTTP 200; the status describes what was done with the event.
const (
	AckQueued  = "queued"
	AckIgnored = "ignored"
	AckPaused  = "paused"
	AckSkipped = "skipped"
	AckError   = "error"
)

// ProviderFactory builds the AI provider selected by configuration.
type ProviderFactory interface {
	Build() (engine.Provider, error)
}

// BoardClient is the Support Board surface the service needs.
type BoardClient interface {
	GetConversation(ctx context.Context, conversationID string) (*supportboard.Conversation, error)
	SendBotMessage(ctx context.Context, conversationID, text string) error
	BotUserID() string
}

// ProcessRequest identifies a conversation turn to run asynchronously.
type ProcessRequest struct {
	ConversationID string `json:"conversation_id"`
	CustomerUserID string `json:"customer_user_id"`
	Source         string `json:"source"`
}

// Enqueuer hands a conversation turn to the background worker.
type Enqueuer interface {
	EnqueueProcess(ctx context.Context, req ProcessRequest) error
}

// Service implements webhook triage and conversation processing.
type Service struct {
	repo     repository.Repository
	locker   *redislock.Locker
	factory  ProviderFactory
	board    BoardClient
	enqueuer Enqueuer
	cfg      config.AIProviderConfig
	agentIDs map[string]struct{}
	log      *logger.Logger
}

// New creates the conversation service. agentIDs lists the Support Board user
// ids of human agents whose messages trigger an explicit takeover pause.
func New(
	repo repository.Repository,
	locker *redislock.Locker,
	factory ProviderFactory,
	board BoardClient,
	enqueuer Enqueuer,
	cfg config.AIProviderConfig,
	agentIDs []string,
	log *logger.Logger,
) *Service {
	agents := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		if id = strings.TrimSpace(id); id != "" {
			agents[id] = struct{}{}
		}
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		factory:  factory,
		board:    board,
		enqueuer: enqueuer,
		cfg:      cfg,
		agentIDs: agents,
		log:      log,
	}
}

// HandleWebhook triages one Support Board delivery. Every outcome is an
// acknowledgement; Support Board retries non-200 responses, so even malformed
// payloads report their problem in the body.
func (s *Service) HandleWebhook(ctx context.Context, env transport.WebhookEnvelope) transport.WebhookAck {
	if env.Function != webhookFunctionMessageSent {
		return transport.WebhookAck{Status: AckIgnored, Detail: "unsupported function"}
	}

	conversationID := string(env.Data.ConversationID)
	sender := string(env.Data.SenderUserID)
	customer := string(env.Data.ConversationUserID)
	if conversationID == "" || sender == "" {
		return transport.WebhookAck{Status: AckError, Detail: "missing conversation_id or user_id"}
	}

	log := s.log.WithConversationID(conversationID)

	switch {
	case sender == s.board.BotUserID():
		// Our own outbound message echoed back through the webhook.
		return transport.WebhookAck{Status: AckIgnored, Detail: "bot echo"}

	case s.isHumanAgent(sender):
		if err := s.repo.PauseFor(ctx, conversationID, s.cfg.GetHumanTakeoverPause()); err != nil {
			log.Error("pause conversation", "error", err, "sender_user_id", sender)
			return transport.WebhookAck{Status: AckError, Detail: "pause failed"}
		}
		log.Info("conversation paused for human agent", "sender_user_id", sender)
		return transport.WebhookAck{Status: AckPaused}

	case sender == customer:
		paused, err := s.repo.IsPaused(ctx, conversationID)
		if err != nil {
			log.Error("pause lookup", "error", err)
			return transport.WebhookAck{Status: AckError, Detail: "pause lookup failed"}
		}
		if paused {
			return transport.WebhookAck{Status: AckSkipped, Detail: "conversation paused"}
		}
		if s.humanHandled(ctx, conversationID, customer, log) {
			return transport.WebhookAck{Status: AckSkipped, Detail: "handled by human agent"}
		}
		req := ProcessRequest{
			ConversationID: conversationID,
			CustomerUserID: customer,
			Source:         env.Data.ConversationSource,
		}
		if err := s.enqueuer.EnqueueProcess(ctx, req); err != nil {
			log.Error("enqueue conversation turn", "error", err)
			return transport.WebhookAck{Status: AckError, Detail: "enqueue failed"}
		}
		return transport.WebhookAck{Status: AckQueued}

	default:
		// A sender that is neither bot, known agent, nor the conversation
		// owner. Assume a human picked up under an unknown account.
		if err := s.repo.PauseFor(ctx, conversationID, s.cfg.GetHumanTakeoverPause()); err != nil {
			log.Error("pause conversation", "error", err, "sender_user_id", sender)
			return transport.WebhookAck{Status: AckError, Detail: "pause failed"}
		}
		log.Info("conversation paused for unrecognized sender", "sender_user_id", sender)
		return transport.WebhookAck{Status: AckPaused}
	}
}

// ProcessMessage runs one full conversation turn. It is the background task
// handler: a nil return means the event is consumed, an error asks the queue
// to retry.
func (s *Service) ProcessMessage(ctx context.Context, conversationID string) error {
	log := s.log.WithConversationID(conversationID)

	// The pause may have been set while the task waited in the queue, so the
	// check runs again here, before any lock is taken.
	paused, err := s.repo.IsPaused(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("pause lookup for conversation %s: %w", conversationID, err)
	}
	if paused {
		log.Info("skipping paused conversation")
		return nil
	}

	lease := s.cfg.GetRunTimeout() + lockLeaseMargin
	lock, err := s.locker.Acquire(ctx, lockKey(conversationID), lease, s.cfg.GetLockAcquireTimeout())
	if errors.Is(err, redislock.ErrNotAcquired) {
		// Another worker holds the turn. The holder sees the full transcript
		// when it fetches history, so this event is safe to drop.
		s.log.LockTimeout(conversationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire lock for conversation %s: %w", conversationID, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release conversation lock", "error", err)
		}
	}()

	provider, err := s.factory.Build()
	if err != nil {
		// Misconfiguration does not heal on retry. Apologize and consume.
		log.Error("build AI provider", "error", err)
		if sendErr := s.board.SendBotMessage(ctx, conversationID, replyConfiguration); sendErr != nil {
			log.Error("send configuration apology", "error", sendErr)
		}
		return nil
	}

	conv, err := s.board.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("fetch conversation %s: %w", conversationID, err)
	}

	reply, err := provider.ProcessMessage(ctx, buildEngineConversation(conv, s.board.BotUserID()))
	if err != nil {
		return fmt.Errorf("provider %s on conversation %s: %w", provider.Name(), conversationID, err)
	}
	if strings.TrimSpace(reply) == "" {
		log.Info("provider produced no reply, nothing to send", "provider", provider.Name())
		return nil
	}

	if err := s.board.SendBotMessage(ctx, conversationID, reply); err != nil {
		// Retrying the task would re-run the whole AI turn, so delivery
		// failures are logged and the event is consumed.
		log.Error("send bot reply", "error", err)
	}
	return nil
}

// PauseConversation pauses the bot for the configured human takeover window.
func (s *Service) PauseConversation(ctx context.Context, conversationID string) error {
	return s.repo.PauseFor(ctx, conversationID, s.cfg.GetHumanTakeoverPause())
}

// GetPause returns the active or expired pause record for a conversation.
func (s *Service) GetPause(ctx context.Context, conversationID string) (*repository.ConversationPause, error) {
	return s.repo.GetPause(ctx, conversationID)
}

// Unpause resumes the bot for a conversation immediately.
func (s *Service) Unpause(ctx context.Context, conversationID string) error {
	return s.repo.Unpause(ctx, conversationID)
}

func (s *Service) isHumanAgent(userID string) bool {
	_, ok := s.agentIDs[userID]
	return ok
}

// humanHandled reports whether the most recent non-customer message in the
// conversation came from someone other than the bot. That is an implicit
// takeover: an agent replied without being in the configured agent list.
func (s *Service) humanHandled(ctx context.Context, conversationID, customerUserID string, log *logger.Logger) bool {
	conv, err := s.board.GetConversation(ctx, conversationID)
	if err != nil {
		// The per-conversation lock and the explicit pause still guard the
		// turn, so a failed lookup does not block processing.
		log.Warn("takeover scan failed, proceeding", "error", err)
		return false
	}

	botID := s.board.BotUserID()
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		sender := string(conv.Messages[i].UserID)
		if sender == customerUserID {
			continue
		}
		return sender != botID
	}
	return false
}

// buildEngineConversation maps a Support Board conversation onto the neutral
// transcript the providers consume. Messages from the bot become assistant
// turns; everything else reads as the user side of the dialogue.
func buildEngineConversation(conv *supportboard.Conversation, botUserID string) engine.Conversation {
	customerID := string(conv.Details.UserID)

	transcript := make([]engine.TranscriptMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			continue
		}
		role := engine.RoleUser
		if string(msg.UserID) == botUserID {
			role = engine.RoleAssistant
		}
		transcript = append(transcript, engine.TranscriptMessage{Role: role, Text: text})
	}

	return engine.Conversation{
		ID:                  string(conv.Details.ID),
		CustomerUserID:      customerID,
		Source:              conv.Details.Source,
		Transcript:          transcript,
		PendingCustomerText: pendingCustomerText(conv.Messages, customerID),
	}
}

// pendingCustomerText bundles the contiguous run of customer messages at the
// tail of the conversation into one prompt. Customers often split a thought
// across several quick messages; the run ends at the first message from
// anyone else.
func pendingCustomerText(messages []supportboard.Message, customerUserID string) string {
	var parts []string
	for i := len(messages) - 1; i >= 0; i-- {
		if string(messages[i].UserID) != customerUserID {
			break
		}
		if text := strings.TrimSpace(messages[i].Message); text != "" {
			parts = append(parts, text)
		}
	}
	// Collected newest first, restore chronological order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}

func lockKey(conversationID string) string {
	return "lock:conv:" + conversationID
}
