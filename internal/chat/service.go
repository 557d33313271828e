// Package chat implements the retrieval-augmented chat engine. One Send call
// is one turn: persist the user message, assemble grounding context, call
// the model with a short conversation window, persist the reply.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cloud-companion/cloud-companion/internal/apperrors"
	"github.com/cloud-companion/cloud-companion/internal/llm"
	"github.com/cloud-companion/cloud-companion/internal/models"
	"github.com/cloud-companion/cloud-companion/internal/telemetry"
	"github.com/cloud-companion/cloud-companion/internal/vector"
)

const (
	// MaxMessageLength bounds a single user message.
	MaxMessageLength = 5000

	// messageWindow is the number of recent messages sent to the model.
	messageWindow = 5

	// autoTitleLength caps conversation titles derived from the first message.
	autoTitleLength = 60

	// placeholderConfidence is returned until a real scoring signal exists.
	placeholderConfidence = 0.95
)

// ConversationStore is the slice of the conversation repository the engine
// needs.
type ConversationStore interface {
	Create(ctx context.Context, orgID, title string) (*models.Conversation, error)
	GetByID(ctx context.Context, orgID, id string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, orgID, conversationID, role, content string) (*models.Message, error)
	RecentMessages(ctx context.Context, orgID, conversationID string, limit int) ([]*models.Message, error)
}

// ResourceStore fetches org-scoped resources for explicit grounding.
type ResourceStore interface {
	GetByID(ctx context.Context, orgID, id string) (*models.CloudResource, error)
}

// Generator produces replies and embeddings.
type Generator interface {
	Complete(ctx context.Context, messages []llm.Message, grounding string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs org-filtered semantic search.
type Searcher interface {
	SearchResources(ctx context.Context, orgID string, vec []float32, limit int) ([]vector.Hit, error)
}

// Request is one inbound chat turn.
type Request struct {
	Message        string
	ConversationID string
	ResourceIDs    []string
}

// Reply is the engine's answer to one turn.
type Reply struct {
	ConversationID string
	MessageID      string
	Content        string
	Confidence     float64
}

// Service is the chat engine.
type Service struct {
	conversations ConversationStore
	resources     ResourceStore
	generator     Generator
	searcher      Searcher
}

// NewService creates a new chat Service. searcher may be nil, which disables
// the semantic grounding path.
func NewService(conversations ConversationStore, resources ResourceStore, generator Generator, searcher Searcher) *Service {
	return &Service{
		conversations: conversations,
		resources:     resources,
		generator:     generator,
		searcher:      searcher,
	}
}

// Send processes one chat turn for the organization.
//
// The user message is persisted before anything can fail downstream, so a
// model outage never loses user input. Grounding assembly and the history
// fetch degrade gracefully: a failed resource fetch or vector search is
// logged and skipped, a failed history read shrinks the window to the
// current turn. Only persistence and generation failures abort the turn.
func (s *Service) Send(ctx context.Context, orgID string, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		telemetry.ChatTurnsTotal.WithLabelValues("validation").Inc()
		return nil, apperrors.Validation("message must not be empty")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		telemetry.ChatTurnsTotal.WithLabelValues("validation").Inc()
		return nil, apperrors.Validation("message exceeds maximum length")
	}

	conversationID, err := s.resolveConversation(ctx, orgID, req.ConversationID, message)
	if err != nil {
		return nil, err
	}

	// Persist the user message first. Everything after this point may fail
	// without losing what the user said.
	userMsg, err := s.conversations.AppendMessage(ctx, orgID, conversationID, models.RoleUser, message)
	if err != nil {
		telemetry.ChatTurnsTotal.WithLabelValues("store_error").Inc()
		return nil, apperrors.Store(err)
	}
	if userMsg == nil {
		telemetry.ChatTurnsTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.NotFound("conversation")
	}

	grounding := s.assembleGrounding(ctx, orgID, message, req.ResourceIDs)

	// History is best effort. When the window cannot be fetched the model
	// still sees the current user turn, just without earlier context.
	window, err := s.conversations.RecentMessages(ctx, orgID, conversationID, messageWindow)
	if err != nil {
		slog.Warn("Proceeding without conversation history",
			"conversation_id", conversationID, "error", err)
		window = []*models.Message{userMsg}
	}

	modelMessages := make([]llm.Message, 0, len(window))
	for _, m := range window {
		modelMessages = append(modelMessages, llm.Message{Role: m.Role, Content: m.Content})
	}

	replyText, err := s.generator.Complete(ctx, modelMessages, grounding)
	if err != nil {
		telemetry.ChatTurnsTotal.WithLabelValues("generation_error").Inc()
		return nil, apperrors.Generation(err)
	}

	assistantMsg, err := s.conversations.AppendMessage(ctx, orgID, conversationID, models.RoleAssistant, replyText)
	if err != nil {
		telemetry.ChatTurnsTotal.WithLabelValues("store_error").Inc()
		return nil, apperrors.Store(err)
	}
	if assistantMsg == nil {
		telemetry.ChatTurnsTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.NotFound("conversation")
	}

	telemetry.ChatTurnsTotal.WithLabelValues("ok").Inc()
	return &Reply{
		ConversationID: conversationID,
		MessageID:      assistantMsg.ID,
		Content:        replyText,
		Confidence:     placeholderConfidence,
	}, nil
}

// StartConversation opens a new thread with an explicit title.
func (s *Service) StartConversation(ctx context.Context, orgID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}
	conv, err := s.conversations.Create(ctx, orgID, title)
	if err != nil {
		return nil, apperrors.Store(err)
	}
	if conv == nil {
		return nil, apperrors.NotFound("organization")
	}
	return conv, nil
}

// resolveConversation returns the id of the conversation this turn belongs
// to. An empty id starts a fresh conversation titled from the message; an
// unknown or foreign id is NotFound, never silently recreated.
func (s *Service) resolveConversation(ctx context.Context, orgID, conversationID, message string) (string, error) {
	if conversationID == "" {
		conv, err := s.conversations.Create(ctx, orgID, autoTitle(message))
		if err != nil {
			telemetry.ChatTurnsTotal.WithLabelValues("store_error").Inc()
			return "", apperrors.Store(err)
		}
		if conv == nil {
			telemetry.ChatTurnsTotal.WithLabelValues("not_found").Inc()
			return "", apperrors.NotFound("organization")
		}
		return conv.ID, nil
	}

	conv, err := s.conversations.GetByID(ctx, orgID, conversationID)
	if err != nil {
		telemetry.ChatTurnsTotal.WithLabelValues("store_error").Inc()
		return "", apperrors.Store(err)
	}
	if conv == nil {
		telemetry.ChatTurnsTotal.WithLabelValues("not_found").Inc()
		return "", apperrors.NotFound("conversation")
	}
	return conv.ID, nil
}

// assembleGrounding builds the resource context block for the model.
// Explicit resource ids bypass semantic search; otherwise the message is
// embedded and matched against the vector store. Either path degrades to an
// empty grounding on failure.
func (s *Service) assembleGrounding(ctx context.Context, orgID, message string, resourceIDs []string) string {
	if len(resourceIDs) > 0 {
		return s.explicitGrounding(ctx, orgID, resourceIDs)
	}
	return s.semanticGrounding(ctx, orgID, message)
}

func (s *Service) explicitGrounding(ctx context.Context, orgID string, resourceIDs []string) string {
	var lines []string
	for _, id := range resourceIDs {
		res, err := s.resources.GetByID(ctx, orgID, id)
		if err != nil {
			slog.Warn("Skipping grounding resource after fetch failure", "resource_id", id, "error", err)
			continue
		}
		if res == nil {
			slog.Debug("Grounding resource not found in org", "resource_id", id)
			continue
		}
		lines = append(lines, res.GroundingLine())
	}
	return strings.Join(lines, "\n")
}

func (s *Service) semanticGrounding(ctx context.Context, orgID, message string) string {
	if s.searcher == nil {
		return ""
	}

	vec, err := s.generator.Embed(ctx, message)
	if err != nil {
		slog.Warn("Embedding failed, continuing without semantic grounding", "error", err)
		return ""
	}

	hits, err := s.searcher.SearchResources(ctx, orgID, vec, 0)
	if err != nil {
		slog.Warn("Vector search failed, continuing without semantic grounding", "error", err)
		return ""
	}

	var lines []string
	for _, hit := range hits {
		lines = append(lines, "Resource: "+hit.Name+", Type: "+hit.ResourceType+", Metadata: "+hit.Description)
	}
	return strings.Join(lines, "\n")
}

func autoTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= autoTitleLength {
		return message
	}
	return string(runes[:autoTitleLength])
}
