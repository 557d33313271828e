package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/models"
)

// DefaultMessageWindow is the number of recent messages handed to the model
// when the caller does not specify a limit.
const DefaultMessageWindow = 5

// ErrInvalidRole is returned when AppendMessage is given a role other than
// user or assistant.
var ErrInvalidRole = fmt.Errorf("message role must be %q or %q", models.RoleUser, models.RoleAssistant)

// ConversationRepository manages Conversation and Message nodes.
type ConversationRepository struct {
	q graph.Querier
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(q graph.Querier) *ConversationRepository {
	return &ConversationRepository{q: q}
}

// Create starts a new conversation under the organization. Returns nil, nil
// when the organization does not exist.
func (r *ConversationRepository) Create(ctx context.Context, orgID, title string) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})
		CREATE (c:Conversation {id: $id, title: $title, created_at: $created_at})
		CREATE (org)-[:HAS_CONVERSATION]->(c)
		RETURN c.id AS id`

	records, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"org_id":     orgID,
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return conv, nil
}

// GetByID retrieves a conversation within the organization. Returns nil, nil
// when absent or owned by another tenant.
func (r *ConversationRepository) GetByID(ctx context.Context, orgID, id string) (*models.Conversation, error) {
	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_CONVERSATION]->(c:Conversation {id: $id})
		RETURN c.id AS id, c.title AS title, c.created_at AS created_at`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id": orgID,
		"id":     id,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	return &models.Conversation{
		ID:        graph.StringValue(record, "id"),
		Title:     graph.StringValue(record, "title"),
		CreatedAt: graph.TimeValue(record, "created_at"),
	}, nil
}

// ListByOrg returns one page of the organization's conversations, newest
// first.
func (r *ConversationRepository) ListByOrg(ctx context.Context, orgID string, skip, limit int) ([]*models.Conversation, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = DefaultResourcePageSize
	}
	if limit > MaxResourcePageSize {
		limit = MaxResourcePageSize
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_CONVERSATION]->(c:Conversation)
		RETURN c.id AS id, c.title AS title, c.created_at AS created_at
		ORDER BY c.created_at DESC
		SKIP $skip LIMIT $limit`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id": orgID,
		"skip":   skip,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]*models.Conversation, 0, len(records))
	for _, record := range records {
		conversations = append(conversations, &models.Conversation{
			ID:        graph.StringValue(record, "id"),
			Title:     graph.StringValue(record, "title"),
			CreatedAt: graph.TimeValue(record, "created_at"),
		})
	}
	return conversations, nil
}

// AppendMessage persists one turn on the conversation. Only user and
// assistant roles are accepted; system prompts are composed at generation
// time and never stored. Returns nil, nil when the conversation is absent
// from the organization.
func (r *ConversationRepository) AppendMessage(ctx context.Context, orgID, conversationID, role, content string) (*models.Message, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	msg := &models.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_CONVERSATION]->(c:Conversation {id: $conversation_id})
		CREATE (m:Message {id: $id, role: $role, content: $content, created_at: $created_at})
		CREATE (c)-[:HAS_MESSAGE]->(m)
		RETURN m.id AS id`

	records, err := r.q.ExecuteWrite(ctx, cypher, map[string]any{
		"org_id":          orgID,
		"conversation_id": conversationID,
		"id":              msg.ID,
		"role":            msg.Role,
		"content":         msg.Content,
		"created_at":      msg.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return msg, nil
}

// RecentMessages returns the last limit messages in chronological order.
// The query fetches newest-first with LIMIT, then the slice is reversed in
// memory, so the window always covers the tail of the conversation.
func (r *ConversationRepository) RecentMessages(ctx context.Context, orgID, conversationID string, limit int) ([]*models.Message, error) {
	if limit < 1 {
		limit = DefaultMessageWindow
	}

	cypher := `
		MATCH (org:Organization {id: $org_id})-[:HAS_CONVERSATION]->(c:Conversation {id: $conversation_id})-[:HAS_MESSAGE]->(m:Message)
		RETURN m.id AS id, m.role AS role, m.content AS content, m.created_at AS created_at
		ORDER BY m.created_at DESC
		LIMIT $limit`

	records, err := r.q.ExecuteRead(ctx, cypher, map[string]any{
		"org_id":          orgID,
		"conversation_id": conversationID,
		"limit":           limit,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, &models.Message{
			ID:        graph.StringValue(record, "id"),
			Role:      graph.StringValue(record, "role"),
			Content:   graph.StringValue(record, "content"),
			CreatedAt: graph.TimeValue(record, "created_at"),
		})
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
