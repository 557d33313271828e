package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	chatengine "github.com/cloud-companion/cloud-companion/internal/chat"
	"github.com/cloud-companion/cloud-companion/internal/llm"
	"github.com/cloud-companion/cloud-companion/internal/middleware"
	"github.com/cloud-companion/cloud-companion/internal/models"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeQuerier backs the conversation repository for the listing endpoints.
type fakeQuerier struct {
	results [][]map[string]any
	err     error
}

func (f *fakeQuerier) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return f.next()
}

func (f *fakeQuerier) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return f.next()
}

func (f *fakeQuerier) next() ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

// fakeStore implements the engine's conversation surface in memory for the
// turn endpoints.
type fakeStore struct {
	conversations map[string]*models.Conversation
	messages      map[string][]*models.Message
	nextMsg       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: map[string]*models.Conversation{},
		messages:      map[string][]*models.Message{},
	}
}

func (s *fakeStore) Create(ctx context.Context, orgID, title string) (*models.Conversation, error) {
	if orgID == "ghost-org" {
		return nil, nil
	}
	conv := &models.Conversation{ID: "conv-new", Title: title, CreatedAt: time.Now().UTC()}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *fakeStore) GetByID(ctx context.Context, orgID, id string) (*models.Conversation, error) {
	return s.conversations[id], nil
}

func (s *fakeStore) AppendMessage(ctx context.Context, orgID, conversationID, role, content string) (*models.Message, error) {
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, nil
	}
	s.nextMsg++
	msg := &models.Message{ID: fmt.Sprintf("msg-%d", s.nextMsg), Role: role, Content: content, CreatedAt: time.Now().UTC()}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return msg, nil
}

func (s *fakeStore) RecentMessages(ctx context.Context, orgID, conversationID string, limit int) ([]*models.Message, error) {
	return s.messages[conversationID], nil
}

type fakeResources struct{}

func (fakeResources) GetByID(ctx context.Context, orgID, id string) (*models.CloudResource, error) {
	return nil, nil
}

type fakeGenerator struct {
	reply string
	err   error
}

func (g *fakeGenerator) Complete(ctx context.Context, messages []llm.Message, grounding string) (string, error) {
	return g.reply, g.err
}

func (g *fakeGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func newChatRouter(store *fakeStore, gen *fakeGenerator, q *fakeQuerier, reqCtx *models.RequestContext) *gin.Engine {
	engine := chatengine.NewService(store, fakeResources{}, gen, nil)
	h := New(engine, repositories.NewConversationRepository(q))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if reqCtx != nil {
			c.Set(middleware.RequestContextKey, reqCtx)
		}
	})
	r.POST("/chat/start", h.StartConversation)
	r.POST("/chat/message", h.SendMessage)
	r.GET("/chat/conversations", h.ListConversations)
	r.GET("/chat/conversations/:id/messages", h.GetMessages)
	return r
}

func doChat(t *testing.T, r *gin.Engine, method, target, payload string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if payload != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("response was not JSON: %v", err)
		}
	}
	return w, body
}

func TestStartConversation(t *testing.T) {
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodPost, "/chat/start", `{"title":"Prod incident"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if body["conversation_id"] != "conv-new" {
		t.Errorf("conversation_id = %v", body["conversation_id"])
	}
	if body["title"] != "Prod incident" {
		t.Errorf("title = %v", body["title"])
	}
}

func TestStartConversation_Unauthenticated(t *testing.T) {
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, &fakeQuerier{}, nil)

	w, body := doChat(t, r, http.MethodPost, "/chat/start", `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	envelope := body["error"].(map[string]any)
	if envelope["code"] != "AUTH_ERROR" {
		t.Errorf("code = %v", envelope["code"])
	}
}

func TestSendMessage_NewConversation(t *testing.T) {
	store := newFakeStore()
	r := newChatRouter(store, &fakeGenerator{reply: "looks healthy"}, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodPost, "/chat/message", `{"message":"is my instance up?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if body["conversation_id"] != "conv-new" {
		t.Errorf("conversation_id = %v", body["conversation_id"])
	}
	if body["content"] != "looks healthy" {
		t.Errorf("content = %v", body["content"])
	}
	conf, _ := body["confidence"].(float64)
	if conf <= 0 || conf > 1 {
		t.Errorf("confidence = %v", conf)
	}
	if len(store.messages["conv-new"]) != 2 {
		t.Errorf("persisted %d messages, want user+assistant", len(store.messages["conv-new"]))
	}
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodPost, "/chat/message", `{"message":""}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	envelope := body["error"].(map[string]any)
	if envelope["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v", envelope["code"])
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodPost, "/chat/message", `{"message":"hi","conversation_id":"conv-missing"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	envelope := body["error"].(map[string]any)
	if envelope["code"] != "NOT_FOUND" {
		t.Errorf("code = %v", envelope["code"])
	}
}

func TestSendMessage_GenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("model backend down")}
	r := newChatRouter(newFakeStore(), gen, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodPost, "/chat/message", `{"message":"hi"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	envelope := body["error"].(map[string]any)
	if envelope["code"] != "LLM_ERROR" {
		t.Errorf("code = %v", envelope["code"])
	}
	if msg, _ := envelope["message"].(string); strings.Contains(msg, "backend down") {
		t.Errorf("raw cause leaked into response: %q", msg)
	}
}

func TestListConversations(t *testing.T) {
	q := &fakeQuerier{results: [][]map[string]any{{
		{"id": "conv-2", "title": "Newer"},
		{"id": "conv-1", "title": "Older"},
	}}}
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, q, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodGet, "/chat/conversations?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	conversations := body["conversations"].([]any)
	if len(conversations) != 2 {
		t.Fatalf("conversations = %v", conversations)
	}
	if conversations[0].(map[string]any)["id"] != "conv-2" {
		t.Errorf("first conversation = %v, want newest", conversations[0])
	}
}

func TestGetMessages(t *testing.T) {
	q := &fakeQuerier{results: [][]map[string]any{
		{{"id": "conv-1", "title": "Prod incident"}},
		{
			{"id": "m2", "role": "assistant", "content": "checking"},
			{"id": "m1", "role": "user", "content": "instance down"},
		},
	}}
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, q, &models.RequestContext{OrgID: "org-1"})

	w, body := doChat(t, r, http.MethodGet, "/chat/conversations/conv-1/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	// RecentMessages returns chronological order, so the user turn is first.
	if messages[0].(map[string]any)["id"] != "m1" {
		t.Errorf("first message = %v, want oldest", messages[0])
	}
}

func TestGetMessages_UnknownConversation(t *testing.T) {
	r := newChatRouter(newFakeStore(), &fakeGenerator{}, &fakeQuerier{}, &models.RequestContext{OrgID: "org-1"})

	w, _ := doChat(t, r, http.MethodGet, "/chat/conversations/conv-missing/messages", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
