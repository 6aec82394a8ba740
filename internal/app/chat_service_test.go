package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"linguachat/internal/extract"
	"linguachat/internal/model"
)

type fakeSessionStore struct {
	sessions map[string]*model.Session
	deleted  []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionStore) Upsert(session *model.Session) error {
	copied := *session
	f.sessions[session.SessionID] = &copied
	return nil
}

func (f *fakeSessionStore) Get(sessionID string) (*model.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) ListSince(time.Time) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) Touch(string) error { return nil }

func (f *fakeSessionStore) Delete(sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	delete(f.sessions, sessionID)
	return nil
}

type fakeMessageStore struct {
	messages map[string][]model.Message
	deleted  []string
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[string][]model.Message)}
}

func (f *fakeMessageStore) ListBySessionID(sessionID string) ([]model.Message, error) {
	return f.messages[sessionID], nil
}

func (f *fakeMessageStore) DeleteBySessionID(sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	delete(f.messages, sessionID)
	return nil
}

type fakeHistoryCache struct {
	data    map[string][]model.Message
	dirty   map[string]bool
	deleted []string
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{
		data:  make(map[string][]model.Message),
		dirty: make(map[string]bool),
	}
}

func (f *fakeHistoryCache) GetHistory(_ context.Context, sessionID string) ([]model.Message, bool, error) {
	messages, ok := f.data[sessionID]
	return messages, ok, nil
}

func (f *fakeHistoryCache) SetHistory(_ context.Context, sessionID string, messages []model.Message) error {
	f.data[sessionID] = messages
	return nil
}

func (f *fakeHistoryCache) DeleteHistory(_ context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	delete(f.data, sessionID)
	return nil
}

func (f *fakeHistoryCache) MarkDirty(_ context.Context, sessionID string) error {
	f.dirty[sessionID] = true
	return nil
}

func (f *fakeHistoryCache) IsDirty(_ context.Context, sessionID string) (bool, error) {
	return f.dirty[sessionID], nil
}

func TestChatService_DeleteSession_Cascade(t *testing.T) {
	rag := newTestRAGService(uniformEmbedder(), &fakeGenerator{})
	sessions := newFakeSessionStore()
	messages := newFakeMessageStore()
	cache := newFakeHistoryCache()
	svc := NewChatService(sessions, messages, nil, cache, rag, 20, 7)

	sessions.sessions["s1"] = &model.Session{SessionID: "s1", Name: "New Chat", Language: "English"}
	messages.messages["s1"] = []model.Message{
		{SessionID: "s1", Role: model.RoleUser, Content: "hi"},
		{SessionID: "s1", Role: model.RoleAssistant, Content: "hello"},
	}
	cache.data["s1"] = messages.messages["s1"]
	if _, err := rag.Ingest(context.Background(), IngestInput{
		SessionID: "s1",
		FileType:  extract.TypePlainText,
		Data:      []byte("document body"),
	}); err != nil {
		t.Fatalf("Ingest error = %v", err)
	}

	if err := svc.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession error = %v", err)
	}

	if len(messages.deleted) != 1 || messages.deleted[0] != "s1" {
		t.Errorf("message rows not removed: %v", messages.deleted)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "s1" {
		t.Errorf("session row not removed: %v", sessions.deleted)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "s1" {
		t.Errorf("cached history not removed: %v", cache.deleted)
	}
	if rag.HasDocuments("s1") {
		t.Error("document index must not survive session deletion")
	}
}

func TestChatService_DeleteSession_NotFound(t *testing.T) {
	rag := newTestRAGService(uniformEmbedder(), &fakeGenerator{})
	svc := NewChatService(newFakeSessionStore(), newFakeMessageStore(), nil, newFakeHistoryCache(), rag, 20, 7)

	if err := svc.DeleteSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("DeleteSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestTrimHistory(t *testing.T) {
	makeHistory := func(n int) []model.Message {
		out := make([]model.Message, n)
		for i := range out {
			role := model.RoleUser
			if i%2 == 1 {
				role = model.RoleAssistant
			}
			out[i] = model.Message{Role: role, Content: string(rune('a' + i%26))}
		}
		return out
	}

	tests := []struct {
		name    string
		total   int
		limit   int
		wantLen int
	}{
		{"under the window", 6, 20, 6},
		{"exactly the window", 20, 20, 20},
		{"over the window", 30, 20, 20},
		{"zero limit keeps all", 10, 0, 10},
		{"empty history", 0, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := makeHistory(tt.total)
			got := TrimHistory(history, tt.limit)
			if len(got) != tt.wantLen {
				t.Fatalf("TrimHistory returned %d messages, want %d", len(got), tt.wantLen)
			}
			// Trimming keeps the most recent tail in order.
			if tt.wantLen > 0 && tt.total > tt.wantLen {
				if got[0] != history[tt.total-tt.wantLen] {
					t.Error("trimmed history does not start at the expected message")
				}
				if got[len(got)-1] != history[tt.total-1] {
					t.Error("trimmed history must end with the newest message")
				}
			}
		})
	}
}
