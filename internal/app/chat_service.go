package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"linguachat/internal/model"
)

const (
	defaultHistoryWindow = 20
	defaultSessionName   = "New Chat"
	untitledSessionName  = "Untitled Chat"
)

// SessionStore is the session persistence the chat service depends on.
type SessionStore interface {
	Upsert(session *model.Session) error
	Get(sessionID string) (*model.Session, error)
	ListSince(since time.Time) ([]model.Session, error)
	Touch(sessionID string) error
	Delete(sessionID string) error
}

// MessageStore reads and removes persisted conversation turns. Writes go
// through the queue, not this interface.
type MessageStore interface {
	ListBySessionID(sessionID string) ([]model.Message, error)
	DeleteBySessionID(sessionID string) error
}

// AsyncMessagePublisher hands a message to the persistence queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is a read-through cache over the history table. The table
// stays the source of truth; dirty markers bridge the gap between an
// enqueued write and its arrival in the database.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// ChatService manages session lifecycle and conversation memory: it reads
// and trims persisted history, tracks per-session language preference, and
// orchestrates a full question/answer exchange against the RAG pipeline.
type ChatService struct {
	sessionRepo       SessionStore
	messageRepo       MessageStore
	publisher         AsyncMessagePublisher
	historyCache      HistoryCache
	rag               *RAGService
	historyWindow     int
	sessionWindowDays int
}

func NewChatService(
	sessionRepo SessionStore,
	messageRepo MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	rag *RAGService,
	historyWindow int,
	sessionWindowDays int,
) *ChatService {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	if sessionWindowDays <= 0 {
		sessionWindowDays = 7
	}
	return &ChatService{
		sessionRepo:       sessionRepo,
		messageRepo:       messageRepo,
		publisher:         publisher,
		historyCache:      historyCache,
		rag:               rag,
		historyWindow:     historyWindow,
		sessionWindowDays: sessionWindowDays,
	}
}

type CreateSessionInput struct {
	Name     string
	Language string
}

// CreateSession mints a new session id and persists its metadata.
func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = defaultSessionName
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = defaultLanguage
	}

	session := &model.Session{
		SessionID: uuid.NewString(),
		Name:      name,
		Language:  language,
	}
	if err := s.sessionRepo.Upsert(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns sessions touched within the given window, most
// recently accessed first. sinceDays <= 0 falls back to the configured
// window.
func (s *ChatService) ListSessions(sinceDays int) ([]model.Session, error) {
	if sinceDays <= 0 {
		sinceDays = s.sessionWindowDays
	}
	since := time.Now().AddDate(0, 0, -sinceDays)
	return s.sessionRepo.ListSince(since)
}

func (s *ChatService) GetSession(sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession removes the session, its messages, its cached history and
// its document index.
func (s *ChatService) DeleteSession(sessionID string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(sessionID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	s.rag.ClearDocuments(sessionID)
	return nil
}

// SetLanguage records the preferred response language, creating the session
// row when it does not exist yet. Safe to repeat with the same value.
func (s *ChatService) SetLanguage(sessionID, language string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = defaultLanguage
	}

	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &model.Session{
			SessionID: sessionID,
			Name:      untitledSessionName,
			Language:  language,
		}
	} else {
		session.Language = language
	}
	return s.sessionRepo.Upsert(session)
}

// GetHistory returns the session's full message history in conversation
// order, always reflecting persisted state. The Redis cache only serves
// entries that are not marked dirty by an in-flight write.
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// TrimHistory keeps the most recent limit messages, preserving order.
func TrimHistory(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

type ConverseInput struct {
	SessionID string
	Question  string
	Language  string // empty = session's stored preference
}

type ConverseResult struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Grounded  bool     `json:"grounded"`
	Persisted bool     `json:"persisted"`
}

// Converse runs one full exchange: load and trim history, answer through
// the RAG pipeline, then enqueue both turns for persistence. A generation
// failure becomes the answer text so the conversation continues; a
// persistence failure never blocks the answer but is reported via
// Persisted=false.
func (s *ChatService) Converse(ctx context.Context, input ConverseInput) (*ConverseResult, error) {
	session, history, language, err := s.prepareExchange(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := s.rag.Ask(ctx, AskInput{
		SessionID: session.SessionID,
		Question:  input.Question,
		History:   history,
		Language:  language,
	})
	if err != nil {
		if !errors.Is(err, ErrGenerationFailure) {
			return nil, err
		}
		// Keep the conversation flowing: the failure becomes the answer.
		result = &AskResult{Answer: fmt.Sprintf("Error generating response: %v", err)}
	}

	persisted := s.persistExchange(ctx, session.SessionID, input.Question, result.Answer)

	return &ConverseResult{
		SessionID: session.SessionID,
		Answer:    result.Answer,
		Sources:   result.Sources,
		Grounded:  len(result.Sources) > 0,
		Persisted: persisted,
	}, nil
}

// ConverseStream is Converse with incremental fragment delivery. A
// mid-stream failure is terminal for the request: nothing is persisted and
// the error is returned.
func (s *ChatService) ConverseStream(ctx context.Context, input ConverseInput, onChunk func(string) error) (*ConverseResult, error) {
	session, history, language, err := s.prepareExchange(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := s.rag.AskStream(ctx, AskInput{
		SessionID: session.SessionID,
		Question:  input.Question,
		History:   history,
		Language:  language,
	}, onChunk)
	if err != nil {
		return nil, err
	}

	persisted := s.persistExchange(ctx, session.SessionID, input.Question, result.Answer)

	return &ConverseResult{
		SessionID: session.SessionID,
		Answer:    result.Answer,
		Sources:   result.Sources,
		Grounded:  len(result.Sources) > 0,
		Persisted: persisted,
	}, nil
}

func (s *ChatService) prepareExchange(ctx context.Context, input ConverseInput) (*model.Session, []model.Message, string, error) {
	if input.SessionID == "" {
		return nil, nil, "", ErrInvalidInput
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, nil, "", ErrMessageEmpty
	}

	// The session row must exist before any message row referencing it.
	session, err := s.sessionRepo.Get(input.SessionID)
	if err != nil {
		return nil, nil, "", err
	}
	if session == nil {
		session = &model.Session{
			SessionID: input.SessionID,
			Name:      untitledSessionName,
			Language:  defaultLanguage,
		}
		if err := s.sessionRepo.Upsert(session); err != nil {
			return nil, nil, "", err
		}
	} else if err := s.sessionRepo.Touch(input.SessionID); err != nil {
		log.Printf("touch session %s failed: %v", input.SessionID, err)
	}

	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = session.Language
	}

	history, err := s.GetHistory(ctx, input.SessionID)
	if err != nil {
		return nil, nil, "", err
	}
	history = TrimHistory(history, s.historyWindow)

	return session, history, language, nil
}

// persistExchange enqueues the user and assistant turns. Returns false when
// either enqueue failed; the caller surfaces that so the save can be
// retried without redoing the generation.
func (s *ChatService) persistExchange(ctx context.Context, sessionID, question, answer string) bool {
	if s.publisher == nil {
		return false
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, sessionID)
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}

	now := time.Now()
	userMsg := model.Message{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   strings.TrimSpace(question),
		CreatedAt: now,
	}
	assistantMsg := model.Message{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   answer,
		CreatedAt: now.Add(time.Millisecond),
	}

	if err := s.publisher.Publish(ctx, userMsg); err != nil {
		log.Printf("enqueue user message failed: %v", err)
		return false
	}
	if err := s.publisher.Publish(ctx, assistantMsg); err != nil {
		log.Printf("enqueue assistant message failed: %v", err)
		return false
	}
	return true
}
