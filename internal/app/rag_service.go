package app

import (
	"context"
	"fmt"
	"strings"

	"linguachat/internal/ai"
	"linguachat/internal/chunker"
	"linguachat/internal/extract"
	"linguachat/internal/index"
	"linguachat/internal/model"
)

const (
	defaultTopK          = 4
	defaultPromptHistory = 5
	embeddingBatchSize   = 10 // many embedding APIs limit batch size
	defaultLanguage      = "English"
)

// Embedder maps text to a fixed-length vector. Implementations must be
// deterministic: the same text yields the same vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion, optionally as a fragment stream.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// RAGService owns the document pipeline: extraction, chunking, embedding,
// per-session indexing, retrieval and grounded answer generation.
type RAGService struct {
	indexes       *index.SessionIndexes
	chunker       *chunker.Chunker
	embedder      Embedder
	generator     Generator
	topK          int
	promptHistory int
}

func NewRAGService(
	indexes *index.SessionIndexes,
	textChunker *chunker.Chunker,
	embedder Embedder,
	generator Generator,
	topK int,
	promptHistory int,
) *RAGService {
	if topK <= 0 {
		topK = defaultTopK
	}
	if promptHistory <= 0 {
		promptHistory = defaultPromptHistory
	}
	return &RAGService{
		indexes:       indexes,
		chunker:       textChunker,
		embedder:      embedder,
		generator:     generator,
		topK:          topK,
		promptHistory: promptHistory,
	}
}

type IngestInput struct {
	SessionID  string
	SourceName string
	FileType   extract.FileType
	Data       []byte
}

type IngestResult struct {
	SessionID  string `json:"session_id"`
	SourceName string `json:"source_name"`
	ChunkCount int    `json:"chunk_count"`
	IndexSize  int    `json:"index_size"`
}

// Ingest runs one file through extract -> chunk -> embed -> index. The
// session's index is only touched after every chunk has an embedding, so a
// failing provider never leaves a partial document behind.
func (s *RAGService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.SessionID == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	sourceName := strings.TrimSpace(input.SourceName)
	if sourceName == "" {
		sourceName = "Untitled"
	}

	text, err := extract.Extract(input.Data, input.FileType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, ErrNoContent
	}

	var vectors [][]float32
	for i := 0; i < len(pieces); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.EmbedBatch(ctx, pieces[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingFailure, len(vectors), len(pieces))
	}

	chunks := make([]model.DocumentChunk, len(pieces))
	for i := range pieces {
		chunks[i] = model.DocumentChunk{
			Text:       pieces[i],
			SourceName: sourceName,
			FileType:   input.FileType.String(),
			Embedding:  vectors[i],
		}
	}
	s.indexes.Add(input.SessionID, chunks)

	return &IngestResult{
		SessionID:  input.SessionID,
		SourceName: sourceName,
		ChunkCount: len(chunks),
		IndexSize:  s.indexes.Size(input.SessionID),
	}, nil
}

// Retrieve embeds the query and returns the k nearest chunks for the
// session, closest first. A session without documents yields an empty
// result and no error; that is how callers pick the ungrounded path.
func (s *RAGService) Retrieve(ctx context.Context, sessionID, query string, k int) ([]index.SearchResult, error) {
	if sessionID == "" || strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	if !s.indexes.Has(sessionID) {
		return nil, nil
	}
	if k <= 0 {
		k = s.topK
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}
	return s.indexes.Search(sessionID, vec, k), nil
}

// HasDocuments reports the session's document mode, derived from index
// presence and nothing else.
func (s *RAGService) HasDocuments(sessionID string) bool {
	return s.indexes.Has(sessionID)
}

// ClearDocuments drops the session's index entirely, reverting the session
// to the ungrounded answer path.
func (s *RAGService) ClearDocuments(sessionID string) bool {
	return s.indexes.Clear(sessionID)
}

type AskInput struct {
	SessionID string
	Question  string
	History   []model.Message
	Language  string
}

// Source identifies one chunk the answer was grounded on.
type Source struct {
	SourceName string  `json:"source_name"`
	FileType   string  `json:"file_type"`
	Content    string  `json:"content"`
	Distance   float64 `json:"distance"`
}

type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Ask answers the question in the session's preferred language, grounding
// the answer on retrieved document context when the session has any.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	messages, sources, err := s.buildMessages(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	return &AskResult{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}

// AskStream is Ask with incremental delivery: fragments arrive through
// onChunk and the assembled answer is returned once the stream ends. A
// mid-stream failure is terminal; no partial result is returned.
func (s *RAGService) AskStream(ctx context.Context, input AskInput, onChunk func(string) error) (*AskResult, error) {
	messages, sources, err := s.buildMessages(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.StreamComplete(ctx, messages, onChunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	return &AskResult{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}

func (s *RAGService) buildMessages(ctx context.Context, input AskInput) ([]ai.ChatMessage, []Source, error) {
	question := strings.TrimSpace(input.Question)
	if input.SessionID == "" || question == "" {
		return nil, nil, ErrInvalidInput
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = defaultLanguage
	}

	results, err := s.Retrieve(ctx, input.SessionID, question, s.topK)
	if err != nil {
		return nil, nil, err
	}

	historyBlock := renderHistory(input.History, s.promptHistory)

	if len(results) == 0 {
		messages := []ai.ChatMessage{
			{Role: "system", Content: fmt.Sprintf("You are a helpful assistant. Please respond in %s.", language)},
			{Role: "user", Content: fmt.Sprintf("Previous conversation:\n%s\nQuestion: %s", historyBlock, question)},
		}
		return messages, nil, nil
	}

	contextParts := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		contextParts[i] = fmt.Sprintf("Document: %s\nContent: %s", r.Chunk.SourceName, r.Chunk.Text)
		sources[i] = Source{
			SourceName: r.Chunk.SourceName,
			FileType:   r.Chunk.FileType,
			Content:    r.Chunk.Text,
			Distance:   r.Distance,
		}
	}

	prompt := groundedPrompt(strings.Join(contextParts, "\n\n"), historyBlock, question, language)
	return []ai.ChatMessage{{Role: "user", Content: prompt}}, sources, nil
}

// renderHistory formats the last n messages as "User:"/"Assistant:" lines in
// chronological order.
func renderHistory(history []model.Message, n int) string {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	var sb strings.Builder
	for _, msg := range history {
		role := "User"
		if msg.Role == model.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func groundedPrompt(contextBlock, historyBlock, question, language string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that answers questions based on provided context from documents.\n\n")
	sb.WriteString("Context information is below:\n---------------------\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n---------------------\n\n")
	sb.WriteString("Previous conversation history:\n---------------------\n")
	sb.WriteString(historyBlock)
	sb.WriteString("---------------------\n\n")
	sb.WriteString("Given the context information and the conversation history, answer the question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nIf the answer cannot be determined from the context, you can use your general knowledge to provide a helpful response.\n\n")
	sb.WriteString(fmt.Sprintf("IMPORTANT: You must respond in %s. If you don't know how to speak %s, do your best to translate your response to %s.\n\n", language, language, language))
	sb.WriteString("Provide a comprehensive answer and cite the specific parts of the documents you're using when applicable.")
	return sb.String()
}
