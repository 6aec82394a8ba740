package model

// DocumentChunk is the unit of embedding and retrieval. Chunks live only in
// a session's in-memory index and are never persisted; clearing the
// session's documents discards them.
type DocumentChunk struct {
	Text       string    `json:"text"`
	SourceName string    `json:"source_name"`
	FileType   string    `json:"file_type"`
	Embedding  []float32 `json:"-"`
}
