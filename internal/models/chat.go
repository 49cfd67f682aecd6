package models

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Response  string `json:"response"`
}

// RetrievedChunk is a chunk returned by retrieval together with its similarity score.
type RetrievedChunk struct {
	Chunk *Chunk
	Score float64
}
