// Package chat answers questions about the indexed documentation: it embeds
// the query, retrieves the most similar chunks, and asks the completion
// service with the retrieved context and the session's prior exchanges.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Service answers documentation questions with retrieval-augmented completion.
type Service struct {
	sessions  session.Store
	embedder  embedding.Embedder
	vectors   vector.Index
	keywords  keyword.Index
	storage   storage.Storage
	completer llm.Completer
	cfg       *config.Config
	logger    *zap.Logger // optional; when set, logs retrieval details
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for per-query debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a chat service with the given dependencies.
// keywords may be nil to disable the keyword fallback entirely.
func NewService(
	sessions session.Store,
	embedder embedding.Embedder,
	vectors vector.Index,
	keywords keyword.Index,
	store storage.Storage,
	completer llm.Completer,
	cfg *config.Config,
	opts ...Option,
) *Service {
	s := &Service{
		sessions:  sessions,
		embedder:  embedder,
		vectors:   vectors,
		keywords:  keywords,
		storage:   store,
		completer: completer,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession creates a fresh session and returns its ID.
func (s *Service) NewSession() string {
	return s.sessions.NewSession().ID
}

// Answer responds to query within the given session. An unknown (or empty)
// session ID starts a fresh conversation under that ID rather than failing;
// the caller cannot tell an expired session from a brand new one.
func (s *Service) Answer(ctx context.Context, sessionID, query string) (*models.ChatResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	var sess *session.Session
	if sessionID == "" {
		sess = s.sessions.NewSession()
	} else {
		sess = s.sessions.GetOrCreate(sessionID)
	}

	retrieved, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("retrieved context",
			zap.String("session_id", sess.ID),
			zap.String("query", utils.Truncate(query, 120)),
			zap.Int("chunks", len(retrieved)))
	}

	history := s.sessions.History(sess.ID)
	messages := buildMessages(retrieved, history, query, s.cfg.Retrieval.HistoryLimit)
	answer, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	s.sessions.AppendExchange(sess.ID, session.Exchange{Query: query, Answer: answer})
	return &models.ChatResponse{
		SessionID: sess.ID,
		Query:     query,
		Response:  answer,
	}, nil
}

// Retrieve returns the chunks most relevant to query: the top-k nearest
// embeddings above the similarity floor, falling back to keyword search when
// semantic retrieval comes back empty.
func (s *Service) Retrieve(ctx context.Context, query string) ([]*models.RetrievedChunk, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vectors.Search(ctx, vec, s.cfg.Retrieval.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var retrieved []*models.RetrievedChunk
	for _, hit := range hits {
		if hit.Score < s.cfg.Retrieval.MinScore {
			continue
		}
		chunk, err := s.storage.GetChunk(ctx, hit.ID)
		if err != nil {
			// The chunk was indexed but is gone from storage; a rebuild
			// race can do this. Skip it rather than failing the query.
			if s.logger != nil {
				s.logger.Warn("chunk missing from storage", zap.String("chunk_id", hit.ID))
			}
			continue
		}
		retrieved = append(retrieved, &models.RetrievedChunk{Chunk: chunk, Score: hit.Score})
	}
	if len(retrieved) > 0 {
		return retrieved, nil
	}
	return s.keywordFallback(ctx, query)
}

// keywordFallback runs a full-text search when semantic retrieval found
// nothing above the floor. Queries full of terms the embedding model has
// never seen (product codes, error strings) often still match literally.
func (s *Service) keywordFallback(ctx context.Context, query string) ([]*models.RetrievedChunk, error) {
	if s.keywords == nil || !s.cfg.Retrieval.KeywordFallbackOrDefault() {
		return nil, nil
	}
	hits, err := s.keywords.Search(ctx, query, s.cfg.Retrieval.TopK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	var retrieved []*models.RetrievedChunk
	for _, hit := range hits {
		chunk, err := s.storage.GetChunk(ctx, hit.ID)
		if err != nil {
			continue
		}
		retrieved = append(retrieved, &models.RetrievedChunk{Chunk: chunk, Score: hit.Score})
	}
	return retrieved, nil
}
