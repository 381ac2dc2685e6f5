package memory

import (
	"context"
	"fmt"
)

// Store is the persistence slice the service needs.
type Store interface {
	Add(ctx context.Context, characterID, text string, embedding []float32) error
	SearchSimilar(ctx context.Context, characterID string, embedding []float32, k int) ([]string, error)
	DeleteForCharacter(ctx context.Context, characterID string) error
}

// DefaultTopK bounds retrieval when no limit is configured.
const DefaultTopK = 5

// Service records exchanges and recalls similar ones.
type Service struct {
	embedder Embedder
	store    Store
	topK     int
}

// NewService returns a Service. topK <= 0 falls back to DefaultTopK.
func NewService(embedder Embedder, store Store, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{embedder: embedder, store: store, topK: topK}
}

// Record embeds one user/AI exchange and stores it.
func (s *Service) Record(ctx context.Context, characterID, userMessage, aiReply string) error {
	text := fmt.Sprintf("User said: %s\nI replied: %s", userMessage, aiReply)
	embedding, err := s.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed exchange: %w", err)
	}
	return s.store.Add(ctx, characterID, text, embedding)
}

// Retrieve returns the configured number of remembered exchanges similar to
// the query.
func (s *Service) Retrieve(ctx context.Context, characterID, query string) ([]string, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.store.SearchSimilar(ctx, characterID, embedding, s.topK)
}

// Forget removes everything remembered about a character.
func (s *Service) Forget(ctx context.Context, characterID string) error {
	return s.store.DeleteForCharacter(ctx, characterID)
}
