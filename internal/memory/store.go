package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// exchangeModel maps to the memories table.
type exchangeModel struct {
	ID          int64
	CharacterID string
	Text        string
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (exchangeModel) TableName() string {
	return "memories"
}

// DefaultSimilarityThreshold filters out weakly related memories when no
// threshold is configured.
const DefaultSimilarityThreshold = 0.7

// VectorStore persists embedded exchanges in Postgres.
type VectorStore struct {
	db        *gorm.DB
	threshold float64
}

// NewVectorStore prepares the memories table and returns a VectorStore.
// similarityThreshold <= 0 falls back to DefaultSimilarityThreshold.
func NewVectorStore(db *gorm.DB, similarityThreshold float64) (*VectorStore, error) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&exchangeModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate memories table: %w", err)
	}
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}
	return &VectorStore{db: db, threshold: similarityThreshold}, nil
}

// Add inserts one embedded exchange.
func (s *VectorStore) Add(ctx context.Context, characterID, text string, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := exchangeModel{CharacterID: characterID, Text: text, Embedding: vector}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// SearchSimilar returns the texts of the k most similar exchanges for the
// character, best match first.
func (s *VectorStore) SearchSimilar(ctx context.Context, characterID string, embedding []float32, k int) ([]string, error) {
	if len(embedding) == 0 || k <= 0 {
		return nil, nil
	}
	vector := pgvector.NewVector(embedding)

	query := `
		SELECT text
		FROM memories
		WHERE character_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY embedding <=> $1
		LIMIT $4`

	var texts []string
	if err := s.db.WithContext(ctx).Raw(query, vector, characterID, s.threshold, k).Scan(&texts).Error; err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return texts, nil
}

// DeleteForCharacter drops all memories of a deleted character.
func (s *VectorStore) DeleteForCharacter(ctx context.Context, characterID string) error {
	if err := s.db.WithContext(ctx).Where("character_id = ?", characterID).Delete(&exchangeModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete memories: %w", err)
	}
	return nil
}
