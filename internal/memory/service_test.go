package memory

import (
	"context"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	lastTask string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastTask = "query"
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	f.lastTask = "document"
	return []float32{0, 1}, nil
}

type fakeVectorStore struct {
	added   []string
	results []string
	deleted string
}

func (f *fakeVectorStore) Add(_ context.Context, _ string, text string, _ []float32) error {
	f.added = append(f.added, text)
	return nil
}

func (f *fakeVectorStore) SearchSimilar(_ context.Context, _ string, _ []float32, k int) ([]string, error) {
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeVectorStore) DeleteForCharacter(_ context.Context, characterID string) error {
	f.deleted = characterID
	return nil
}

func TestRecordEmbedsAsDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	svc := NewService(embedder, store, 0)

	if err := svc.Record(context.Background(), "c1", "hi", "hello yourself"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if embedder.lastTask != "document" {
		t.Fatalf("exchange must embed with the document task, got %q", embedder.lastTask)
	}
	if len(store.added) != 1 || !strings.Contains(store.added[0], "hello yourself") {
		t.Fatalf("unexpected stored text: %#v", store.added)
	}
}

func TestRetrieveEmbedsAsQuery(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{results: []string{"a", "b", "c"}}
	svc := NewService(embedder, store, 2)

	got, err := svc.Retrieve(context.Background(), "c1", "what did we say")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if embedder.lastTask != "query" {
		t.Fatalf("retrieval must embed with the query task, got %q", embedder.lastTask)
	}
	if len(got) != 2 {
		t.Fatalf("configured limit not applied, got %d", len(got))
	}
}

func TestRetrieveDefaultLimit(t *testing.T) {
	store := &fakeVectorStore{results: []string{"a", "b", "c", "d", "e", "f", "g"}}
	svc := NewService(&fakeEmbedder{}, store, 0)

	got, err := svc.Retrieve(context.Background(), "c1", "anything")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != DefaultTopK {
		t.Fatalf("expected %d results, got %d", DefaultTopK, len(got))
	}
}

func TestForget(t *testing.T) {
	store := &fakeVectorStore{}
	svc := NewService(&fakeEmbedder{}, store, 0)
	if err := svc.Forget(context.Background(), "c9"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.deleted != "c9" {
		t.Fatalf("deleted = %q", store.deleted)
	}
}
