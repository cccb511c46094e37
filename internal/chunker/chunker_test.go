package chunker

import (
	"strings"
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func TestSplitDocument_Overlap(t *testing.T) {
	s := NewSplitter(10, 3)
	doc := &models.Document{Key: "doc.md", Content: strings.Repeat("abcdefg", 5)}
	chunks := s.SplitDocument(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.DocumentKey != "doc.md" {
			t.Errorf("chunk %d DocumentKey=%s", i, ch.DocumentKey)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.ChunkIndex)
		}
		if ch.ID == "" {
			t.Error("chunk ID should be set")
		}
		if i < len(chunks)-1 && len([]rune(ch.Content)) != 10 {
			t.Errorf("chunk %d length=%d, want 10", i, len([]rune(ch.Content)))
		}
	}
	// Consecutive chunks share the configured overlap.
	first := []rune(chunks[0].Content)
	second := []rune(chunks[1].Content)
	if string(first[len(first)-3:]) != string(second[:3]) {
		t.Errorf("overlap mismatch: %q vs %q", string(first[len(first)-3:]), string(second[:3]))
	}
}

func TestSplitDocument_ShorterThanWindow(t *testing.T) {
	s := NewSplitter(1000, 200)
	doc := &models.Document{Key: "small.md", Content: "tiny"}
	chunks := s.SplitDocument(doc)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "tiny" {
		t.Errorf("content=%q", chunks[0].Content)
	}
}

func TestSplitDocument_Empty(t *testing.T) {
	s := NewSplitter(10, 2)
	if chunks := s.SplitDocument(&models.Document{Key: "e.md"}); chunks != nil {
		t.Errorf("empty document should produce no chunks, got %d", len(chunks))
	}
}

func TestSplitDocument_MetadataPropagated(t *testing.T) {
	s := NewSplitter(5, 1)
	doc := &models.Document{
		Key:      "m.md",
		Content:  "0123456789",
		Metadata: models.DocumentMetadata{Source: "s3://bucket/m.md", Size: 10},
	}
	for _, ch := range s.SplitDocument(doc) {
		if ch.Metadata.Source != "s3://bucket/m.md" || ch.Metadata.Size != 10 {
			t.Errorf("metadata not propagated: %+v", ch.Metadata)
		}
	}
}

func TestSplit_NeverSpansDocuments(t *testing.T) {
	s := NewSplitter(8, 2)
	docs := []*models.Document{
		{Key: "a.md", Content: "aaaaaaaaaaaa"},
		{Key: "b.md", Content: "bbbbbbbbbbbb"},
	}
	for _, ch := range s.Split(docs) {
		switch ch.DocumentKey {
		case "a.md":
			if strings.Contains(ch.Content, "b") {
				t.Errorf("chunk of a.md contains b content: %q", ch.Content)
			}
		case "b.md":
			if strings.Contains(ch.Content, "a") {
				t.Errorf("chunk of b.md contains a content: %q", ch.Content)
			}
		default:
			t.Errorf("unexpected document key %s", ch.DocumentKey)
		}
	}
}

func TestSplitDocument_Unicode(t *testing.T) {
	s := NewSplitter(4, 1)
	doc := &models.Document{Key: "u.md", Content: "日本語のテキストです"}
	chunks := s.SplitDocument(doc)
	var rebuilt []rune
	for i, ch := range chunks {
		runes := []rune(ch.Content)
		if i == 0 {
			rebuilt = append(rebuilt, runes...)
		} else {
			rebuilt = append(rebuilt, runes[1:]...)
		}
	}
	if string(rebuilt) != doc.Content {
		t.Errorf("chunks do not reassemble original: %q", string(rebuilt))
	}
}
