package fingerprint

import (
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func TestDigest_Deterministic(t *testing.T) {
	a := Digest("hello world")
	b := Digest("hello world")
	if a != b {
		t.Errorf("same content should digest identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if Digest("hello world") == Digest("hello world!") {
		t.Error("different content should digest differently")
	}
}

func TestClassify_NewAndChanged(t *testing.T) {
	docs := []*models.Document{
		{Key: "a.md", Content: "alpha"},
		{Key: "b.md", Content: "beta"},
		{Key: "c.md", Content: "gamma"},
	}
	previous := map[string]string{
		"a.md": Digest("alpha"),   // unchanged
		"b.md": Digest("old beta"), // changed
		// c.md is new
	}
	cs := Classify(docs, previous, false)
	if len(cs.Unchanged) != 1 || cs.Unchanged[0].Key != "a.md" {
		t.Errorf("expected a.md unchanged, got %v", keys(cs.Unchanged))
	}
	if len(cs.ToProcess) != 2 {
		t.Errorf("expected 2 to process, got %v", keys(cs.ToProcess))
	}
}

func TestClassify_CurrentCoversAllDocuments(t *testing.T) {
	docs := []*models.Document{
		{Key: "a.md", Content: "alpha"},
		{Key: "b.md", Content: "beta"},
	}
	previous := map[string]string{"a.md": Digest("alpha")}
	cs := Classify(docs, previous, false)
	if len(cs.Current) != 2 {
		t.Fatalf("Current should cover every loaded doc, got %d entries", len(cs.Current))
	}
	for _, doc := range docs {
		if cs.Current[doc.Key] != Digest(doc.Content) {
			t.Errorf("Current[%s] wrong digest", doc.Key)
		}
	}
}

func TestClassify_Force(t *testing.T) {
	docs := []*models.Document{{Key: "a.md", Content: "alpha"}}
	previous := map[string]string{"a.md": Digest("alpha")}
	cs := Classify(docs, previous, true)
	if len(cs.ToProcess) != 1 || len(cs.Unchanged) != 0 {
		t.Errorf("force should reprocess everything: to_process=%d unchanged=%d",
			len(cs.ToProcess), len(cs.Unchanged))
	}
}

func TestClassify_Empty(t *testing.T) {
	cs := Classify(nil, map[string]string{"gone.md": "x"}, false)
	if len(cs.ToProcess) != 0 || len(cs.Unchanged) != 0 || len(cs.Current) != 0 {
		t.Error("no documents should classify to empty sets")
	}
}

func keys(docs []*models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key
	}
	return out
}
