// Package fingerprint provides content digests and change-set classification
// for incremental indexing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hyperjump/kensaku/internal/models"
)

// Digest returns the hex-encoded SHA-256 of content. Same content always
// yields the same digest; used as a change-detection key, not for security.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChangeSet is the result of classifying loaded documents against the
// previously persisted fingerprint map.
type ChangeSet struct {
	ToProcess []*models.Document
	Unchanged []*models.Document
	// Current maps every loaded document key to its digest, regardless of
	// whether the document needs processing. Persisting it keeps the map in
	// step with the full current document set, not just reprocessed ones.
	Current map[string]string
}

// Classify computes a digest for each document and splits the set into
// to-process and unchanged. When force is true the previous map is ignored
// and every document is to-process. Otherwise a document needs processing
// when its key is absent from previous or its digest differs.
func Classify(docs []*models.Document, previous map[string]string, force bool) *ChangeSet {
	if force {
		previous = nil
	}
	cs := &ChangeSet{Current: make(map[string]string, len(docs))}
	for _, doc := range docs {
		digest := Digest(doc.Content)
		cs.Current[doc.Key] = digest
		if prev, ok := previous[doc.Key]; ok && prev == digest {
			cs.Unchanged = append(cs.Unchanged, doc)
		} else {
			cs.ToProcess = append(cs.ToProcess, doc)
		}
	}
	return cs
}
