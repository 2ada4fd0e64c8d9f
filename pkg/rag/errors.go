package rag

import (
	"errors"
	"fmt"
)

// Kind identifies a pipeline failure class. The executor and the fallback
// controller branch on kinds, never on error strings.
type Kind string

const (
	KindClassification    Kind = "CLASSIFICATION_FAILURE"
	KindEmbedding         Kind = "EMBEDDING_FAILURE"
	KindVectorSearch      Kind = "VECTOR_SEARCH_FAILURE"
	KindEmptyRetrieval    Kind = "EMPTY_RETRIEVAL"
	KindSubQuery          Kind = "DECOMPOSITION_SUBQUERY_FAILURE"
	KindGeneration        Kind = "GENERATION_FAILURE"
	KindPartitionCreation Kind = "PARTITION_CREATION_FAILURE"
)

// Fatal kinds abort the request; everything else degrades through the
// fallback chain. Without a partition there is no isolation guarantee, so
// partition creation is the only fatal kind.
func (k Kind) Fatal() bool {
	return k == KindPartitionCreation
}

// Failure is a typed stage error. It wraps the underlying cause so callers
// can still errors.Is/As into transport errors when they need to.
type Failure struct {
	Kind  Kind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s at %s", f.Kind, f.Stage)
	}
	return fmt.Sprintf("%s at %s: %v", f.Kind, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err as a typed pipeline failure.
func NewFailure(kind Kind, stage string, err error) *Failure {
	return &Failure{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// IsFatal reports whether err carries a fatal failure kind.
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind.Fatal()
}
