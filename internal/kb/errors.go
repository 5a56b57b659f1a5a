package kb

import "errors"

var (
	// ErrSourceNotFound means the expected tabular source is absent; ingestion
	// is a no-op and the knowledge base keeps its current state.
	ErrSourceNotFound = errors.New("tabular source not found")

	// ErrSchema means the tabular input is missing a required column. The
	// whole batch is rejected; missing values in individual rows are not a
	// schema error.
	ErrSchema = errors.New("tabular source schema invalid")

	// ErrEmbedding means the embedding function was unreachable or returned
	// inconsistent output. The current build/add is aborted as a whole and the
	// prior index stays valid.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexCorrupt means the persisted index artifact could not be read.
	// The manager reacts by rebuilding from the document store.
	ErrIndexCorrupt = errors.New("persisted index unreadable")

	// ErrModelMismatch means an index built with one embedding model was
	// queried with another. Cross-model search silently degrades relevance,
	// so it is rejected outright.
	ErrModelMismatch = errors.New("index embedding model mismatch")

	// ErrSynthesis means the generative model invocation failed. No partial
	// answer is returned; the caller decides on user-facing fallback text.
	ErrSynthesis = errors.New("answer synthesis failed")
)
