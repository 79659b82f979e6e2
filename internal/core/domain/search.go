package domain

// SearchOptions configures a nearest-neighbour query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Kind restricts results to a source collection. Empty matches all.
	Kind RecordKind

	// Status restricts results to chunks whose record had this status.
	Status string

	// Category restricts results to chunks with this category.
	Category string

	// Team restricts results to chunks with this team.
	Team string

	// ExcludeRecordID drops chunks of the named record from the results.
	// Used by find-similar so a record does not match itself.
	ExcludeRecordID string
}

// SearchResult is a single nearest-neighbour hit.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity to the query vector, in [0, 1]
	// for normalised embeddings. Results are ordered by descending
	// similarity with ties broken by chunk id.
	Similarity float64
}

// Answer is a synthesised, cited response to a question.
type Answer struct {
	// Text is the model's answer, or a fixed "nothing found" message when
	// no chunks matched.
	Text string

	// Sources lists the chunks the answer was grounded on, in the order
	// they were labelled in the prompt.
	Sources []AnswerSource
}

// AnswerSource attributes part of an answer to an indexed record.
type AnswerSource struct {
	// RecordID is the external id of the source record.
	RecordID string

	// Title is the record title.
	Title string

	// Similarity is the retrieval score of the underlying chunk.
	Similarity float64

	// Snippet is a short excerpt of the chunk content.
	Snippet string
}
