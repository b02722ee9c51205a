package models

// Knowledge_Chunk is one retrieved piece of knowledge-base content.
// Retrieval returns chunks ordered by similarity descending; this package
// does not re-sort them.
type Knowledge_Chunk struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}
