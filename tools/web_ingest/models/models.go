package models

// DocInput is a fetched page handed to the index.
type DocInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DocChunk is the unit that is indexed and retrieved.
type DocChunk struct {
	DocID       string `json:"doc_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	ContentHash string `json:"content_hash"`
	ChunkIndex  int    `json:"chunk_index"`
}

type IngestResponse struct {
	Chunks    int `json:"chunks"`
	IndexedBM int `json:"indexed_bm25"`
}
