package model

type Document struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	FileKey string `json:"file_key,omitempty"`
	Ctime   int64  `json:"ctime"`
}

type DocumentChunk struct {
	DocumentID string    `json:"document_id"`
	Seq        int       `json:"seq"`
	Embedding  []float32 `json:"-"`
}
