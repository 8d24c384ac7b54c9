package model

// TopicGeneral is what a session surfaces as before the first topic
// inference has run for it.
const TopicGeneral = "General"

type Session struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time,omitempty"`
	Ctime     int64  `json:"ctime"`
}

// Interaction is one utterance/response pair. Rows are append-only and
// ordered by Seq within their session.
type Interaction struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Seq          int       `json:"seq"`
	UserText     string    `json:"user_text"`
	ResponseText string    `json:"response_text"`
	Embedding    []float32 `json:"-"`
	Ctime        int64     `json:"ctime"`
}
