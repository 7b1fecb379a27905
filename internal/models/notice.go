package models

// NoticeLevel is the severity of a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a notification keyed by filename (File) or by an export attempt.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	File    string      `json:"file,omitempty"`
	Message string      `json:"message"`
}

// SearchHit is a find-in-preview match over extracted entries.
type SearchHit struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
	Snippet string  `json:"snippet,omitempty"`
}
