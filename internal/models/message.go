package models

// Message is a single conversation turn passed along with a retrieval query.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
