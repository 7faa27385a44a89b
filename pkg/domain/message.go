package domain

import (
	"slices"
	"time"
)

// Author identifies who produced a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
	AuthorInfo Author = "info" // Status notes such as "searching..."
)

// Message is one dialogue turn.
type Message struct {
	ID        int64     `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an append-only, order-preserving sequence of messages.
// Ids keep increasing across Reset so clients never see an id twice.
// Log is not safe for concurrent use; the owner serializes access.
type Log struct {
	messages []Message
	lastID   int64
	now      func() time.Time
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Add assigns the next id and appends the message.
func (l *Log) Add(author Author, text string) Message {
	l.lastID++
	msg := Message{
		ID:        l.lastID,
		Author:    author,
		Text:      text,
		CreatedAt: l.now(),
	}
	l.messages = append(l.messages, msg)
	return msg
}

// Reset drops every message. It is only used when the domain is switched.
func (l *Log) Reset() {
	l.messages = nil
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the log.
func (l *Log) Messages() []Message {
	return slices.Clone(l.messages)
}
