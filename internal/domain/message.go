package domain

import (
	"time"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeOffer  MessageType = "offer"
	MessageTypeSystem MessageType = "system"
)

func ParseMessageType(s string) (MessageType, bool) {
	switch t := MessageType(s); t {
	case MessageTypeText, MessageTypeOffer, MessageTypeSystem:
		return t, true
	}
	return "", false
}

const MaxAttachments = 10

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type Message struct {
	ID              int64        `json:"id"`
	InquiryID       int64        `json:"inquiry_id"`
	SenderID        int64        `json:"sender_id"`
	ClientMessageID *string      `json:"client_message_id,omitempty"`
	MessageType     MessageType  `json:"message_type"`
	Message         string       `json:"message"`
	Attachments     []Attachment `json:"attachments"`
	CreatedAt       time.Time    `json:"created_at"`
}

type SendMessageParams struct {
	ClientMessageID *string
	Type            MessageType
	Message         string
	Attachments     []Attachment
}

type PageDirection string

const (
	PageOlder PageDirection = "older"
	PageNewer PageDirection = "newer"
)

// MessagePage asks for up to Limit messages strictly before (older) or
// after (newer) Cursor. A nil Cursor means the most recent page.
type MessagePage struct {
	Cursor    *int64
	Limit     int
	Direction PageDirection
}

type MessagePageResult struct {
	Messages   []*Message `json:"messages"`
	HasMore    bool       `json:"has_more"`
	NextCursor *int64     `json:"next_cursor,omitempty"`
}
