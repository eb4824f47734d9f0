package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing            = "ping"
	TypeFeedRefreshed   = "feed_refreshed"
	TypeDocumentChanged = "document_changed"
	TypeConfigChanged   = "config_changed"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes an event envelope for the SSE stream.
func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// FeedRefreshed is the payload of a feed_refreshed event.
type FeedRefreshed struct {
	Total   int `json:"total"`
	Failed  int `json:"failed"`
	Sources int `json:"sources"`
}

// DocumentChanged is the payload of a document_changed event. It is only
// sent to the owner's own subscribers; see Hub.EmitTo.
type DocumentChanged struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Deleted    bool   `json:"deleted,omitempty"`
}
