// Package event defines the normalized inbound message model the transport
// delivers to the core. Identities are opaque strings; the core never looks
// inside them.
package event

import "time"

// Message is one inbound conversational event with its thread metadata.
// The transport pre-filters to new messages only; edits and delivery acks
// never reach the core.
type Message struct {
	Sender    string    // identity of the author
	Chat      string    // identity of the chat the message arrived in
	IsGroup   bool      // group chat vs direct message
	Text      string    // message text
	Mentions  []string  // identities mentioned in the message
	Quoted    *Quoted   // replied-to message, nil when not a reply
	Ref       string    // transport-level reference, echoed back when quoting
	Timestamp time.Time // time of arrival
}

// Quoted is a quoted (replied-to) message. One level of nesting is modeled
// explicitly; anything deeper is never inspected.
type Quoted struct {
	Text   string
	Author string
	Quoted *Quoted
}

// Mentioned reports whether id appears in the message's mention list.
func (m *Message) Mentioned(id string) bool {
	if id == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u == id {
			return true
		}
	}
	return false
}
