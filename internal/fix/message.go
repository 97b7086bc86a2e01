package fix

import (
	"strconv"
	"time"
)

// Field is one tag-value pair.
type Field struct {
	Tag   int
	Value string
}

// Header carries the session-level fields of a message. The codec writes
// them in the protocol-mandated order regardless of when they were set.
type Header struct {
	MsgType      string
	SenderCompID string
	SenderSubID  string
	TargetCompID string
	MsgSeqNum    int
	SendingTime  string
}

// Message is an ordered list of tag-value pairs plus the standard header.
type Message struct {
	Header Header
	fields []Field
}

// New creates a message of the given type with an empty body.
func New(msgType string) *Message {
	return &Message{Header: Header{MsgType: msgType}}
}

// Append adds a body field, preserving insertion order.
func (m *Message) Append(tag int, value string) {
	m.fields = append(m.fields, Field{Tag: tag, Value: value})
}

// AppendInt adds a body field with an integer value.
func (m *Message) AppendInt(tag int, value int64) {
	m.Append(tag, strconv.FormatInt(value, 10))
}

// Get returns the first value for a tag, searching header fields first.
func (m *Message) Get(tag int) (string, bool) {
	switch tag {
	case TagMsgType:
		if m.Header.MsgType != "" {
			return m.Header.MsgType, true
		}
	case TagSenderCompID:
		if m.Header.SenderCompID != "" {
			return m.Header.SenderCompID, true
		}
	case TagSenderSubID:
		if m.Header.SenderSubID != "" {
			return m.Header.SenderSubID, true
		}
	case TagTargetCompID:
		if m.Header.TargetCompID != "" {
			return m.Header.TargetCompID, true
		}
	case TagMsgSeqNum:
		if m.Header.MsgSeqNum != 0 {
			return strconv.Itoa(m.Header.MsgSeqNum), true
		}
	case TagSendingTime:
		if m.Header.SendingTime != "" {
			return m.Header.SendingTime, true
		}
	}
	for _, f := range m.fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// GetOr returns the value for a tag or the fallback when absent.
func (m *Message) GetOr(tag int, fallback string) string {
	if v, ok := m.Get(tag); ok {
		return v
	}
	return fallback
}

// Fields returns the body fields in order.
func (m *Message) Fields() []Field {
	return m.fields
}

// Type returns the message type from the header.
func (m *Message) Type() string {
	return m.Header.MsgType
}

// Timestamp formats a time as a FIX UTC sending time.
func Timestamp(t time.Time) string {
	return t.UTC().Format("20060102-15:04:05.000")
}
