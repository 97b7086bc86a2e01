package fix

import (
	"strconv"

	"main/pkg/exception"
)

// Encode serializes the message with computed body length and checksum.
// Header fields are written in the fixed order 35, 49, 50, 56, 34, 52
// ahead of the body fields.
func (m *Message) Encode() ([]byte, error) {
	h := m.Header
	if h.MsgType == "" || h.SenderCompID == "" || h.TargetCompID == "" {
		return nil, exception.ErrFixMissingTag
	}

	body := make([]byte, 0, 256)
	body = appendField(body, TagMsgType, h.MsgType)
	body = appendField(body, TagSenderCompID, h.SenderCompID)
	if h.SenderSubID != "" {
		body = appendField(body, TagSenderSubID, h.SenderSubID)
	}
	body = appendField(body, TagTargetCompID, h.TargetCompID)
	body = appendField(body, TagMsgSeqNum, strconv.Itoa(h.MsgSeqNum))
	body = appendField(body, TagSendingTime, h.SendingTime)
	for _, f := range m.fields {
		body = appendField(body, f.Tag, f.Value)
	}

	out := make([]byte, 0, len(body)+32)
	out = appendField(out, TagBeginString, BeginString)
	out = appendField(out, TagBodyLength, strconv.Itoa(len(body)))
	out = append(out, body...)
	out = appendField(out, TagChecksum, formatChecksum(checksum(out)))
	return out, nil
}

func appendField(buf []byte, tag int, value string) []byte {
	buf = strconv.AppendInt(buf, int64(tag), 10)
	buf = append(buf, '=')
	buf = append(buf, value...)
	return append(buf, SOH)
}

func checksum(data []byte) int {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return sum % 256
}

func formatChecksum(sum int) string {
	s := strconv.Itoa(sum)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// Readable renders a raw frame with SOH shown as '|' for logging.
func Readable(frame []byte) string {
	out := make([]byte, len(frame))
	for i, b := range frame {
		if b == SOH {
			out[i] = '|'
		} else {
			out[i] = b
		}
	}
	return string(out)
}
