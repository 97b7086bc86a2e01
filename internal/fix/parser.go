package fix

import (
	"bytes"
	"strconv"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

var messageStart = []byte("8=" + BeginString)

// checksumFieldLen is the fixed width of the trailer field "10=NNN" + SOH.
const checksumFieldLen = 7

// Parser accumulates raw bytes from the transport and extracts complete
// messages. The socket may deliver partial frames or several frames per
// read; partial tails are retained across calls.
type Parser struct {
	buf []byte
}

// Append feeds raw bytes into the parser buffer.
func (p *Parser) Append(data []byte) {
	p.buf = append(p.buf, data...)
}

// Pending reports how many buffered bytes are not yet consumed.
func (p *Parser) Pending() int {
	return len(p.buf)
}

// Next extracts one complete message from the buffer.
//
// Returns (msg, nil) for a complete valid message, (nil, nil) when more
// bytes are needed, and (nil, err) when malformed bytes were discarded up
// to the next plausible message start; callers should keep calling Next
// until both results are nil.
func (p *Parser) Next() (*Message, error) {
	start := bytes.Index(p.buf, messageStart)
	if start < 0 {
		// Keep a tail in case the start marker itself arrived split.
		if len(p.buf) > len(messageStart) {
			p.buf = p.buf[len(p.buf)-len(messageStart):]
		}
		return nil, nil
	}
	if start > 0 {
		p.buf = p.buf[start:]
	}

	lenStart := bytes.IndexByte(p.buf, SOH)
	if lenStart < 0 {
		return nil, nil
	}
	lenStart++

	rest := p.buf[lenStart:]
	lenEnd := bytes.IndexByte(rest, SOH)
	if lenEnd < 0 {
		return nil, nil
	}
	lenField := rest[:lenEnd]
	if !bytes.HasPrefix(lenField, []byte("9=")) {
		return nil, p.discard(exception.ErrFixBadBodyLength)
	}
	bodyLen, err := strconv.Atoi(string(lenField[2:]))
	if err != nil || bodyLen < 0 {
		return nil, p.discard(exception.ErrFixBadBodyLength)
	}

	bodyEnd := lenStart + lenEnd + 1 + bodyLen
	msgEnd := bodyEnd + checksumFieldLen
	if len(p.buf) < msgEnd {
		return nil, nil
	}

	trailer := p.buf[bodyEnd:msgEnd]
	if !bytes.HasPrefix(trailer, []byte("10=")) || trailer[checksumFieldLen-1] != SOH {
		return nil, p.discard(exception.ErrFixBadChecksum)
	}
	declared, err := strconv.Atoi(string(trailer[3 : checksumFieldLen-1]))
	if err != nil {
		return nil, p.discard(exception.ErrFixBadChecksum)
	}
	if sum := checksum(p.buf[:bodyEnd]); sum != declared {
		return nil, p.discard(errors.Wrapf(exception.ErrFixBadChecksum, "declared %03d computed %03d", declared, sum))
	}

	frame := p.buf[:msgEnd]
	msg, err := parseFrame(frame)
	p.buf = p.buf[msgEnd:]
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// discard drops bytes up to the next plausible message start so a single
// corrupted frame cannot wedge the stream.
func (p *Parser) discard(cause error) error {
	next := bytes.Index(p.buf[1:], messageStart)
	if next < 0 {
		p.buf = p.buf[:0]
	} else {
		p.buf = p.buf[next+1:]
	}
	return cause
}

func parseFrame(frame []byte) (*Message, error) {
	msg := &Message{}
	for len(frame) > 0 {
		end := bytes.IndexByte(frame, SOH)
		if end < 0 {
			break
		}
		field := frame[:end]
		frame = frame[end+1:]

		eq := bytes.IndexByte(field, '=')
		if eq <= 0 {
			continue
		}
		tag, err := strconv.Atoi(string(field[:eq]))
		if err != nil {
			continue
		}
		value := string(field[eq+1:])

		switch tag {
		case TagBeginString, TagBodyLength, TagChecksum:
		case TagMsgType:
			msg.Header.MsgType = value
		case TagSenderCompID:
			msg.Header.SenderCompID = value
		case TagSenderSubID:
			msg.Header.SenderSubID = value
		case TagTargetCompID:
			msg.Header.TargetCompID = value
		case TagMsgSeqNum:
			if seq, err := strconv.Atoi(value); err == nil {
				msg.Header.MsgSeqNum = seq
			}
		case TagSendingTime:
			msg.Header.SendingTime = value
		default:
			msg.Append(tag, value)
		}
	}
	if msg.Header.MsgType == "" {
		return nil, exception.ErrFixEmptyMessage
	}
	return msg, nil
}
