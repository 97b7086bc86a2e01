package session

import (
	"errors"
	"net"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/fix"
)

// receiveLoop reads raw bytes with a short deadline so shutdown is
// observed within one read-timeout interval, feeds the streaming parser,
// and dispatches each decoded message by type. It exits when the session
// stops or the server closes the socket.
func (s *Session) receiveLoop(conn net.Conn) {
	defer s.wg.Done()

	var parser fix.Parser
	buf := make([]byte, 4096)

	for !s.stopping() {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			logs.Debugf("recv: %s", fix.Readable(buf[:n]))
			parser.Append(buf[:n])
			s.drainParser(&parser)
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if !s.stopping() {
				logs.Warnf("connection closed by server: %v", err)
				s.setState(StateDisconnected)
			}
			return
		}
	}
}

// drainParser extracts every complete message currently buffered.
// Malformed frames are logged and skipped; they never tear down the loop.
func (s *Session) drainParser(parser *fix.Parser) {
	for {
		msg, err := parser.Next()
		if err != nil {
			logs.Errorf("decode inbound message: %v", err)
			continue
		}
		if msg == nil {
			return
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg *fix.Message) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	switch msg.Type() {
	case fix.MsgTypeLogon:
		s.setState(StateLoggedIn)
		logs.Info("logon accepted by server")

	case fix.MsgTypeHeartbeat:
		logs.Debug("heartbeat received")

	case fix.MsgTypeTestRequest:
		s.replyHeartbeat(msg.GetOr(fix.TagTestReqID, ""))

	case fix.MsgTypeExecutionReport:
		if s.handler != nil {
			s.handler.OnExecutionReport(msg)
		}

	case fix.MsgTypeReject:
		logs.Errorf("message rejected by server: reason=%q refMsgType=%q rejectCode=%q",
			msg.GetOr(fix.TagText, ""),
			msg.GetOr(fix.TagRefMsgType, ""),
			msg.GetOr(fix.TagSessionRejectReason, ""))

	case fix.MsgTypeLogout:
		reason := msg.GetOr(fix.TagText, "")
		logs.Warnf("logout received from server: %q", reason)
		s.setState(StateDisconnected)
		if s.handler != nil {
			s.handler.OnLogout(reason)
		}

	default:
		logs.Warnf("unknown message type %q ignored", msg.Type())
	}
}

// replyHeartbeat answers a test request synchronously from the receive
// loop, echoing the request identifier.
func (s *Session) replyHeartbeat(testReqID string) {
	hb := fix.New(fix.MsgTypeHeartbeat)
	if testReqID != "" {
		hb.Append(fix.TagTestReqID, testReqID)
	}
	if err := s.Send(hb); err != nil {
		logs.Errorf("send heartbeat reply: %v", err)
	}
}

// heartbeatLoop keeps the session alive while logged in.
func (s *Session) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	s.mu.Lock()
	quit := s.quit
	s.mu.Unlock()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if !s.LoggedIn() {
				continue
			}
			if err := s.Send(fix.New(fix.MsgTypeHeartbeat)); err != nil {
				logs.Errorf("send heartbeat: %v", err)
			}
		}
	}
}
