package session

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/fix"
	"main/pkg/exception"
)

// fakeServer is a minimal FIX acceptor for one inbound connection.
type fakeServer struct {
	listener net.Listener
	inbound  chan *fix.Message

	mu   sync.Mutex
	conn net.Conn
	seq  int
	auto bool // auto-acknowledge logon
}

func newFakeServer(t *testing.T, autoLogon bool) *fakeServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fakeServer{
		listener: l,
		inbound:  make(chan *fix.Message, 64),
		seq:      1,
		auto:     autoLogon,
	}
	go srv.serve()
	t.Cleanup(srv.close)
	return srv
}

func (srv *fakeServer) serve() {
	conn, err := srv.listener.Accept()
	if err != nil {
		return
	}
	srv.mu.Lock()
	srv.conn = conn
	srv.mu.Unlock()

	var parser fix.Parser
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			parser.Append(buf[:n])
			for {
				msg, perr := parser.Next()
				if perr != nil {
					continue
				}
				if msg == nil {
					break
				}
				if srv.auto && msg.Type() == fix.MsgTypeLogon {
					srv.send(fix.New(fix.MsgTypeLogon))
				}
				srv.inbound <- msg
			}
		}
		if err != nil {
			return
		}
	}
}

func (srv *fakeServer) send(msg *fix.Message) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.conn == nil {
		return
	}
	msg.Header.SenderCompID = "CSERVER"
	msg.Header.TargetCompID = "demo.test.1"
	msg.Header.MsgSeqNum = srv.seq
	msg.Header.SendingTime = fix.Timestamp(time.Now())
	raw, err := msg.Encode()
	if err != nil {
		return
	}
	srv.seq++
	_, _ = srv.conn.Write(raw)
}

// sendRaw writes pre-encoded frames in a single write call.
func (srv *fakeServer) sendRaw(raw []byte) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.conn != nil {
		_, _ = srv.conn.Write(raw)
	}
}

func (srv *fakeServer) encode(msg *fix.Message) []byte {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	msg.Header.SenderCompID = "CSERVER"
	msg.Header.TargetCompID = "demo.test.1"
	msg.Header.MsgSeqNum = srv.seq
	msg.Header.SendingTime = fix.Timestamp(time.Now())
	srv.seq++
	raw, _ := msg.Encode()
	return raw
}

func (srv *fakeServer) close() {
	_ = srv.listener.Close()
	srv.mu.Lock()
	if srv.conn != nil {
		_ = srv.conn.Close()
	}
	srv.mu.Unlock()
}

func (srv *fakeServer) port() int {
	return srv.listener.Addr().(*net.TCPAddr).Port
}

func (srv *fakeServer) waitFor(t *testing.T, msgType string) *fix.Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-srv.inbound:
			if msg.Type() == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", msgType)
			return nil
		}
	}
}

type captureHandler struct {
	mu      sync.Mutex
	reports []*fix.Message
	logouts []string
}

func (h *captureHandler) OnExecutionReport(msg *fix.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, msg)
}

func (h *captureHandler) OnLogout(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts = append(h.logouts, reason)
}

func (h *captureHandler) reportCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reports)
}

func testConfig(port int) Config {
	return Config{
		Host:              "127.0.0.1",
		Port:              port,
		SenderCompID:      "demo.test.1",
		SenderSubID:       "TRADE",
		TargetCompID:      "CSERVER",
		Password:          "secret",
		Account:           "100",
		HeartbeatInterval: time.Second,
		ConnectTimeout:    2 * time.Second,
		LogonTimeout:      3 * time.Second,
		ReadTimeout:       100 * time.Millisecond,
	}
}

func TestLogonAckArrivingMidSendSticks(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(testConfig(0), nil)
	s.conn = client
	s.seq = 1
	s.quit = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.logon() }()

	// net.Pipe blocks the logon write until this read consumes it, so
	// the ack below lands in the window right after the frame left.
	buf := make([]byte, 4096)
	_, err := server.Read(buf)
	require.NoError(t, err)

	s.dispatch(fix.New(fix.MsgTypeLogon))
	require.Equal(t, StateLoggedIn, s.State())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("logon never observed the acknowledgment")
	}
	assert.Equal(t, StateLoggedIn, s.State())
}

func TestConnectAndLogon(t *testing.T) {
	srv := newFakeServer(t, true)
	s := New(testConfig(srv.port()), nil)

	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	assert.True(t, s.LoggedIn())

	logon := srv.waitFor(t, fix.MsgTypeLogon)
	assert.Equal(t, 1, logon.Header.MsgSeqNum)
	assert.Equal(t, "demo.test.1", logon.Header.SenderCompID)
	hb, _ := logon.Get(fix.TagHeartBtInt)
	assert.Equal(t, "1", hb)
	pw, _ := logon.Get(fix.TagRawData)
	assert.Equal(t, "secret", pw)
	reset, _ := logon.Get(fix.TagResetSeqNumFlag)
	assert.Equal(t, "Y", reset)
}

func TestLogonTimeout(t *testing.T) {
	srv := newFakeServer(t, false)
	cfg := testConfig(srv.port())
	cfg.LogonTimeout = time.Second
	s := New(cfg, nil)

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, exception.ErrSessionLogonTimeout)
	assert.False(t, s.LoggedIn())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestConnectRefused(t *testing.T) {
	// Grab a port and close it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(port)
	cfg.ConnectTimeout = time.Second
	s := New(cfg, nil)

	require.Error(t, s.Connect(context.Background()))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSequenceNumbersIncrease(t *testing.T) {
	srv := newFakeServer(t, true)
	s := New(testConfig(srv.port()), nil)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	srv.waitFor(t, fix.MsgTypeLogon)

	for i := 0; i < 3; i++ {
		msg := fix.New(fix.MsgTypeNewOrderSingle)
		msg.Append(fix.TagClOrdID, "ORD_test")
		msg.Append(fix.TagSymbol, "EURUSD")
		require.NoError(t, s.Send(msg))
	}

	for want := 2; want <= 4; want++ {
		got := srv.waitFor(t, fix.MsgTypeNewOrderSingle)
		assert.Equal(t, want, got.Header.MsgSeqNum)
	}
}

func TestTestRequestEchoesHeartbeat(t *testing.T) {
	srv := newFakeServer(t, true)
	s := New(testConfig(srv.port()), nil)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	req := fix.New(fix.MsgTypeTestRequest)
	req.Append(fix.TagTestReqID, "PING-42")
	srv.send(req)

	for {
		hb := srv.waitFor(t, fix.MsgTypeHeartbeat)
		if id, ok := hb.Get(fix.TagTestReqID); ok {
			assert.Equal(t, "PING-42", id)
			return
		}
		// Interval heartbeats without a TestReqID may interleave.
	}
}

func TestConcatenatedExecutionReports(t *testing.T) {
	srv := newFakeServer(t, true)
	handler := &captureHandler{}
	s := New(testConfig(srv.port()), handler)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	mkReport := func(clOrdID string) *fix.Message {
		er := fix.New(fix.MsgTypeExecutionReport)
		er.Append(fix.TagClOrdID, clOrdID)
		er.Append(fix.TagExecType, fix.ExecTypeNew)
		er.Append(fix.TagOrdStatus, fix.OrdStatusNew)
		return er
	}
	frame := append(srv.encode(mkReport("ORD_A")), srv.encode(mkReport("ORD_B"))...)
	srv.sendRaw(frame)

	require.Eventually(t, func() bool { return handler.reportCount() == 2 },
		3*time.Second, 20*time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	first, _ := handler.reports[0].Get(fix.TagClOrdID)
	second, _ := handler.reports[1].Get(fix.TagClOrdID)
	assert.Equal(t, "ORD_A", first)
	assert.Equal(t, "ORD_B", second)
}

func TestDisconnectIdempotent(t *testing.T) {
	s := New(testConfig(1), nil)
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())
}

func TestServerCloseStopsLoop(t *testing.T) {
	srv := newFakeServer(t, true)
	s := New(testConfig(srv.port()), nil)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	srv.close()

	require.Eventually(t, func() bool { return s.State() == StateDisconnected },
		3*time.Second, 20*time.Millisecond)
}
