package session

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/fix"
	"main/pkg/exception"
)

// State is the authentication state of the session.
type State uint8

const (
	_state_beg State = iota
	StateDisconnected
	StateConnecting
	StateLogonSent
	StateLoggedIn
	StateLoggingOut
	_state_end
)

func (s State) IsAvailable() bool {
	return s > _state_beg && s < _state_end
}

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateLogonSent:
		return "logon_sent"
	case StateLoggedIn:
		return "logged_in"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Config defines the connection parameters for one FIX session.
type Config struct {
	Host         string
	Port         int
	SenderCompID string
	SenderSubID  string
	TargetCompID string
	Password     string
	Account      string

	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration
	LogonTimeout      time.Duration
	ReadTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.LogonTimeout <= 0 {
		c.LogonTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = time.Second
	}
	return c
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Handler consumes application-level messages from the receive loop.
type Handler interface {
	OnExecutionReport(msg *fix.Message)
	OnLogout(reason string)
}

// Session owns exactly one connection to the execution venue: the socket,
// the outbound sequence counter, and the logon/heartbeat/logout state
// machine. One background goroutine runs the receive loop; all other
// operations may be called from any goroutine. A single mutex serializes
// the sequence counter, the state, and the byte write, so a message's
// sequence number is fixed atomically with its write.
type Session struct {
	cfg     Config
	handler Handler

	mu           sync.Mutex
	conn         net.Conn
	state        State
	seq          int
	lastActivity time.Time

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a disconnected session.
func New(cfg Config, handler Handler) *Session {
	return &Session{
		cfg:     cfg.withDefaults(),
		state:   StateDisconnected,
		handler: handler,
	}
}

// SetHandler installs the message handler. Must be called before
// Connect; the receive loop reads it without synchronization.
func (s *Session) SetHandler(handler Handler) {
	s.handler = handler
}

// Connect opens the socket, starts the receive and heartbeat loops, and
// performs the logon handshake. Connection refusal, timeout, and logon
// timeout come back as errors; none of them are fatal to the process.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return exception.ErrSessionAlreadyOpen
	}
	s.state = StateConnecting
	s.mu.Unlock()

	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.addr())
	if err != nil {
		s.setState(StateDisconnected)
		return errors.Wrap(err, "dial fix server").With("addr", s.cfg.addr())
	}
	logs.Infof("connected to fix server %s", s.cfg.addr())

	s.mu.Lock()
	s.conn = conn
	s.seq = 1
	s.quit = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(2)
	go s.receiveLoop(conn)
	go s.heartbeatLoop()

	if err := s.logon(); err != nil {
		s.Disconnect()
		return err
	}
	return nil
}

// logon sends the logon message and polls for the acknowledgment until
// the configured timeout expires.
func (s *Session) logon() error {
	msg := fix.New(fix.MsgTypeLogon)
	msg.AppendInt(fix.TagEncryptMethod, 0)
	msg.AppendInt(fix.TagHeartBtInt, int64(s.cfg.HeartbeatInterval/time.Second))
	msg.Append(fix.TagRawData, s.cfg.Password)
	msg.Append(fix.TagResetSeqNumFlag, "Y")
	msg.Append(fix.TagAccount, s.cfg.Account)

	// The server's ack can arrive before Send returns, so the in-flight
	// state is set first; a failed send falls through to Disconnect.
	s.setState(StateLogonSent)
	if err := s.Send(msg); err != nil {
		return errors.Wrap(err, "send logon")
	}
	logs.Info("logon message sent")

	const pollInterval = 500 * time.Millisecond
	deadline := time.Now().Add(s.cfg.LogonTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		if s.LoggedIn() {
			logs.Info("logged in")
			return nil
		}
	}
	return exception.ErrSessionLogonTimeout
}

// Send stamps the header, encodes, and writes the message. The sequence
// number is assigned and incremented under the session lock, exactly once
// per successfully written message. Safe to call concurrently with the
// receive loop's own heartbeat replies.
func (s *Session) Send(msg *fix.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return exception.ErrSessionNotConnected
	}

	msg.Header.SenderCompID = s.cfg.SenderCompID
	msg.Header.SenderSubID = s.cfg.SenderSubID
	msg.Header.TargetCompID = s.cfg.TargetCompID
	msg.Header.MsgSeqNum = s.seq
	msg.Header.SendingTime = fix.Timestamp(time.Now())

	raw, err := msg.Encode()
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	if _, err := s.conn.Write(raw); err != nil {
		return errors.Wrap(err, "write message")
	}

	s.seq++
	s.lastActivity = time.Now()
	logs.Debugf("sent: %s", fix.Readable(raw))
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoggedIn reports whether the logon handshake completed.
func (s *Session) LoggedIn() bool {
	return s.State() == StateLoggedIn
}

// NextSeq returns the sequence number the next outbound message will use.
func (s *Session) NextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Disconnect stops the receive loop, sends a best-effort logout, waits
// briefly for the loop to exit, and closes the socket. Idempotent and
// safe to call even if the session never connected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return
	}
	loggedIn := s.state == StateLoggedIn
	s.state = StateLoggingOut
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	s.mu.Unlock()

	if loggedIn {
		// Best effort; the server may already be gone.
		_ = s.Send(fix.New(fix.MsgTypeLogout))
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * s.cfg.ReadTimeout):
	}

	_ = conn.Close()

	s.mu.Lock()
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()
	logs.Info("disconnected from fix server")
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) stopping() bool {
	s.mu.Lock()
	quit := s.quit
	s.mu.Unlock()
	if quit == nil {
		return true
	}
	select {
	case <-quit:
		return true
	default:
		return false
	}
}
