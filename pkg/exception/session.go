package exception

import "github.com/yanun0323/errors"

// Session errors
var (
	ErrSessionNotConnected = errors.New("session: not connected")
	ErrSessionNotLoggedIn  = errors.New("session: not logged in")
	ErrSessionLogonTimeout = errors.New("session: logon timeout")
	ErrSessionAlreadyOpen  = errors.New("session: already connected")
)
