package exception

import "github.com/yanun0323/errors"

var (
	ErrOrderUnknown           = errors.New("order: not found")
	ErrOrderInvalidTransition = errors.New("order: invalid state transition")
	ErrOrderInvalidIntent     = errors.New("order: invalid intent")
)

var (
	ErrJournalClosed    = errors.New("journal: writer closed")
	ErrJournalQueueFull = errors.New("journal: queue full")
	ErrAlertQueueFull   = errors.New("alert: queue full")
	ErrAlertQueueClosed = errors.New("alert: queue closed")
)
