package exception

import "github.com/yanun0323/errors"

// FIX codec errors
var (
	ErrFixBadBodyLength = errors.New("fix: bad body length")
	ErrFixBadChecksum   = errors.New("fix: checksum mismatch")
	ErrFixMissingTag    = errors.New("fix: missing tag")
	ErrFixEmptyMessage  = errors.New("fix: empty message")
)
