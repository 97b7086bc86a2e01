package fix

// SOH is the FIX field delimiter.
const SOH = byte(0x01)

// BeginString is the protocol version marker sent on every message.
const BeginString = "FIX.4.4"

// Message types used by the client.
const (
	MsgTypeHeartbeat       = "0"
	MsgTypeTestRequest     = "1"
	MsgTypeReject          = "3"
	MsgTypeLogout          = "5"
	MsgTypeExecutionReport = "8"
	MsgTypeLogon           = "A"
	MsgTypeNewOrderSingle  = "D"
)

// Tags read or written by the client.
const (
	TagAccount             = 1
	TagBeginString         = 8
	TagBodyLength          = 9
	TagChecksum            = 10
	TagClOrdID             = 11
	TagLastPx              = 31
	TagLastQty             = 32
	TagMsgSeqNum           = 34
	TagMsgType             = 35
	TagOrderID             = 37
	TagOrderQty            = 38
	TagOrdStatus           = 39
	TagOrdType             = 40
	TagPrice               = 44
	TagSenderCompID        = 49
	TagSenderSubID         = 50
	TagSendingTime         = 52
	TagSide                = 54
	TagSymbol              = 55
	TagTargetCompID        = 56
	TagText                = 58
	TagTimeInForce         = 59
	TagTransactTime        = 60
	TagRawData             = 96
	TagEncryptMethod       = 98
	TagStopPx              = 99
	TagHeartBtInt          = 108
	TagTestReqID           = 112
	TagResetSeqNumFlag     = 141
	TagExecType            = 150
	TagRefMsgType          = 372
	TagSessionRejectReason = 373
)

// Side values on the wire.
const (
	SideBuy  = "1"
	SideSell = "2"
)

// OrdType values on the wire.
const (
	OrdTypeMarket = "1"
	OrdTypeLimit  = "2"
	OrdTypeStop   = "3"
)

// TimeInForce values on the wire.
const (
	TimeInForceGTC = "1"
)

// ExecType values carried by execution reports.
const (
	ExecTypeNew         = "0"
	ExecTypePartialFill = "1"
	ExecTypeFill        = "2"
	ExecTypeCancelled   = "4"
	ExecTypeRejected    = "8"
	ExecTypeExpired     = "C"
)

// OrdStatus values carried by execution reports.
const (
	OrdStatusNew             = "0"
	OrdStatusPartiallyFilled = "1"
	OrdStatusFilled          = "2"
	OrdStatusCancelled       = "4"
	OrdStatusRejected        = "8"
	OrdStatusExpired         = "C"
)
