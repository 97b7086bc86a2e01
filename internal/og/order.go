package og

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/fix"
	"main/pkg/exception"
)

// BaseUnitsPerLot converts lot quantities into the integer base units
// carried on the wire.
const BaseUnitsPerLot = 100000

var decimalBaseUnits = decimal.NewFromInt(BaseUnitsPerLot)

// Side buy, sell
type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// wire returns the protocol enum code for the side.
func (s Side) wire() string {
	if s == SideSell {
		return fix.SideSell
	}
	return fix.SideBuy
}

// opposite returns the side that closes a position opened with s.
func (s Side) opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Role primary, stop-loss, take-profit
type Role uint8

const (
	_role_beg Role = iota
	RolePrimary
	RoleStopLoss
	RoleTakeProfit
	_role_end
)

func (r Role) IsAvailable() bool {
	return r > _role_beg && r < _role_end
}

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleStopLoss:
		return "stop_loss"
	case RoleTakeProfit:
		return "take_profit"
	default:
		return "unknown"
	}
}

// Status pending, new, partially filled, filled, rejected, cancelled, expired
type Status uint8

const (
	_status_beg Status = iota
	StatusPending
	StatusNew
	StatusPartiallyFilled
	StatusFilled
	StatusRejected
	StatusCancelled
	StatusExpired
	_status_end
)

func (s Status) IsAvailable() bool {
	return s > _status_beg && s < _status_end
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusNew:
		return "new"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Open reports whether the order holds a live position slot.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

// rank orders the lifecycle for monotonicity checks. Terminal states
// share the top rank; the terminal guard handles moves between them.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusNew:
		return 1
	case StatusPartiallyFilled:
		return 2
	default:
		return 3
	}
}

// statusFromWire maps an OrdStatus wire value to the local lifecycle.
func statusFromWire(ordStatus string) (Status, bool) {
	switch ordStatus {
	case fix.OrdStatusNew:
		return StatusNew, true
	case fix.OrdStatusPartiallyFilled:
		return StatusPartiallyFilled, true
	case fix.OrdStatusFilled:
		return StatusFilled, true
	case fix.OrdStatusCancelled:
		return StatusCancelled, true
	case fix.OrdStatusRejected:
		return StatusRejected, true
	case fix.OrdStatusExpired:
		return StatusExpired, true
	default:
		return 0, false
	}
}

// Intent is a submission request from the strategy layer. Quantities are
// in lot units; a zero stop-loss or take-profit price means unset.
type Intent struct {
	Symbol     string
	Side       Side
	Lots       decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

func (i Intent) validate() error {
	if i.Symbol == "" || !i.Side.IsAvailable() || !i.Lots.IsPositive() {
		return exception.ErrOrderInvalidIntent
	}
	return nil
}

// Order is one entry in the order table, keyed by client order id.
// Records are never deleted; terminal orders stay for audit.
type Order struct {
	ClOrdID     string
	ParentID    string
	Role        Role
	Symbol      string
	Side        Side
	Lots        decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
	Status      Status
	BrokerID    string
	SubmittedAt time.Time
	FillPrice   decimal.Decimal
	FilledQty   decimal.Decimal
	DryRun      bool

	protected bool
}

// BaseUnits returns the order quantity in wire base units.
func (o *Order) BaseUnits() int64 {
	return o.Lots.Mul(decimal.NewFromInt(BaseUnitsPerLot)).IntPart()
}

// ExecutionEvent is the transient view of one inbound execution report.
type ExecutionEvent struct {
	ClOrdID   string
	BrokerID  string
	ExecType  string
	OrdStatus string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Text      string
}

func parseExecution(msg *fix.Message) ExecutionEvent {
	var ev ExecutionEvent
	ev.ClOrdID, _ = msg.Get(fix.TagClOrdID)
	ev.BrokerID, _ = msg.Get(fix.TagOrderID)
	ev.ExecType, _ = msg.Get(fix.TagExecType)
	ev.OrdStatus, _ = msg.Get(fix.TagOrdStatus)
	ev.Text, _ = msg.Get(fix.TagText)
	if px, ok := msg.Get(fix.TagLastPx); ok {
		ev.Price, _ = decimal.NewFromString(px)
	} else if px, ok := msg.Get(fix.TagPrice); ok {
		ev.Price, _ = decimal.NewFromString(px)
	}
	if qty, ok := msg.Get(fix.TagLastQty); ok {
		ev.Qty, _ = decimal.NewFromString(qty)
	}
	return ev
}
