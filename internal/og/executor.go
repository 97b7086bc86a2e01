package og

import (
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/alert"
	"main/internal/fix"
	"main/internal/risk"
	"main/pkg/exception"
)

// Sender is the slice of the session the executor submits through.
type Sender interface {
	Send(msg *fix.Message) error
	LoggedIn() bool
}

// Journal receives order snapshots for durable audit. Implementations
// must not block; a nil journal disables recording.
type Journal interface {
	OrderSubmitted(o Order)
	OrderUpdated(o Order)
}

// Config holds the executor's static parameters.
type Config struct {
	Account string
}

// Result is the outcome of one submission attempt. A denied submission
// is a Result with a reason, not an error; errors are reserved for
// invalid intents and transport faults.
type Result struct {
	ClOrdID  string
	Accepted bool
	DryRun   bool
	Reason   risk.Reason
}

// Executor owns the order table and drives submissions through the
// safety gate, the session, and protective-order synthesis.
type Executor struct {
	cfg     Config
	sender  Sender
	gate    *risk.Gate
	alerts  *alert.Queue
	journal Journal

	mu     sync.Mutex
	orders map[string]*Order
	idSeq  uint64

	now func() time.Time
}

// New creates an executor. alerts and journal may be nil.
func New(cfg Config, sender Sender, gate *risk.Gate, alerts *alert.Queue, journal Journal) *Executor {
	return &Executor{
		cfg:     cfg,
		sender:  sender,
		gate:    gate,
		alerts:  alerts,
		journal: journal,
		orders:  make(map[string]*Order),
		now:     time.Now,
	}
}

// Submit runs the safety gate and, on approval, sends a market
// NewOrderSingle and records it in the order table. The gate check,
// the byte write, and the record insert happen under one lock, so a
// returned client order id always corresponds to a recorded order.
func (e *Executor) Submit(intent Intent) (Result, error) {
	if err := intent.validate(); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	decision := e.gate.Evaluate(e.openLocked(), now)
	if !decision.Allowed {
		logs.Warnf("order %s %s denied: %s", intent.Side, intent.Symbol, decision.Reason)
		e.publish(alert.KindOrderRejected, map[string]string{
			"symbol": intent.Symbol,
			"side":   intent.Side.String(),
			"reason": decision.Reason.String(),
		})
		return Result{Reason: decision.Reason}, nil
	}

	if decision.DryRun {
		id := e.nextIDLocked("DRY", now)
		order := e.insertLocked(id, "", RolePrimary, intent, now, true)
		e.gate.RecordSubmission(now)
		logs.Infof("dry-run order %s recorded, nothing sent", id)
		if e.journal != nil {
			e.journal.OrderSubmitted(*order)
		}
		return Result{ClOrdID: id, Accepted: true, DryRun: true, Reason: risk.ReasonNone}, nil
	}

	if !e.sender.LoggedIn() {
		return Result{}, exception.ErrSessionNotLoggedIn
	}

	id := e.nextIDLocked("ORD", now)
	msg := e.orderMessage(id, intent, now)
	if err := e.sender.Send(msg); err != nil {
		return Result{}, errors.Wrap(err, "send new order single")
	}
	order := e.insertLocked(id, "", RolePrimary, intent, now, false)
	e.gate.RecordSubmission(now)
	logs.Infof("order %s sent: %s %s %s lots", id, intent.Side, intent.Symbol, intent.Lots)
	if e.journal != nil {
		e.journal.OrderSubmitted(*order)
	}
	return Result{ClOrdID: id, Accepted: true, Reason: risk.ReasonNone}, nil
}

// Status looks up the lifecycle status for a client order id.
func (e *Executor) Status(clOrdID string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders[clOrdID]; ok {
		return o.Status, true
	}
	return 0, false
}

// Order returns a snapshot of the record for a client order id.
func (e *Executor) Order(clOrdID string) (Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders[clOrdID]; ok {
		return *o, true
	}
	return Order{}, false
}

// OpenPositions counts orders currently holding a live position slot.
func (e *Executor) OpenPositions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLocked()
}

func (e *Executor) openLocked() int {
	n := 0
	for _, o := range e.orders {
		if o.Status.Open() {
			n++
		}
	}
	return n
}

func (e *Executor) nextIDLocked(prefix string, now time.Time) string {
	e.idSeq++
	return fmt.Sprintf("%s_%d_%d", prefix, now.UnixMilli(), e.idSeq)
}

func (e *Executor) insertLocked(id, parentID string, role Role, intent Intent, now time.Time, dryRun bool) *Order {
	o := &Order{
		ClOrdID:     id,
		ParentID:    parentID,
		Role:        role,
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Lots:        intent.Lots,
		StopLoss:    intent.StopLoss,
		TakeProfit:  intent.TakeProfit,
		Status:      StatusPending,
		SubmittedAt: now,
		DryRun:      dryRun,
	}
	e.orders[id] = o
	return o
}

func (e *Executor) orderMessage(id string, intent Intent, now time.Time) *fix.Message {
	msg := fix.New(fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, id)
	msg.Append(fix.TagAccount, e.cfg.Account)
	msg.Append(fix.TagSymbol, intent.Symbol)
	msg.Append(fix.TagSide, intent.Side.wire())
	msg.Append(fix.TagTransactTime, fix.Timestamp(now))
	msg.AppendInt(fix.TagOrderQty, intent.Lots.Mul(decimalBaseUnits).IntPart())
	msg.Append(fix.TagOrdType, fix.OrdTypeMarket)
	msg.Append(fix.TagTimeInForce, fix.TimeInForceGTC)
	return msg
}

func (e *Executor) publish(kind alert.Kind, fields map[string]string) {
	if e.alerts == nil {
		return
	}
	if err := e.alerts.TryPublish(alert.NewEvent(kind, fields)); err != nil {
		logs.Debugf("alert %s dropped: %s", kind, err)
	}
}
