package og

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/alert"
	"main/internal/fix"
	"main/pkg/exception"
)

// OnExecutionReport applies one inbound execution report to the order
// table. It is called from the session receive loop; unknown client
// order ids, reports against terminal orders, and reports that would
// move the status backwards are logged and ignored.
func (e *Executor) OnExecutionReport(msg *fix.Message) {
	ev := parseExecution(msg)
	if ev.ClOrdID == "" {
		logs.Warn("execution report without client order id ignored")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[ev.ClOrdID]
	if !ok {
		logs.Warnf("execution report ignored: %s: %s", exception.ErrOrderUnknown, ev.ClOrdID)
		return
	}
	if order.BrokerID == "" && ev.BrokerID != "" {
		order.BrokerID = ev.BrokerID
	}
	if order.Status.Terminal() {
		logs.Warnf("order %s already %s, report ignored", order.ClOrdID, order.Status)
		return
	}

	if next, known := statusFromWire(ev.OrdStatus); known {
		if next.rank() < order.Status.rank() {
			logs.Warnf("order %s: %s, %s does not follow %s, report ignored",
				order.ClOrdID, exception.ErrOrderInvalidTransition, next, order.Status)
			return
		}
		order.Status = next
	}
	if !ev.Qty.IsZero() {
		order.FilledQty = order.FilledQty.Add(ev.Qty)
	}
	if !ev.Price.IsZero() {
		order.FillPrice = ev.Price
	}

	switch ev.ExecType {
	case fix.ExecTypeNew:
		logs.Infof("order %s accepted, broker id %s", order.ClOrdID, order.BrokerID)
		e.publish(alert.KindOrderAccepted, map[string]string{
			"clOrdID":  order.ClOrdID,
			"brokerID": order.BrokerID,
			"symbol":   order.Symbol,
		})
	case fix.ExecTypeRejected:
		logs.Warnf("order %s rejected: %s", order.ClOrdID, ev.Text)
		e.publish(alert.KindOrderRejected, map[string]string{
			"clOrdID": order.ClOrdID,
			"symbol":  order.Symbol,
			"reason":  ev.Text,
		})
	case fix.ExecTypePartialFill:
		logs.Infof("order %s partially filled, %s at %s", order.ClOrdID, ev.Qty, ev.Price)
	case fix.ExecTypeFill:
		logs.Infof("order %s filled at %s", order.ClOrdID, order.FillPrice)
		if order.Role == RolePrimary && !order.protected {
			order.protected = true
			e.placeProtectiveLocked(order)
		}
	}

	if e.journal != nil {
		e.journal.OrderUpdated(*order)
	}
}

// OnLogout surfaces a server-initiated logout to the alerting layer.
func (e *Executor) OnLogout(reason string) {
	logs.Warnf("session logged out: %s", reason)
	e.publish(alert.KindSessionLogout, map[string]string{"reason": reason})
}

// placeProtectiveLocked submits the stop-loss and take-profit orders
// recorded on a filled parent. Both close the parent's position, so
// their side is the parent's opposite. Runs at most once per parent.
func (e *Executor) placeProtectiveLocked(parent *Order) {
	side := parent.Side.opposite()
	if !parent.StopLoss.IsZero() {
		e.submitProtectiveLocked(parent, RoleStopLoss, side, parent.StopLoss)
	}
	if !parent.TakeProfit.IsZero() {
		e.submitProtectiveLocked(parent, RoleTakeProfit, side, parent.TakeProfit)
	}
}

func (e *Executor) submitProtectiveLocked(parent *Order, role Role, side Side, price decimal.Decimal) {
	var id, label string
	switch role {
	case RoleStopLoss:
		id, label = "SL_"+parent.ClOrdID, "stop-loss"
	default:
		id, label = "TP_"+parent.ClOrdID, "take-profit"
	}

	now := e.now()
	msg := fix.New(fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, id)
	msg.Append(fix.TagAccount, e.cfg.Account)
	msg.Append(fix.TagSymbol, parent.Symbol)
	msg.Append(fix.TagSide, side.wire())
	msg.Append(fix.TagTransactTime, fix.Timestamp(now))
	msg.AppendInt(fix.TagOrderQty, parent.BaseUnits())
	if role == RoleStopLoss {
		msg.Append(fix.TagOrdType, fix.OrdTypeStop)
		msg.Append(fix.TagPrice, price.StringFixed(5))
		msg.Append(fix.TagStopPx, price.StringFixed(5))
	} else {
		msg.Append(fix.TagOrdType, fix.OrdTypeLimit)
		msg.Append(fix.TagPrice, price.StringFixed(5))
	}
	msg.Append(fix.TagTimeInForce, fix.TimeInForceGTC)

	if !parent.DryRun {
		if err := e.sender.Send(msg); err != nil {
			logs.Errorf("%s order %s not sent: %s", label, id, err)
			return
		}
	}

	order := &Order{
		ClOrdID:     id,
		ParentID:    parent.ClOrdID,
		Role:        role,
		Symbol:      parent.Symbol,
		Side:        side,
		Lots:        parent.Lots,
		Status:      StatusPending,
		SubmittedAt: now,
		DryRun:      parent.DryRun,
	}
	e.orders[id] = order
	e.gate.RecordSubmission(now)
	logs.Infof("%s order %s placed at %s for parent %s", label, id, price.StringFixed(5), parent.ClOrdID)
	e.publish(alert.KindProtectiveOrder, map[string]string{
		"clOrdID": id,
		"parent":  parent.ClOrdID,
		"kind":    label,
		"price":   price.StringFixed(5),
	})
	if e.journal != nil {
		e.journal.OrderSubmitted(*order)
	}
}
