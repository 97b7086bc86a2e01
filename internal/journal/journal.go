package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/og"
	"main/pkg/exception"
)

// OrderRow is the persisted snapshot of one order record. Each update
// overwrites the previous snapshot for the same client order id.
type OrderRow struct {
	ClOrdID     string    `gorm:"primaryKey;column:cl_ord_id"`
	ParentID    string    `gorm:"column:parent_id;index"`
	Role        string    `gorm:"column:role"`
	Symbol      string    `gorm:"column:symbol"`
	Side        string    `gorm:"column:side"`
	Lots        string    `gorm:"column:lots"`
	StopLoss    string    `gorm:"column:stop_loss"`
	TakeProfit  string    `gorm:"column:take_profit"`
	Status      string    `gorm:"column:status"`
	BrokerID    string    `gorm:"column:broker_id"`
	FillPrice   string    `gorm:"column:fill_price"`
	FilledQty   string    `gorm:"column:filled_qty"`
	DryRun      bool      `gorm:"column:dry_run"`
	SubmittedAt time.Time `gorm:"column:submitted_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// TableName sets the orders table name.
func (OrderRow) TableName() string {
	return "orders"
}

// ExecutionRow is one append-only entry in the execution history, written
// each time an execution report changes an order.
type ExecutionRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ClOrdID   string    `gorm:"column:cl_ord_id;index"`
	Status    string    `gorm:"column:status"`
	BrokerID  string    `gorm:"column:broker_id"`
	FillPrice string    `gorm:"column:fill_price"`
	FilledQty string    `gorm:"column:filled_qty"`
	At        time.Time `gorm:"column:at"`
}

// TableName sets the executions table name.
func (ExecutionRow) TableName() string {
	return "executions"
}

func rowFromOrder(o og.Order) OrderRow {
	return OrderRow{
		ClOrdID:     o.ClOrdID,
		ParentID:    o.ParentID,
		Role:        o.Role.String(),
		Symbol:      o.Symbol,
		Side:        o.Side.String(),
		Lots:        o.Lots.String(),
		StopLoss:    o.StopLoss.String(),
		TakeProfit:  o.TakeProfit.String(),
		Status:      o.Status.String(),
		BrokerID:    o.BrokerID,
		FillPrice:   o.FillPrice.String(),
		FilledQty:   o.FilledQty.String(),
		DryRun:      o.DryRun,
		SubmittedAt: o.SubmittedAt,
		UpdatedAt:   time.Now().UTC(),
	}
}

type entry struct {
	order  og.Order
	update bool
}

// Journal persists order snapshots and execution history to PostgreSQL
// from a buffered queue so the submission path never waits on the
// database.
type Journal struct {
	cfg Config
	db  *gorm.DB
	ch  chan entry
	wg  sync.WaitGroup

	started uint32
	closed  uint32
}

// Open connects to the database and migrates the orders table.
func Open(cfg Config) (*Journal, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}
	if err := db.AutoMigrate(&OrderRow{}, &ExecutionRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal tables")
	}
	return &Journal{
		cfg: cfg,
		db:  db,
		ch:  make(chan entry, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (j *Journal) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&j.started, 0, 1) {
		return exception.ErrJournalClosed
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.run(ctx)
	}()
	return nil
}

// Close stops the writer, drains buffered snapshots, and closes the
// connection pool.
func (j *Journal) Close() error {
	if atomic.CompareAndSwapUint32(&j.closed, 0, 1) {
		close(j.ch)
	}
	j.wg.Wait()
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OrderSubmitted records a newly created order.
func (j *Journal) OrderSubmitted(o og.Order) {
	j.enqueue(entry{order: o})
}

// OrderUpdated records an order after an execution report was applied.
func (j *Journal) OrderUpdated(o og.Order) {
	j.enqueue(entry{order: o, update: true})
}

func (j *Journal) enqueue(e entry) {
	if atomic.LoadUint32(&j.closed) != 0 {
		return
	}
	select {
	case j.ch <- e:
	default:
		logs.Warnf("%s, snapshot of %s dropped", exception.ErrJournalQueueFull, e.order.ClOrdID)
	}
}

func (j *Journal) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			j.drain()
			return
		case e, ok := <-j.ch:
			if !ok {
				return
			}
			j.persist(e)
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case e, ok := <-j.ch:
			if !ok {
				return
			}
			j.persist(e)
		default:
			return
		}
	}
}

func (j *Journal) persist(e entry) {
	row := rowFromOrder(e.order)
	err := j.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cl_ord_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		logs.Errorf("journal write for %s failed: %s", e.order.ClOrdID, err)
		return
	}
	if !e.update {
		return
	}
	exec := ExecutionRow{
		ClOrdID:   row.ClOrdID,
		Status:    row.Status,
		BrokerID:  row.BrokerID,
		FillPrice: row.FillPrice,
		FilledQty: row.FilledQty,
		At:        row.UpdatedAt,
	}
	if err := j.db.Create(&exec).Error; err != nil {
		logs.Errorf("journal execution write for %s failed: %s", e.order.ClOrdID, err)
	}
}
