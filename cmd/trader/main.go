package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/alert"
	"main/internal/journal"
	"main/internal/og"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/session"
)

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Errorf(string, ...interface{}) {}

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	profile := flag.Bool("profile", false, "Enable continuous profiling")
	profileAddr := flag.String("profile-addr", "http://localhost:4040", "Profiling server address")
	symbol := flag.String("symbol", "", "Submit one market order for this symbol after logon")
	side := flag.String("side", "buy", "Order side: buy or sell")
	lots := flag.String("lots", "0.01", "Order quantity in lots")
	stopLoss := flag.String("sl", "", "Stop-loss price for the submitted order")
	takeProfit := flag.String("tp", "", "Take-profit price for the submitted order")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *profile {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "fix/trader",
			ServerAddress:   *profileAddr,
			Tags: map[string]string{
				"env": "local",
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("profiler start failed: %s", err)
			os.Exit(1)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	intent, err := parseIntent(*symbol, *side, *lots, *stopLoss, *takeProfit)
	if err != nil {
		logs.Errorf("invalid order flags: %s", err)
		os.Exit(1)
	}

	if err := run(ctx, *configPath, intent); err != nil {
		logs.Errorf("trader exited: %s", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, intent *og.Intent) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	alerts := alert.NewQueue(loaded.AlertQueueSize)
	defer alerts.Close()
	go alerts.Run(ctx, func(e alert.Event) {
		logs.Infof("alert %s: %v", e.Kind, e.Fields)
	})

	var record og.Journal
	if loaded.JournalEnabled {
		j, err := journal.Open(loaded.Journal)
		if err != nil {
			return err
		}
		if err := j.Start(ctx); err != nil {
			return err
		}
		defer func() {
			_ = j.Close()
		}()
		record = j
	}

	sess := session.New(loaded.Session, nil)
	executor := og.New(
		og.Config{Account: loaded.Session.Account},
		sess,
		risk.NewGate(loaded.Limits),
		alerts,
		record,
	)
	sess.SetHandler(executor)

	if err := sess.Connect(ctx); err != nil {
		_ = alerts.TryPublish(alert.NewEvent(alert.KindConnectionFailed, map[string]string{
			"host":  loaded.Session.Host,
			"error": err.Error(),
		}))
		return err
	}
	defer sess.Disconnect()
	_ = alerts.TryPublish(alert.NewEvent(alert.KindConnectionUp, map[string]string{
		"host":   loaded.Session.Host,
		"sender": loaded.Session.SenderCompID,
	}))

	if intent != nil {
		res, err := executor.Submit(*intent)
		if err != nil {
			return err
		}
		if res.Accepted {
			logs.Infof("order %s submitted (dry-run=%v)", res.ClOrdID, res.DryRun)
		} else {
			logs.Warnf("order denied: %s", res.Reason)
		}
	}

	logs.Infof("trader running as %s, ctrl-c to stop", loaded.Session.SenderCompID)
	<-ctx.Done()
	logs.Info("shutting down")
	return nil
}

// parseIntent builds the order intent from flags. An empty symbol means
// no order is submitted and the process just holds the session open.
func parseIntent(symbol, side, lots, stopLoss, takeProfit string) (*og.Intent, error) {
	if symbol == "" {
		return nil, nil
	}

	intent := og.Intent{Symbol: symbol}
	switch side {
	case "buy":
		intent.Side = og.SideBuy
	case "sell":
		intent.Side = og.SideSell
	default:
		return nil, errors.New("side must be buy or sell")
	}

	var err error
	if intent.Lots, err = decimal.NewFromString(lots); err != nil {
		return nil, err
	}
	if stopLoss != "" {
		if intent.StopLoss, err = decimal.NewFromString(stopLoss); err != nil {
			return nil, err
		}
	}
	if takeProfit != "" {
		if intent.TakeProfit, err = decimal.NewFromString(takeProfit); err != nil {
			return nil, err
		}
	}
	return &intent, nil
}
