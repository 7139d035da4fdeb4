package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/blewire/internal/fakemanager"
	"github.com/srg/blewire/internal/fixture"
	"github.com/srg/blewire/internal/loop"
	"github.com/srg/blewire/internal/render"
	"github.com/srg/blewire/internal/tap"
	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/config"
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/plugin"
	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
)

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.yaml>",
	Short: "Replay a fixture through the boundary",
	Long: `Replay runs a fixture against a scripted BLE manager. Calls go through the same
routing, conversion and transaction handling a host would use; native events go through
the event dispatcher onto the five event channels. Every call result and every channel
delivery is printed in order.

Fixture format:

  name: heart-rate
  revision: current            # or legacy; defaults to the configured revision
  replies:                     # canned manager answers, per operation
    state: {resolve: !i64 5}
    readCharacteristic: {reject: {code: "401", message: not readable}}
  steps:
    - call: createClient
    - call: readCharacteristic
      auto_transaction: true   # adds a generated transactionId
      args: {characteristicIdentifier: 7.0}
    - event: StateChangeEvent
      value: PoweredOn
    - cancel: mon-1

Integers are 64-bit unless tagged !i32; use !f64 for doubles written without a fraction.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayFormat   string
	replayRevision string
	replayNoColor  bool
)

func init() {
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "", "Output format (json, text); defaults to the configured format")
	replayCmd.Flags().StringVar(&replayRevision, "revision", "", "Record revision (current, legacy); overrides the fixture")
	replayCmd.Flags().BoolVar(&replayNoColor, "no-color", false, "Disable colored text output")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if replayFormat != "" {
		cfg.OutputFormat = replayFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := configureLogger(cmd, cfg, "verbose")
	if err != nil {
		return err
	}

	fx, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	rev := cfg.Revision
	if fx.Revision != nil {
		rev = *fx.Revision
	}
	if replayRevision != "" {
		if rev, err = convert.ParseRevision(replayRevision); err != nil {
			return err
		}
	}

	cmd.SilenceUsage = true

	r := newReplayer(cfg, rev, logger)
	entries, err := r.run(cmd.Context(), fx)

	out := cmd.OutOrStdout()
	if werr := writeEntries(out, entries, cfg.OutputFormat, useColor(out)); werr != nil {
		return werr
	}
	return err
}

// useColor reports whether colored text output goes to a terminal.
func useColor(w io.Writer) bool {
	if replayNoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ----------------------------
// replayer
// ----------------------------

type entryKind int

const (
	entryCall entryKind = iota
	entryDelivery
	entryCancel
)

type entry struct {
	step     int
	kind     entryKind
	name     string
	txID     string
	result   call.Result
	delivery tap.Delivery
	err      *protocol.Error
}

type replayer struct {
	cfg      *config.Config
	rev      convert.Revision
	logger   *logrus.Logger
	manager  *fakemanager.Manager
	reporter *fatal.Recorder
	newTxID  func() string
}

func newReplayer(cfg *config.Config, rev convert.Revision, logger *logrus.Logger) *replayer {
	return &replayer{
		cfg:      cfg,
		rev:      rev,
		logger:   logger,
		manager:  fakemanager.New(),
		reporter: &fatal.Recorder{},
		newTxID:  uuid.NewString,
	}
}

// run executes every step on a dedicated loop and returns what was observed, in order.
// A contract violation stops the replay; entries gathered so far are still returned.
func (r *replayer) run(ctx context.Context, fx *fixture.Fixture) ([]entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for op, reply := range fx.Replies {
		if reply.Reject != nil {
			r.manager.On(op, fakemanager.Rejects(reply.Reject.Code, reply.Reject.Message))
		} else {
			r.manager.On(op, fakemanager.Resolves(reply.Resolve.Value))
		}
	}

	tp, err := tap.New(r.cfg.TapBuffer)
	if err != nil {
		return nil, err
	}

	lp := loop.Start(ctx, "replay-loop", r.logger)

	p := plugin.New(r.manager.Factory(),
		plugin.WithLogger(r.logger),
		plugin.WithReporter(r.reporter),
		plugin.WithRevision(r.rev),
		plugin.WithNamespace(r.cfg.Namespace),
		plugin.WithExecutor(lp.Execute),
	)

	tp.Attach(p.Channels().All()...)

	var (
		entries []entry
		cancels []context.CancelFunc
		failure error
		current int
	)
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	for i, step := range fx.Steps {
		n := i + 1
		if err := ctx.Err(); err != nil {
			failure = err
			break
		}
		logger := r.logger.WithFields(logrus.Fields{"step": n, "kind": step.Kind})

		ok := lp.Sync(func() {
			current = n
			switch step.Kind {
			case fixture.StepCall:
				callCtx, cancel := r.callContext(ctx)
				cancels = append(cancels, cancel)

				c, txID := r.prepare(step)
				logger.WithField("method", c.Method).Debug("Replaying call")
				// Pending calls complete during a later step; they are reported under that step.
				p.Handle(callCtx, c, func(res call.Result) {
					entries = append(entries, entry{step: current, kind: entryCall, name: c.Method, txID: txID, result: res})
				})

			case fixture.StepEvent:
				logger.WithField("event", step.Event).Debug("Replaying event")
				r.manager.Emit(step.Event, step.Value)

			case fixture.StepCancel:
				e := entry{step: n, kind: entryCancel, txID: step.TransactionID}
				if err := p.CancelTransaction(step.TransactionID); err != nil {
					var perr *protocol.Error
					if !errors.As(err, &perr) {
						perr = protocol.NewError(protocol.CodeUnknown, err.Error())
					}
					e.err = perr
				}
				entries = append(entries, e)
			}

			for _, d := range tp.Drain() {
				entries = append(entries, entry{step: n, kind: entryDelivery, name: d.Channel, delivery: d})
			}
		})
		if !ok {
			failure = ctx.Err()
			break
		}
		if v := r.reporter.Last(); v != nil {
			failure = fmt.Errorf("%w at step %d: %w", ErrContractViolated, n, v)
			break
		}
	}

	lp.Stop()
	tp.Detach()

	if dropped := tp.Dropped(); dropped > 0 {
		r.logger.WithField("dropped", dropped).Warn("Tap buffer overflowed, deliveries lost")
	}
	r.logger.WithFields(logrus.Fields{"entries": len(entries), "pending": p.Pending()}).Debug("Replay finished")
	return entries, failure
}

func (r *replayer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// prepare builds the call of step, generating a transaction id when asked to.
func (r *replayer) prepare(step fixture.Step) (plugin.Call, string) {
	c := plugin.Call{Method: step.Method, Args: step.Args, Payload: step.Payload}

	var txID string
	if rec, ok := step.Args.AsRecord(); ok {
		txID, _ = rec["transactionId"].AsString()
	}
	if step.AutoTransaction {
		txID = r.newTxID()
		rec, _ := step.Args.AsRecord()
		c.Args = native.RecordOf(rec.With("transactionId", native.String(txID)))
	}
	return c, txID
}

// ----------------------------
// output
// ----------------------------

// channelTypes maps a channel suffix to the message type it carries.
var channelTypes = map[string]string{
	stream.ScanResults:           "scanResult",
	stream.ConnectionChanges:     "device",
	stream.CharacteristicMonitor: "monitorCharacteristic",
}

func (e entry) object() (*render.Object, error) {
	obj := render.NewObject()
	obj.Set("step", e.step)

	switch e.kind {
	case entryCall:
		obj.Set("call", e.name)
		if e.txID != "" {
			obj.Set("transactionId", e.txID)
		}
		if e.result.Err != nil {
			obj.Set("error", render.Error(e.result.Err))
			return obj, nil
		}
		v, err := resultValue(e.result)
		if err != nil {
			return nil, err
		}
		obj.Set("result", v)

	case entryCancel:
		obj.Set("cancel", e.txID)
		if e.err != nil {
			obj.Set("error", render.Error(e.err))
		}

	case entryDelivery:
		obj.Set("channel", e.name)
		if e.delivery.Err != nil {
			obj.Set("error", render.Error(e.delivery.Err))
			return obj, nil
		}
		v, err := deliveryValue(e.name, e.delivery.Data)
		if err != nil {
			return nil, err
		}
		obj.Set("data", v)
	}
	return obj, nil
}

func resultValue(r call.Result) (any, error) {
	if r.Message != nil {
		return render.Message(r.Message)
	}
	return r.Value, nil
}

func deliveryValue(channel string, data any) (any, error) {
	switch v := data.(type) {
	case []byte:
		suffix := channel[strings.LastIndex(channel, "/")+1:]
		m, err := render.Decode(channelTypes[suffix], v)
		if err != nil {
			return nil, err
		}
		return render.Message(m)
	case int:
		state := render.NewObject()
		state.Set("code", v)
		state.Set("name", protocol.BluetoothState(v).String())
		return state, nil
	case native.Record:
		return render.Native(native.RecordOf(v)), nil
	}
	return data, nil
}

func writeEntries(w io.Writer, entries []entry, format string, colored bool) error {
	for _, e := range entries {
		obj, err := e.object()
		if err != nil {
			return err
		}
		if format == "text" {
			if err := writeText(w, e, obj, colored); err != nil {
				return err
			}
			continue
		}
		b, err := render.JSON(obj, false)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, e entry, obj *render.Object, colored bool) error {
	label := color.New(color.FgCyan)
	body := color.New(color.FgGreen)
	failed := color.New(color.FgRed)
	for _, c := range []*color.Color{label, body, failed} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var head, payloadKey string
	switch e.kind {
	case entryCall:
		head, payloadKey = "call "+e.name, "result"
		if e.txID != "" {
			head += " [" + e.txID + "]"
		}
	case entryCancel:
		head = "cancel " + e.txID
	case entryDelivery:
		head, payloadKey = e.name, "data"
	}

	line := fmt.Sprintf("#%d %s", e.step, label.Sprint(head))
	if errObj, ok := obj.Get("error"); ok {
		b, err := render.JSON(errObj, false)
		if err != nil {
			return err
		}
		line += " ! " + failed.Sprint(string(b))
	} else if payloadKey != "" {
		v, _ := obj.Get(payloadKey)
		b, err := render.JSON(v, false)
		if err != nil {
			return err
		}
		line += " " + body.Sprint(string(b))
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
