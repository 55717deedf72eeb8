package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/bridge"
	"github.com/wippyai/steam-dispatch/config"
	"github.com/wippyai/steam-dispatch/dispatch"
	"github.com/wippyai/steam-dispatch/native/fake"
	"github.com/wippyai/steam-dispatch/schema"
)

func newRunCommand(opts *options) *cobra.Command {
	var statsEvery, demoEvery time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pump the callback queue and log every callback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Level())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPump(ctx, cfg, log, statsEvery, demoEvery)
		},
	}

	cmd.Flags().DurationVar(&statsEvery, "stats", 10*time.Second, "stats report period (0 disables)")
	cmd.Flags().DurationVar(&demoEvery, "demo", time.Second, "fake backend traffic period (0 disables)")
	return cmd
}

func runPump(ctx context.Context, cfg *config.Config, log *zap.Logger, statsEvery, demoEvery time.Duration) error {
	b, native, stop, err := startBridge(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stop()

	unsubscribe := b.Loop().Subscribe(dispatch.ObserverFunc(func(e dispatch.Event) {
		switch e.Type {
		case dispatch.EventDecodeFailed, dispatch.EventFetchDropped, dispatch.EventOrphaned:
			log.Debug("dispatch event",
				zap.Stringer("event", e.Type),
				zap.Uint64("tick", e.Tick),
				zap.Int32("callback", int32(e.Callback)),
				zap.Uint64("handle", uint64(e.Handle)),
				zap.Error(e.Err))
		case dispatch.EventTickFinished:
			if e.Stats.Drained > 0 {
				log.Debug("tick", zap.Uint64("tick", e.Tick), zap.Int("drained", e.Stats.Drained))
			}
		}
	}))
	defer unsubscribe()

	logCallbacks(b, log)

	log.Info("dispatching",
		zap.String("backend", cfg.Backend),
		zap.Duration("interval", b.Loop().Interval()),
		zap.Bool("manual_pump", cfg.ManualPump))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if sdk, ok := native.(*fake.SDK); ok && demoEvery > 0 {
		g.Go(func() error { return simulate(gctx, sdk, demoEvery) })
	}
	if cfg.ManualPump {
		g.Go(func() error { return pump(gctx, b, b.Loop().Interval()) })
	}
	if statsEvery > 0 {
		g.Go(func() error { return reportStats(gctx, b, log, statsEvery) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("stopping", zap.Uint64("ticks", b.Stats().Ticks))
	return nil
}

// broadcastIDs lists the table ids a persistent handler may own. Call
// completions go to continuations, and the ticket response is claimed per
// request by AuthSessionTicket.
func broadcastIDs(table *schema.Table) []steamdispatch.CallbackID {
	var ids []steamdispatch.CallbackID
	for _, id := range table.IDs() {
		switch id {
		case schema.IDCallCompleted, schema.IDGetAuthSessionTicketResponse:
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// logCallbacks installs a logging handler for every broadcast callback the
// table knows.
func logCallbacks(b *bridge.Bridge, log *zap.Logger) {
	table := b.Decoder().Table()
	for _, id := range broadcastIDs(table) {
		entry, _, _ := table.Lookup(id)
		name := entry.Name
		b.RegisterHandler(id, func(rec schema.Record) {
			log.Info("callback",
				zap.Int32("id", int32(rec.CallbackID())),
				zap.String("struct", name),
				zap.String("record", formatRecord(rec)))
		})
	}
}

func formatRecord(rec schema.Record) string {
	return fmt.Sprintf("%+v", rec)
}

func reportStats(ctx context.Context, b *bridge.Bridge, log *zap.Logger, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s := b.Stats()
			log.Info("stats",
				zap.Uint64("ticks", s.Ticks),
				zap.Stringer("state", s.State),
				zap.Int("drained", s.Totals.Drained),
				zap.Int("delivered", s.Totals.Delivered),
				zap.Int("orphaned", s.Totals.Orphaned),
				zap.Int("dropped", s.Totals.Dropped),
				zap.Int("failed", s.Totals.Failed),
				zap.Int("pending", s.Pending))
		}
	}
}
