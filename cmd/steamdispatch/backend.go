package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	steamdispatch "github.com/wippyai/steam-dispatch"
	"github.com/wippyai/steam-dispatch/bridge"
	"github.com/wippyai/steam-dispatch/config"
	"github.com/wippyai/steam-dispatch/native/fake"
	"github.com/wippyai/steam-dispatch/native/steamworks"
	"github.com/wippyai/steam-dispatch/native/wasmsdk"
	"github.com/wippyai/steam-dispatch/schema"
)

// shutdownTimeout bounds bridge teardown when a command exits.
const shutdownTimeout = 5 * time.Second

// openBackend loads the native SDK selected by cfg. The returned func
// releases backend resources after the bridge has shut down.
func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (steamdispatch.Native, func(), error) {
	switch cfg.Backend {
	case config.BackendFake:
		sdk := fake.New(&fake.Config{
			Files: cfg.FileBytes(),
			AppID: cfg.AppID,
			Pack:  cfg.Pack,
		})
		return sdk, func() {}, nil

	case config.BackendWasm:
		sdk, err := wasmsdk.LoadFile(ctx, cfg.WasmPath, &wasmsdk.Config{Logger: log})
		if err != nil {
			return nil, nil, err
		}
		return sdk, func() { _ = sdk.Close(context.Background()) }, nil

	default:
		sdk, err := steamworks.Open(cfg.LibraryPath, log)
		if err != nil {
			return nil, nil, err
		}
		return sdk, func() {}, nil
	}
}

// startBridge opens the backend and initializes a bridge over it. stop shuts
// the bridge down and releases the backend.
func startBridge(ctx context.Context, cfg *config.Config, log *zap.Logger) (b *bridge.Bridge, native steamdispatch.Native, stop func(), err error) {
	native, closeNative, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	b = bridge.New(native, cfg.BridgeConfig(log))
	if err := b.Initialize(ctx); err != nil {
		closeNative()
		return nil, nil, nil, err
	}

	stop = func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := b.Shutdown(sctx); err != nil {
			log.Warn("bridge shutdown", zap.Error(err))
		}
		closeNative()
	}
	return b, native, stop, nil
}

// pump drives the loop when the bridge runs with ManualPump.
func pump(ctx context.Context, b *bridge.Bridge, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := b.Poll(ctx); err != nil {
				return err
			}
		}
	}
}

// simulate feeds the fake SDK with overlay toggles, DLC installs and the
// occasional completion nobody waits for.
func simulate(ctx context.Context, sdk *fake.SDK, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		var err error
		switch n % 4 {
		case 0, 2:
			err = sdk.Emit(schema.GameOverlayActivated{AppID: 480, Active: n%4 == 0, UserInitiated: true})
		case 1:
			err = sdk.Emit(schema.DlcInstalled{AppID: uint32(1000 + n)})
		case 3:
			err = sdk.Complete(sdk.Issue(), schema.RemoteStorageFileWriteAsyncComplete{Result: schema.ResultOK}, false)
		}
		if err != nil {
			return err
		}
	}
}
