package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/steam-dispatch/bridge"
	"github.com/wippyai/steam-dispatch/config"
)

const ticketTimeout = 10 * time.Second

var (
	infoHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	infoKey    = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("241"))
)

func newInfoCommand(opts *options) *cobra.Command {
	var ticket bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the client state and the callback table",
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

			ctx := cmd.Context()
			b, _, stop, err := startBridge(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stop()

			return printInfo(ctx, cmd.OutOrStdout(), b, cfg, ticket)
		},
	}

	cmd.Flags().BoolVar(&ticket, "ticket", false, "also request an auth session ticket")
	return cmd
}

func printInfo(ctx context.Context, w io.Writer, b *bridge.Bridge, cfg *config.Config, ticket bool) error {
	appID, err := b.AppID()
	if err != nil {
		return err
	}
	steamID, err := b.SteamID()
	if err != nil {
		return err
	}
	lang, err := b.CurrentGameLanguage()
	if err != nil {
		return err
	}
	beta, err := b.CurrentBetaName()
	if err != nil {
		return err
	}
	dlc, err := b.DLCCount()
	if err != nil {
		return err
	}
	deck, err := b.IsSteamRunningOnSteamDeck()
	if err != nil {
		return err
	}
	phoneID, err := b.IsPhoneIdentifying()
	if err != nil {
		return err
	}
	phoneOK, err := b.IsPhoneVerified()
	if err != nil {
		return err
	}

	if beta == "" {
		beta = "default"
	}

	row := func(k string, v any) {
		fmt.Fprintf(w, "%s%v\n", infoKey.Render(k), v)
	}

	fmt.Fprintln(w, infoHeader.Render("Client"))
	row("backend", cfg.Backend)
	row("app id", appID)
	row("steam id", steamID)
	row("language", lang)
	row("branch", beta)
	row("dlc", dlc)
	row("steam deck", deck)
	row("phone ident", phoneID)
	row("phone verified", phoneOK)

	if ticket {
		hex, err := requestTicket(ctx, b, cfg)
		if err != nil {
			return err
		}
		row("ticket", hex)
	}

	table := b.Decoder().Table()
	fmt.Fprintln(w)
	fmt.Fprintln(w, infoHeader.Render(fmt.Sprintf("Callbacks (pack %d)", table.Pack())))
	for _, id := range table.IDs() {
		entry, info, _ := table.Lookup(id)
		fmt.Fprintf(w, "%6d  %-44s %4d bytes\n", id, entry.Name, info.Size)
	}
	return nil
}

func requestTicket(ctx context.Context, b *bridge.Bridge, cfg *config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ticketTimeout)
	defer cancel()

	if cfg.ManualPump {
		pctx, stopPump := context.WithCancel(ctx)
		defer stopPump()
		go func() { _ = pump(pctx, b, b.Loop().Interval()) }()
	}
	return b.AuthSessionTicket(ctx)
}
