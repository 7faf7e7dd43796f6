// Package main provides the CLI entrypoint for waysay.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/waysay/internal/config"
	"github.com/jmylchreest/waysay/internal/proto"
	"github.com/jmylchreest/waysay/internal/session"
	"github.com/jmylchreest/waysay/internal/theme"
	"github.com/jmylchreest/waysay/internal/wire"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var logger *slog.Logger

// rootCmd represents the bar invocation. Flag parsing is done by
// config.Parse because --button consumes two positional tokens, which
// standard flag handling cannot express.
var rootCmd = &cobra.Command{
	Use:   "waysay -m <message> [-t <type>] [-b <label> <command>]...",
	Short: "Modal notification bar for wlroots compositors",
	Long: `waysay renders a message bar with clickable action buttons on the
wlr-layer-shell overlay layer. Activating a button runs its command in a
detached shell; pressing escape or the dismiss button closes the bar.`,
	Version:            fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if slices.Contains(args, "-h") || slices.Contains(args, "--help") {
			return cmd.Help()
		}
		opts, err := config.Parse(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			cmd.Usage()
			return err
		}
		setupLogger(opts.Verbose)
		return run(opts)
	},
}

// Execute runs the bar and exits with the code of whatever ended it.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && wire.Fatal(err) {
		fmt.Fprintln(os.Stderr, "waysay:", err)
	}
	os.Exit(wire.ExitCode(err))
}

func run(opts *config.Options) error {
	if opts.DetailedMessage {
		detail, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("%w: read detailed message: %v", wire.ErrIO, err)
		}
		opts.Detail = string(detail)
	}

	themePath := opts.ThemePath
	if themePath == "" {
		themePath = theme.Path()
	}
	th, err := theme.Load(themePath)
	if err != nil {
		logger.Warn("falling back to built-in theme", "error", err)
		th = theme.Default()
	}

	conn, err := wire.Dial(logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	display := proto.NewDisplay(conn)
	globals, err := proto.BindGlobals(conn, display)
	if err != nil {
		return err
	}

	sess, err := session.New(conn, globals, *opts, th.ForType(opts.MessageType), logger)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	return sess.Run(sig)
}

// setupLogger configures the global slog logger.
func setupLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout stays clean.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
