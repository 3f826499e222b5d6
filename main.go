package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kapitanov/chip8tick/internal/hal"
	"github.com/kapitanov/chip8tick/internal/runner"
	"github.com/kapitanov/chip8tick/internal/term"
	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/spf13/cobra"
)

const (
	frontendSDL      = "sdl"
	frontendTerminal = "terminal"

	// A terminal key stays down this long after its last repeat.
	terminalKeyHold = 150 * time.Millisecond
)

type options struct {
	verbose    bool
	frontend   string
	cycle      time.Duration
	foreground string
	background string
	logFile    string
}

type frontend interface {
	runner.HAL
	Shutdown()
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var opts options
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log", "", "write logs to this file instead of stderr")
	cmd.Flags().StringVar(&opts.frontend, "frontend", frontendSDL, "display frontend: sdl or terminal")
	cmd.Flags().DurationVar(&opts.cycle, "cycle", runner.DefaultCycle, "wall time of one emulated cycle")
	cmd.Flags().StringVar(&opts.foreground, "fg", "bea700", "foreground color, hex RGB")
	cmd.Flags().StringVar(&opts.background, "bg", "000000", "background color, hex RGB")

	var logCloser io.Closer
	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		w, closer, err := logWriter(opts)
		if err != nil {
			return err
		}
		logCloser = closer

		slog.SetDefault(newLogger(w, opts.verbose))
		return nil
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0], opts)
	}

	cmd.AddCommand(newDisasmCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd.SetArgs(os.Args[1:])
	err := cmd.ExecuteContext(ctx)
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		// The frontend is shut down by now, stderr is safe again.
		slog.SetDefault(newLogger(os.Stderr, opts.verbose))
		slog.Error("fatal error", "err", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	loggerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if verbose {
		loggerOpts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, loggerOpts))
}

// logWriter picks the log destination. The terminal frontend owns the tty,
// so without --log its logs are dropped.
func logWriter(opts options) (io.Writer, io.Closer, error) {
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open log file %q: %w", opts.logFile, err)
		}
		return f, f, nil
	}

	if opts.frontend == frontendTerminal {
		return io.Discard, nil, nil
	}

	return os.Stderr, nil, nil
}

func run(ctx context.Context, path string, opts options) error {
	fg, err := parseColor(opts.foreground)
	if err != nil {
		return fmt.Errorf("invalid --fg: %w", err)
	}
	bg, err := parseColor(opts.background)
	if err != nil {
		return fmt.Errorf("invalid --bg: %w", err)
	}
	if opts.cycle < 0 {
		return fmt.Errorf("invalid --cycle %s: must not be negative", opts.cycle)
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to load file %q: %w", path, err)
	}

	var h frontend
	switch opts.frontend {
	case frontendSDL:
		h, err = hal.New(hal.Config{Foreground: fg, Background: bg})
	case frontendTerminal:
		hold := 1
		if opts.cycle > 0 {
			hold = int(terminalKeyHold / opts.cycle)
		}
		h, err = term.New(term.Config{Foreground: fg, Background: bg, HoldTicks: hold})
	default:
		return fmt.Errorf("unknown frontend %q", opts.frontend)
	}
	if err != nil {
		return fmt.Errorf("unable to initialize %s frontend: %w", opts.frontend, err)
	}
	defer h.Shutdown()

	for {
		machine := vm.New()
		machine.Load(bs)

		err = runner.Run(ctx, machine, h, runner.Config{Cycle: opts.cycle})

		switch {
		case errors.Is(err, runner.ErrReboot):
			slog.Info("reboot")
			continue

		case errors.Is(err, runner.ErrQuit), errors.Is(err, context.Canceled):
			return nil
		}

		return err
	}
}

func parseColor(s string) (uint32, error) {
	c, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return 0, err
	}
	if c > 0xffffff {
		return 0, fmt.Errorf("color %q out of range", s)
	}
	return uint32(c), nil
}

func newDisasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print the instructions of a program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			bs, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("unable to load file %q: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for _, line := range vm.Disassemble(bs, vm.ProgramStart) {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
