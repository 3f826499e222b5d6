package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kapitanov/chip8tick/internal/vm"
)

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// HAL is a frontend: it collects input and presents frames. ReadInput may
// return ErrQuit or ErrReboot to stop the loop.
type HAL interface {
	ReadInput(keys *vm.Keypad) error
	Draw(frame vm.Frame) error
	Beep() error
}

// Machine is the part of the interpreter the loop drives.
type Machine interface {
	Tick(keys vm.Keypad) (vm.Frame, error)
	PC() uint16
	Waiting() bool
	SoundActive() bool
}

type Config struct {
	// Cycle is the wall time of one tick. Zero runs unpaced.
	Cycle time.Duration
}

const DefaultCycle = 2 * time.Millisecond

// Run ticks machine until the context is done, the frontend asks to stop,
// or the machine fails.
func Run(ctx context.Context, machine Machine, hal HAL, cfg Config) error {
	var pace <-chan time.Time
	if cfg.Cycle > 0 {
		ticker := time.NewTicker(cfg.Cycle)
		defer ticker.Stop()
		pace = ticker.C
	}

	var (
		keys     vm.Keypad
		looped   bool
		sounding bool
	)

	for {
		if err := hal.ReadInput(&keys); err != nil {
			return err
		}

		pc := machine.PC()
		wasWaiting := machine.Waiting()

		frame, err := machine.Tick(keys)
		if err != nil {
			return fmt.Errorf("tick at 0x%04x: %w", pc, err)
		}

		if frame.Changed {
			if err := hal.Draw(frame); err != nil {
				return err
			}
		}

		active := machine.SoundActive()
		if sounding && !active {
			if err := hal.Beep(); err != nil {
				return err
			}
		}
		sounding = active

		if !wasWaiting && machine.PC() == pc {
			if !looped {
				slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", pc))
			}
			looped = true
		} else {
			looped = false
		}

		if err := wait(ctx, pace); err != nil {
			return err
		}
	}
}

func wait(ctx context.Context, pace <-chan time.Time) error {
	if pace == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-pace:
		return nil
	}
}
