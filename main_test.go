package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in       string
		expected uint32
		valid    bool
	}{
		{"bea700", 0xbea700, true},
		{"#ffffff", 0xffffff, true},
		{"0", 0, true},
		{"1000000", 0, false},
		{"green", 0, false},
	}

	for _, tt := range tests {
		c, err := parseColor(tt.in)
		assert.Equal(t, tt.valid, err == nil)
		assert.Equal(t, tt.expected, c)
	}
}

func TestLogWriter(t *testing.T) {
	t.Run("sdl logs to stderr", func(t *testing.T) {
		w, closer, err := logWriter(options{frontend: frontendSDL})
		assert.NoError(t, err)
		assert.Nil(t, closer)
		assert.True(t, w == os.Stderr)
	})

	t.Run("terminal keeps the tty clean", func(t *testing.T) {
		w, closer, err := logWriter(options{frontend: frontendTerminal, verbose: true})
		assert.NoError(t, err)
		assert.Nil(t, closer)
		assert.True(t, w == io.Discard)
	})

	t.Run("log file wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chip8.log")
		w, closer, err := logWriter(options{frontend: frontendTerminal, logFile: path})
		assert.NoError(t, err)
		assert.NotNil(t, closer)

		newLogger(w, false).Info("load program", "n", 4)
		assert.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		assert.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "msg=\"load program\""))
	})

	t.Run("unwritable log file", func(t *testing.T) {
		_, _, err := logWriter(options{logFile: filepath.Join(t.TempDir(), "missing", "chip8.log")})
		assert.Error(t, err)
	})
}

func TestDisasmCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.ch8")
	assert.NoError(t, os.WriteFile(path, []byte{0x60, 0x05, 0x70, 0x03}, 0o600))

	var out bytes.Buffer
	cmd := newDisasmCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	assert.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"0x0200  6005  mov v0, 5",
		"0x0202  7003  add v0, 3",
	}, lines)
}
