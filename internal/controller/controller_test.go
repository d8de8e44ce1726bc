// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/wallprof/pprof"
)

func traceLine(name string, lineno int, ms int) string {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
	return fmt.Sprintf(`{"trace":[{"name":%q,"relative_path":"app.rb","lineno":%d}],`+
		`"pid":1,"time":%q}`+"\n", name, lineno, ts.Format(time.RFC3339Nano))
}

func readProfile(t *testing.T, path string) *profile.Profile {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	p, err := profile.Parse(f)
	require.NoError(t, err)
	return p
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Input:         StdStream,
		Output:        "out.pb.gz",
		OnTimingError: TimingErrorDrop,
	}

	for _, tt := range []struct {
		name    string
		modify  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:    "no input",
			modify:  func(cfg *Config) { cfg.Input = "" },
			wantErr: "no input",
		},
		{
			name:    "no output",
			modify:  func(cfg *Config) { cfg.Output = "" },
			wantErr: "no output",
		},
		{
			name:    "unknown timing policy",
			modify:  func(cfg *Config) { cfg.OnTimingError = "clamp" },
			wantErr: "on-timing-error",
		},
		{
			name:    "negative snapshot interval",
			modify:  func(cfg *Config) { cfg.SnapshotInterval = -time.Second },
			wantErr: "snapshot interval",
		},
		{
			name: "snapshots to stdout",
			modify: func(cfg *Config) {
				cfg.Output = StdStream
				cfg.SnapshotInterval = time.Second
			},
			wantErr: "stdout",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunWritesProfile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wall.pb.gz")
	c := New(&Config{
		Input:          StdStream,
		Output:         out,
		OnTimingError:  TimingErrorAbort,
		ValidateOutput: true,
	})

	input := traceLine("f1", 10, 0) + traceLine("f1", 20, 5) + traceLine("f1", 10, 12)
	require.NoError(t, c.Run(context.Background(), strings.NewReader(input)))
	assert.Equal(t, Stats{Recorded: 3}, c.Stats())

	p := readProfile(t, out)
	require.Len(t, p.Sample, 3)
	assert.Len(t, p.Location, 2)
	assert.Len(t, p.Function, 1)
	assert.Equal(t, []int64{0}, p.Sample[0].Value)
	assert.Equal(t, []int64{5}, p.Sample[1].Value)
	assert.Equal(t, []int64{7}, p.Sample[2].Value)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(outputFileMode), info.Mode().Perm())

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunTimingPolicy(t *testing.T) {
	input := traceLine("a", 1, 10) + traceLine("b", 2, 5) + traceLine("c", 3, 20)

	for _, tt := range []struct {
		policy    string
		wantErr   bool
		wantStats Stats
	}{
		{
			policy:    TimingErrorDrop,
			wantStats: Stats{Recorded: 2, Dropped: 1},
		},
		{
			policy:    TimingErrorAbort,
			wantErr:   true,
			wantStats: Stats{Recorded: 1},
		},
	} {
		t.Run(tt.policy, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "wall.pb.gz")
			c := New(&Config{Input: StdStream, Output: out, OnTimingError: tt.policy})

			err := c.Run(context.Background(), strings.NewReader(input))
			assert.Equal(t, tt.wantStats, c.Stats())
			if tt.wantErr {
				require.ErrorIs(t, err, pprof.ErrTiming)
				assert.Contains(t, err.Error(), "line 2")
				assert.NoFileExists(t, out)
				return
			}
			require.NoError(t, err)
			p := readProfile(t, out)
			require.Len(t, p.Sample, 2)
			assert.Equal(t, []int64{10}, p.Sample[1].Value)
		})
	}
}

func TestRunMalformedInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wall.pb.gz")
	c := New(&Config{Input: StdStream, Output: out, OnTimingError: TimingErrorDrop})

	err := c.Run(context.Background(), strings.NewReader(traceLine("a", 1, 0)+"{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRunToStdout(t *testing.T) {
	var buf bytes.Buffer
	c := New(&Config{Input: StdStream, Output: StdStream, OnTimingError: TimingErrorDrop})
	c.stdout = &buf

	require.NoError(t, c.Run(context.Background(), strings.NewReader(traceLine("a", 1, 0))))

	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, p.Sample, 1)
}

func TestRunCancelled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wall.pb.gz")
	c := New(&Config{Input: StdStream, Output: out, OnTimingError: TimingErrorDrop})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, c.Run(ctx, strings.NewReader(traceLine("a", 1, 0))))
	assert.Equal(t, Stats{}, c.Stats())

	// The (empty) profile is still written.
	p := readProfile(t, out)
	assert.Empty(t, p.Sample)
}

func TestRunCancelledWhileReading(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wall.pb.gz")
	c := New(&Config{Input: StdStream, Output: out, OnTimingError: TimingErrorDrop})

	// The writer end stays open, so reads block after the first trace.
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx, pr)
	}()

	_, err := io.WriteString(pw, traceLine("a", 1, 0))
	require.NoError(t, err)
	cancel()

	select {
	case err = <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	p := readProfile(t, out)
	assert.Len(t, p.Sample, c.Stats().Recorded)
}

func TestRunSnapshots(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wall.pb.gz")
	c := New(&Config{
		Input:            StdStream,
		Output:           out,
		OnTimingError:    TimingErrorDrop,
		SnapshotInterval: 10 * time.Millisecond,
	})

	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(context.Background(), pr)
	}()

	_, err := io.WriteString(pw, traceLine("a", 1, 0)+traceLine("b", 2, 3))
	require.NoError(t, err)

	// A snapshot shows up while the input is still open.
	require.Eventually(t, func() bool {
		f, err := os.Open(out)
		if err != nil {
			return false
		}
		defer f.Close()
		p, err := profile.Parse(f)
		return err == nil && len(p.Sample) == 2
	}, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(pw, traceLine("c", 3, 9))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-errCh)

	p := readProfile(t, out)
	assert.Len(t, p.Sample, 3)
}
