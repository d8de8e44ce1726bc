// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tracereader

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/wallprof/libpf"
)

func readAll(t *testing.T, input string) ([]*libpf.StackTrace, error) {
	t.Helper()
	r := New(strings.NewReader(input))
	var traces []*libpf.StackTrace
	for {
		trace, err := r.Next()
		if err == io.EOF {
			return traces, nil
		}
		if err != nil {
			return traces, err
		}
		traces = append(traces, trace)
	}
}

func TestReaderDecodesTraces(t *testing.T) {
	input := `{"trace":[{"name":"sleep","relative_path":"lib/timer.rb",` +
		`"absolute_path":"/srv/lib/timer.rb","lineno":10},` +
		`{"name":"<main>","relative_path":"bin/app","lineno":1}],` +
		`"pid":42,"thread_id":7,"time":"2024-03-01T12:00:00.005Z"}

{"trace":[]}
`
	traces, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	first := traces[0]
	assert.Equal(t, []libpf.StackFrame{
		{
			Name:         "sleep",
			RelativePath: "lib/timer.rb",
			AbsolutePath: "/srv/lib/timer.rb",
			Lineno:       10,
		},
		{Name: "<main>", RelativePath: "bin/app", Lineno: 1},
	}, first.Trace)
	require.NotNil(t, first.PID)
	assert.Equal(t, libpf.PID(42), *first.PID)
	require.NotNil(t, first.ThreadID)
	assert.Equal(t, libpf.TID(7), *first.ThreadID)
	require.NotNil(t, first.Time)
	assert.True(t, time.Date(2024, 3, 1, 12, 0, 0, 5e6, time.UTC).Equal(*first.Time))

	second := traces[1]
	assert.Empty(t, second.Trace)
	assert.Nil(t, second.PID)
	assert.Nil(t, second.ThreadID)
	assert.Nil(t, second.Time)
}

func TestReaderMalformed(t *testing.T) {
	for _, tt := range []struct {
		name     string
		input    string
		wantLine string
		wantRead int
	}{
		{
			name:     "not json",
			input:    "{\"trace\":[]}\nnot json\n",
			wantLine: "line 2",
			wantRead: 1,
		},
		{
			name:     "negative pid",
			input:    "\n\n{\"pid\":-1}\n",
			wantLine: "line 3",
		},
		{
			name:     "bad time",
			input:    "{\"time\":\"yesterday\"}\n",
			wantLine: "line 1",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			traces, err := readAll(t, tt.input)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tt.wantLine)
			assert.Len(t, traces, tt.wantRead)
		})
	}
}

func TestReaderLine(t *testing.T) {
	r := New(strings.NewReader("\n{}\n\n{}\n"))

	_, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Line())

	_, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Line())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
