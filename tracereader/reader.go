// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracereader decodes stack traces recorded by an external sampler. The input holds
// one JSON encoded trace per line:
//
//	{"trace":[{"name":"sleep","relative_path":"lib/timer.rb","lineno":10}],"pid":42,
//	 "thread_id":7,"time":"2024-03-01T12:00:00.005Z"}
package tracereader // import "go.opentelemetry.io/wallprof/tracereader"

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/wallprof/libpf"
)

const (
	initialLineSize = 64 * 1024
	// Deep stacks of long paths can get large, but anything beyond this is a broken input.
	maxLineSize = 16 * 1024 * 1024
)

// ErrMalformed is matched by errors about undecodable input lines.
var ErrMalformed = errors.New("malformed stack trace")

// Reader decodes stack traces from a JSON lines stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// New creates a Reader consuming r.
func New(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineSize), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next trace. Blank lines are skipped. At the end of the input io.EOF is
// returned.
func (r *Reader) Next() (*libpf.StackTrace, error) {
	for r.scanner.Scan() {
		r.line++
		data := bytes.TrimSpace(r.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var trace libpf.StackTrace
		if err := json.Unmarshal(data, &trace); err != nil {
			return nil, fmt.Errorf("%w at line %d: %w", ErrMalformed, r.line, err)
		}
		return &trace, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// Line returns the number of the line the last trace was read from.
func (r *Reader) Line() int {
	return r.line
}
