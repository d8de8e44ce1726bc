// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libpf holds the value types exchanged between an external stack sampler and the
// profile accumulator.
package libpf // import "go.opentelemetry.io/wallprof/libpf"

// SourceLineno represents a line number within a source file.
type SourceLineno uint64

// PID represent Unix Process ID (pid_t)
type PID uint32

// TID represents a thread ID as reported by the sampler.
//
// pprof labels are signed, so values above math.MaxInt64 show up as negative thread_id
// labels in the profile.
type TID uint64
