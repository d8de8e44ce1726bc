// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package xsync provides thin wrappers around locking primitives that keep the protected
// data out of reach unless the lock is held.
package xsync // import "go.opentelemetry.io/wallprof/libpf/xsync"
