// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vc provides buildtime information.
package vc // import "go.opentelemetry.io/wallprof/vc"

import "fmt"

var (
	// The following variables are set at link time using ldflags, e.g.
	// -ldflags "-X go.opentelemetry.io/wallprof/vc.version=v0.1.0".

	// revision of the tool
	revision = ""
	// buildTimestamp, timestamp of the build
	buildTimestamp = ""
	// version in vX.Y.Z{-N-abbrev} format (via git-describe --tags)
	version = ""
)

// Revision of the tool.
func Revision() string {
	return revision
}

// BuildTimestamp returns the timestamp of the build.
func BuildTimestamp() string {
	return buildTimestamp
}

// Version in vX.Y.Z{-N-abbrev} format. Development builds report "dev".
func Version() string {
	if version == "" {
		return "dev"
	}
	return version
}

// String returns a one line summary of the build.
func String() string {
	return fmt.Sprintf("%s (revision %s, build timestamp %s)",
		Version(), orUnknown(revision), orUnknown(buildTimestamp))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
