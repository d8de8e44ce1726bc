// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "go.opentelemetry.io/wallprof/pprof"

import (
	"io"

	"github.com/google/pprof/profile"

	"go.opentelemetry.io/wallprof/libpf"
	"go.opentelemetry.io/wallprof/libpf/xsync"
)

// Synced serializes access to an Accumulator so several producers can feed one profile and
// snapshots can be taken while recording continues.
type Synced struct {
	acc xsync.Mutex[*Accumulator]
}

// NewSynced wraps acc. The caller must not use acc directly afterwards.
func NewSynced(acc *Accumulator) *Synced {
	return &Synced{acc: xsync.NewMutex(acc)}
}

// Record calls Accumulator.Record under the lock.
func (s *Synced) Record(trace *libpf.StackTrace) error {
	return s.acc.Do(func(acc **Accumulator) error {
		return (*acc).Record(trace)
	})
}

// Serialize calls Accumulator.Serialize under the lock.
func (s *Synced) Serialize() ([]byte, error) {
	var data []byte
	err := s.acc.Do(func(acc **Accumulator) error {
		var err error
		data, err = (*acc).Serialize()
		return err
	})
	return data, err
}

// WriteTo writes the gzip compressed profile to w. Only encoding holds the lock,
// compression and I/O happen outside of it.
func (s *Synced) WriteTo(w io.Writer) (int64, error) {
	data, err := s.Serialize()
	if err != nil {
		return 0, err
	}
	return writeCompressed(w, data)
}

// NumSamples returns the number of recorded samples.
func (s *Synced) NumSamples() int {
	acc := s.acc.Lock()
	defer s.acc.Unlock(&acc)
	return (*acc).NumSamples()
}

// Profile returns the parsed and validated profile, see Accumulator.Profile.
func (s *Synced) Profile() (*profile.Profile, error) {
	data, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	return parseProfile(data)
}
