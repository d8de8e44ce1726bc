// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "go.opentelemetry.io/wallprof/pprof"

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the pprof messages.
// See https://github.com/google/pprof/blob/main/proto/profile.proto
// Hard-coded rather than iota so they are not order-sensitive.
const (
	recProfileSampleType  protowire.Number = 1
	recProfileSample      protowire.Number = 2
	recProfileLocation    protowire.Number = 4
	recProfileFunction    protowire.Number = 5
	recProfileStringTable protowire.Number = 6

	recValueTypeType protowire.Number = 1
	recValueTypeUnit protowire.Number = 2

	recSampleLocationID protowire.Number = 1
	recSampleValue      protowire.Number = 2
	recSampleLabel      protowire.Number = 3

	recLabelKey protowire.Number = 1
	recLabelNum protowire.Number = 3

	recLocationID   protowire.Number = 1
	recLocationLine protowire.Number = 4

	recLineFunctionID protowire.Number = 1
	recLineLine       protowire.Number = 2

	recFunctionID       protowire.Number = 1
	recFunctionName     protowire.Number = 2
	recFunctionFilename protowire.Number = 4
)

// maxMessageSize is the largest message protobuf decoders accept.
const maxMessageSize = math.MaxInt32

// Serialize encodes the accumulated profile as an uncompressed pprof protobuf message.
//
// The output only depends on the sequence of recorded traces, so calling Serialize again
// without recording in between yields identical bytes.
func (a *Accumulator) Serialize() ([]byte, error) {
	var b []byte

	b = appendMessage(b, recProfileSampleType, func(b []byte) []byte {
		b = appendInt64(b, recValueTypeType, 1)
		return appendInt64(b, recValueTypeUnit, 2)
	})

	for i := range a.samples {
		b = appendMessage(b, recProfileSample, a.samples[i].encode)
	}
	for i := range a.locations {
		b = appendMessage(b, recProfileLocation, a.locations[i].encode)
	}
	for i := range a.functions {
		b = appendMessage(b, recProfileFunction, a.functions[i].encode)
	}
	for _, s := range a.strings.ToSlice() {
		// Repeated strings are always emitted, the empty string at index 0 included.
		b = protowire.AppendTag(b, recProfileStringTable, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}

	if len(b) > maxMessageSize {
		return nil, &SerializationError{
			Err: fmt.Errorf("encoded profile has %d bytes, limit is %d", len(b), maxMessageSize),
		}
	}

	log.Debugf("Serialized profile with %d samples, %d locations, %d functions, "+
		"%d strings into %d bytes", len(a.samples), len(a.locations), len(a.functions),
		a.strings.Len(), len(b))
	return b, nil
}

// WriteTo writes the gzip compressed profile to w, which is the framing pprof tooling
// expects for .pb.gz files.
func (a *Accumulator) WriteTo(w io.Writer) (int64, error) {
	data, err := a.Serialize()
	if err != nil {
		return 0, err
	}
	return writeCompressed(w, data)
}

// Profile parses the serialized profile back and validates it.
func (a *Accumulator) Profile() (*profile.Profile, error) {
	data, err := a.Serialize()
	if err != nil {
		return nil, err
	}
	return parseProfile(data)
}

func parseProfile(data []byte) (*profile.Profile, error) {
	p, err := profile.ParseData(data)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	if err = p.CheckValid(); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return p, nil
}

func writeCompressed(w io.Writer, data []byte) (int64, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return 0, &SerializationError{Err: err}
	}
	if err := zw.Close(); err != nil {
		return 0, &SerializationError{Err: err}
	}

	n, err := buf.WriteTo(w)
	if err != nil {
		return n, &SerializationError{Err: err}
	}
	return n, nil
}

func (s *sample) encode(b []byte) []byte {
	b = appendPackedUint64(b, recSampleLocationID, s.locationIDs)
	b = appendPackedUint64(b, recSampleValue, []uint64{uint64(s.value)})
	for i := range s.labels {
		b = appendMessage(b, recSampleLabel, s.labels[i].encode)
	}
	return b
}

func (l *label) encode(b []byte) []byte {
	b = appendInt64(b, recLabelKey, l.keyIdx)
	return appendInt64(b, recLabelNum, l.num)
}

func (l *location) encode(b []byte) []byte {
	b = appendUint64(b, recLocationID, l.id)
	return appendMessage(b, recLocationLine, l.line.encode)
}

func (l *line) encode(b []byte) []byte {
	b = appendUint64(b, recLineFunctionID, l.functionID)
	return appendInt64(b, recLineLine, l.line)
}

func (f *function) encode(b []byte) []byte {
	b = appendUint64(b, recFunctionID, f.id)
	b = appendInt64(b, recFunctionName, f.nameIdx)
	return appendInt64(b, recFunctionFilename, f.filenameIdx)
}

// appendMessage appends the embedded message produced by encode as field num.
func appendMessage(b []byte, num protowire.Number, encode func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, encode(nil))
}

// appendPackedUint64 appends values as a packed repeated varint field. Empty lists are
// omitted like any other default value.
func appendPackedUint64(b []byte, num protowire.Number, values []uint64) []byte {
	if len(values) == 0 {
		return b
	}
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// appendUint64 appends a scalar varint field, omitting the default value.
func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendUint64(b, num, uint64(v))
}
