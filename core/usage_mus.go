// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// UsageRecordMUS serializes UsageRecord values. LastUsed is stored as unix
// microseconds; the zero time round-trips as the zero time.
var UsageRecordMUS = usageRecordMUS{}

var _ mus.Serializer[UsageRecord] = UsageRecordMUS

type usageRecordMUS struct{}

func (s usageRecordMUS) Marshal(v UsageRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Uint64.Marshal(v.Count, bs[n:])
	return n + varint.Int64.Marshal(unixMicro(v.LastUsed), bs[n:])
}

func (s usageRecordMUS) Unmarshal(bs []byte) (v UsageRecord, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Count, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if micros != 0 {
		v.LastUsed = time.UnixMicro(micros).UTC()
	}
	return
}

func (s usageRecordMUS) Size(v UsageRecord) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Uint64.Size(v.Count)
	return size + varint.Int64.Size(unixMicro(v.LastUsed))
}

func (s usageRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
