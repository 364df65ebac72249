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

package badger

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

// pointMUS encodes a core.Point in MUS format. Field order is fixed; append
// new fields at the end only.
var pointMUS = pointSer{}

type pointSer struct{}

func (pointSer) Marshal(p core.Point, bs []byte) (n int) {
	n = ord.String.Marshal(p.ChunkID, bs)
	n += payloadMUS.Marshal(p.Payload, bs[n:])
	n += varint.Int.Marshal(len(p.Vector), bs[n:])
	for _, f := range p.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (pointSer) Unmarshal(bs []byte) (p core.Point, n int, err error) {
	var n1 int
	if p.ChunkID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if p.Payload, n1, err = payloadMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var length int
	if length, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if length < 0 || length*4 > len(bs)-n {
		// raw.Float32 is fixed width.
		err = fmt.Errorf("%w: vector length %d", vectorstore.ErrSerializationFailed, length)
		return
	}
	p.Vector = make([]float32, length)
	for i := range p.Vector {
		if p.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	return
}

func (pointSer) Size(p core.Point) (size int) {
	size = ord.String.Size(p.ChunkID)
	size += payloadMUS.Size(p.Payload)
	size += varint.Int.Size(len(p.Vector))
	for _, f := range p.Vector {
		size += raw.Float32.Size(f)
	}
	return
}

var payloadMUS = payloadSer{}

type payloadSer struct{}

func (payloadSer) stringFields(p *core.Payload) []*string {
	return []*string{
		&p.DocumentID, &p.ChunkID, &p.PageContent, &p.Name, &p.Path,
		&p.UploadedBy, &p.OrganizationID, &p.FileType, &p.ContentHash, &p.EmbeddingModel,
	}
}

func (s payloadSer) Marshal(p core.Payload, bs []byte) (n int) {
	for _, f := range s.stringFields(&p) {
		n += ord.String.Marshal(*f, bs[n:])
	}
	n += varint.Int64.Marshal(p.FileSize, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(p.UploadedAt), bs[n:])
	n += varint.Int.Marshal(p.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(p.TotalChunks, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(p.StoredAt), bs[n:])
	return
}

func (s payloadSer) Unmarshal(bs []byte) (p core.Payload, n int, err error) {
	var n1 int
	for _, f := range s.stringFields(&p) {
		if *f, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	if p.FileSize, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	p.UploadedAt = microToTime(micros)
	if p.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if p.TotalChunks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	p.StoredAt = microToTime(micros)
	return
}

func (s payloadSer) Size(p core.Payload) (size int) {
	for _, f := range s.stringFields(&p) {
		size += ord.String.Size(*f)
	}
	size += varint.Int64.Size(p.FileSize)
	size += varint.Int64.Size(timeToMicro(p.UploadedAt))
	size += varint.Int.Size(p.ChunkIndex)
	size += varint.Int.Size(p.TotalChunks)
	size += varint.Int64.Size(timeToMicro(p.StoredAt))
	return
}

// The zero time is stored as 0.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// MarshalPoint serializes a point to bytes.
func MarshalPoint(p core.Point) []byte {
	buf := make([]byte, pointMUS.Size(p))
	pointMUS.Marshal(p, buf)
	return buf
}

// UnmarshalPoint deserializes a point from bytes.
func UnmarshalPoint(data []byte) (core.Point, error) {
	p, _, err := pointMUS.Unmarshal(data)
	if err != nil {
		return core.Point{}, fmt.Errorf("%w: %w", vectorstore.ErrSerializationFailed, err)
	}
	return p, nil
}
