package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/catalogsync/core"
)

// VectorMUS encodes an embedding as a varint length followed by raw float32s.
var VectorMUS = ord.NewSliceSer[float32](raw.Float32)

// CheckpointMUS is the MUS serializer for core.Checkpoint.
var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v core.Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.RunID, bs)
	n += raw.TimeUnixMicroUTC.Marshal(v.StartedAt, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.FinishedAt, bs[n:])
	n += varint.Int.Marshal(v.Processed, bs[n:])
	n += varint.Int.Marshal(v.Succeeded, bs[n:])
	n += varint.Int.Marshal(v.Failed, bs[n:])
	n += varint.Int.Marshal(v.Stores, bs[n:])
	n += varint.Int.Marshal(v.StoresFailed, bs[n:])
	n += varint.Int64.Marshal(int64(v.Duration), bs[n:])
	return n + ord.String.Marshal(v.Error, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v core.Checkpoint, n int, err error) {
	v.RunID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.StartedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FinishedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*int{&v.Processed, &v.Succeeded, &v.Failed, &v.Stores, &v.StoresFailed} {
		*field, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	var duration int64
	duration, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Duration = time.Duration(duration)
	v.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v core.Checkpoint) (size int) {
	size = ord.String.Size(v.RunID)
	size += raw.TimeUnixMicroUTC.Size(v.StartedAt)
	size += raw.TimeUnixMicroUTC.Size(v.FinishedAt)
	size += varint.Int.Size(v.Processed)
	size += varint.Int.Size(v.Succeeded)
	size += varint.Int.Size(v.Failed)
	size += varint.Int.Size(v.Stores)
	size += varint.Int.Size(v.StoresFailed)
	size += varint.Int64.Size(int64(v.Duration))
	return size + ord.String.Size(v.Error)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
