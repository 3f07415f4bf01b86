package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every type stored in Badger. Written by hand against
// the mus-go primitive serializers; field order is the struct field order
// and must not change without a storage migration. Timestamps are encoded
// as Unix microseconds.

var (
	// RoleMUS serializes a Role.
	RoleMUS = roleMUS{}
	// MessageMUS serializes a Message.
	MessageMUS = messageMUS{}
	// ConversationMUS serializes a Conversation.
	ConversationMUS = conversationMUS{}
	// ChunkMUS serializes a Chunk.
	ChunkMUS = chunkMUS{}
	// IngestedFileMUS serializes an IngestedFile.
	IngestedFileMUS = ingestedFileMUS{}
)

var errNegativeLength = errors.New("negative length")

// timeMUS encodes time.Time as Unix microseconds, restoring UTC on read.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type roleMUS struct{}

func (roleMUS) Marshal(r Role, bs []byte) int {
	return varint.Int.Marshal(int(r), bs)
}

func (roleMUS) Unmarshal(bs []byte) (Role, int, error) {
	v, n, err := varint.Int.Unmarshal(bs)
	return Role(v), n, err
}

func (roleMUS) Size(r Role) int {
	return varint.Int.Size(int(r))
}

// stringsMUS encodes a []string with a varint length prefix.
type stringsMUS struct{}

func (stringsMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringsMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]string, length)
	for i := range v {
		var nn int
		v[i], nn, err = ord.String.Unmarshal(bs[n:])
		n += nn
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringsMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// vectorMUS encodes a []float32 embedding with a varint length prefix.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	for i := range v {
		var nn int
		v[i], nn, err = raw.Float32.Unmarshal(bs[n:])
		n += nn
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type messageMUS struct{}

func (messageMUS) Marshal(m Message, bs []byte) (n int) {
	n = varint.Uint64.Marshal(m.Ordinal, bs)
	n += ord.String.Marshal(m.ConversationID, bs[n:])
	n += RoleMUS.Marshal(m.Role, bs[n:])
	n += ord.String.Marshal(m.Text, bs[n:])
	n += timeMUS{}.Marshal(m.CreatedAt, bs[n:])
	return n
}

func (messageMUS) Unmarshal(bs []byte) (m Message, n int, err error) {
	var nn int
	if m.Ordinal, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return m, n, err
	}
	if m.ConversationID, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return m, n + nn, err
	}
	n += nn
	if m.Role, nn, err = RoleMUS.Unmarshal(bs[n:]); err != nil {
		return m, n + nn, err
	}
	n += nn
	if m.Text, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return m, n + nn, err
	}
	n += nn
	if m.CreatedAt, nn, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return m, n + nn, err
	}
	n += nn
	return m, n, nil
}

func (messageMUS) Size(m Message) int {
	return varint.Uint64.Size(m.Ordinal) +
		ord.String.Size(m.ConversationID) +
		RoleMUS.Size(m.Role) +
		ord.String.Size(m.Text) +
		timeMUS{}.Size(m.CreatedAt)
}

type conversationMUS struct{}

func (conversationMUS) Marshal(c Conversation, bs []byte) (n int) {
	n = ord.String.Marshal(c.ID, bs)
	n += timeMUS{}.Marshal(c.CreatedAt, bs[n:])
	n += timeMUS{}.Marshal(c.UpdatedAt, bs[n:])
	n += varint.Uint64.Marshal(c.NextOrdinal, bs[n:])
	return n
}

func (conversationMUS) Unmarshal(bs []byte) (c Conversation, n int, err error) {
	var nn int
	if c.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return c, n, err
	}
	if c.CreatedAt, nn, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.UpdatedAt, nn, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.NextOrdinal, nn, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	return c, n, nil
}

func (conversationMUS) Size(c Conversation) int {
	return ord.String.Size(c.ID) +
		timeMUS{}.Size(c.CreatedAt) +
		timeMUS{}.Size(c.UpdatedAt) +
		varint.Uint64.Size(c.NextOrdinal)
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.ID, bs)
	n += ord.String.Marshal(c.Text, bs[n:])
	n += vectorMUS{}.Marshal(c.Vector, bs[n:])
	n += ord.String.Marshal(c.Metadata.DocID, bs[n:])
	n += ord.String.Marshal(c.Metadata.Source, bs[n:])
	n += stringsMUS{}.Marshal(c.Metadata.Keywords, bs[n:])
	n += ord.String.Marshal(c.Metadata.Summary, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var nn int
	if c.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return c, n, err
	}
	if c.Text, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.Vector, nn, err = (vectorMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.Metadata.DocID, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.Metadata.Source, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.Metadata.Keywords, nn, err = (stringsMUS{}).Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	if c.Metadata.Summary, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + nn, err
	}
	n += nn
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) int {
	return ord.String.Size(c.ID) +
		ord.String.Size(c.Text) +
		vectorMUS{}.Size(c.Vector) +
		ord.String.Size(c.Metadata.DocID) +
		ord.String.Size(c.Metadata.Source) +
		stringsMUS{}.Size(c.Metadata.Keywords) +
		ord.String.Size(c.Metadata.Summary)
}

type ingestedFileMUS struct{}

func (ingestedFileMUS) Marshal(f IngestedFile, bs []byte) (n int) {
	n = ord.String.Marshal(f.DocID, bs)
	n += ord.String.Marshal(f.FileName, bs[n:])
	n += timeMUS{}.Marshal(f.UploadedAt, bs[n:])
	return n
}

func (ingestedFileMUS) Unmarshal(bs []byte) (f IngestedFile, n int, err error) {
	var nn int
	if f.DocID, n, err = ord.String.Unmarshal(bs); err != nil {
		return f, n, err
	}
	if f.FileName, nn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return f, n + nn, err
	}
	n += nn
	if f.UploadedAt, nn, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return f, n + nn, err
	}
	n += nn
	return f, n, nil
}

func (ingestedFileMUS) Size(f IngestedFile) int {
	return ord.String.Size(f.DocID) +
		ord.String.Size(f.FileName) +
		timeMUS{}.Size(f.UploadedAt)
}
