package kvstore

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is the stored form of an entity row or a join-table entry.
type Record struct {
	ID        string            `msgpack:"id" bson:"id"`
	Fields    map[string]any    `msgpack:"fields,omitempty" bson:"fields,omitempty"`
	Relations map[string]string `msgpack:"relations,omitempty" bson:"relations,omitempty"`
	Links     []string          `msgpack:"links,omitempty" bson:"links,omitempty"`
}

// Codec encodes records.
type Codec interface {
	Name() string
	Encode(Record) ([]byte, error)
	Decode([]byte) (Record, error)
}

// Msgpack encodes records as MessagePack.
type Msgpack struct{}

// Name implements Codec.
func (Msgpack) Name() string { return "msgpack" }

// Encode implements Codec.
func (Msgpack) Encode(r Record) ([]byte, error) {
	return msgpack.Marshal(&r)
}

// Decode implements Codec.
func (Msgpack) Decode(b []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("kvstore: msgpack: %w", err)
	}
	return r, nil
}

// BSON encodes records as BSON documents.
type BSON struct{}

// Name implements Codec.
func (BSON) Name() string { return "bson" }

// Encode implements Codec.
func (BSON) Encode(r Record) ([]byte, error) {
	return bson.Marshal(r)
}

// Decode implements Codec. BSON datetimes are returned as time.Time.
func (BSON) Decode(b []byte) (Record, error) {
	var r Record
	if err := bson.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("kvstore: bson: %w", err)
	}
	for k, v := range r.Fields {
		if dt, ok := v.(primitive.DateTime); ok {
			r.Fields[k] = dt.Time().UTC()
		}
	}
	return r, nil
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return Msgpack{}, nil
	case "bson":
		return BSON{}, nil
	}
	return nil, fmt.Errorf("kvstore: unknown codec %q", name)
}
