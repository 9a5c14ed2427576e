package cache

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/LavishGent/larder/internal/types"
)

// JSONSerializer implements Serializer using JSON encoding.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Marshal serializes a value to JSON bytes.
func (s *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into the destination.
func (s *JSONSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// ZstdSerializer compresses the output of another Serializer with zstd.
type ZstdSerializer struct {
	inner types.Serializer
}

// NewZstdSerializer wraps inner. A nil inner uses JSON.
func NewZstdSerializer(inner types.Serializer) *ZstdSerializer {
	if inner == nil {
		inner = NewJSONSerializer()
	}
	return &ZstdSerializer{inner: inner}
}

// Marshal encodes v with the inner serializer and compresses the result.
func (s *ZstdSerializer) Marshal(v any) ([]byte, error) {
	raw, err := s.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal decompresses data and decodes it with the inner serializer.
func (s *ZstdSerializer) Unmarshal(data []byte, dest any) error {
	dec, err := getZstdDecoder()
	if err != nil {
		return fmt.Errorf("zstd decoder: %w", err)
	}
	defer zstdDecoderPool.Put(dec)

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	return s.inner.Unmarshal(raw, dest)
}

var (
	_ types.Serializer = (*JSONSerializer)(nil)
	_ types.Serializer = (*ZstdSerializer)(nil)
)
