// Package wire implements a small typed-value encoder used for the
// extensible fields riding inside otherwise fixed-layout packets: terminal
// capability records (CLIENT_JOIN), preference flags, and similar
// variable-shaped but small metadata. It deliberately supports only the
// handful of Go types this protocol actually needs, unlike a general
// serialization format.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	wireerrors "github.com/asciichat/asciichat/internal/errors"
)

// Marker bytes identifying the type of the value that follows.
const (
	markerNull   byte = 0x00
	markerBool   byte = 0x01
	markerUint64 byte = 0x02
	markerString byte = 0x03
	markerBytes  byte = 0x04
)

// EncodeValue encodes a single value to w using dynamic dispatch on the Go
// type. Supported Go types: nil, bool, uint64 (and any unsigned integer
// width, widened to 64 bits), string, []byte. Any other type results in a
// *errors.CodecError.
func EncodeValue(w io.Writer, v interface{}) error {
	if err := encodeAny(w, v); err != nil {
		return wireerrors.NewCodecError("wire.encode_value", err)
	}
	return nil
}

func encodeAny(w io.Writer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		_, err := w.Write([]byte{markerNull})
		return err
	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		_, err := w.Write([]byte{markerBool, b})
		return err
	case uint64:
		buf := make([]byte, 9)
		buf[0] = markerUint64
		binary.LittleEndian.PutUint64(buf[1:], val)
		_, err := w.Write(buf)
		return err
	case uint32:
		return encodeAny(w, uint64(val))
	case uint16:
		return encodeAny(w, uint64(val))
	case int:
		return encodeAny(w, uint64(val))
	case string:
		return encodeLenPrefixed(w, markerString, []byte(val))
	case []byte:
		return encodeLenPrefixed(w, markerBytes, val)
	default:
		return fmt.Errorf("wire: unsupported type %T", v)
	}
}

func encodeLenPrefixed(w io.Writer, marker byte, b []byte) error {
	hdr := make([]byte, 5)
	hdr[0] = marker
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(b)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// EncodeAll encodes a sequence of values in order and returns the
// concatenated bytes, suitable for an extensible packet's trailing fields.
func EncodeAll(values ...interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for i, v := range values {
		if err := EncodeValue(&buf, v); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a single value from r, dispatching on the leading
// marker byte.
func DecodeValue(r io.Reader) (interface{}, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return nil, wireerrors.NewCodecError("wire.decode_value.marker", err)
	}
	switch marker[0] {
	case markerNull:
		return nil, nil
	case markerBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, wireerrors.NewCodecError("wire.decode_value.bool", err)
		}
		return b[0] != 0, nil
	case markerUint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, wireerrors.NewCodecError("wire.decode_value.uint64", err)
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	case markerString:
		b, err := decodeLenPrefixed(r)
		if err != nil {
			return nil, wireerrors.NewCodecError("wire.decode_value.string", err)
		}
		return string(b), nil
	case markerBytes:
		b, err := decodeLenPrefixed(r)
		if err != nil {
			return nil, wireerrors.NewCodecError("wire.decode_value.bytes", err)
		}
		return b, nil
	default:
		return nil, wireerrors.NewCodecError("wire.decode_value.unsupported", fmt.Errorf("unsupported marker 0x%02x", marker[0]))
	}
}

func decodeLenPrefixed(r io.Reader) ([]byte, error) {
	var lb [4]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb[:])
	if n > (1 << 20) {
		return nil, fmt.Errorf("wire: length-prefixed field too large: %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeAll decodes a concatenated sequence of values from data until
// exhaustion.
func DecodeAll(data []byte) ([]interface{}, error) {
	r := bytes.NewReader(data)
	var out []interface{}
	for r.Len() > 0 {
		v, err := DecodeValue(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Marshal encodes a single value and returns its bytes.
func Marshal(v interface{}) ([]byte, error) { return EncodeAll(v) }

// Unmarshal decodes a single value from data, ignoring any trailing bytes.
func Unmarshal(data []byte) (interface{}, error) {
	r := bytes.NewReader(data)
	return DecodeValue(r)
}
