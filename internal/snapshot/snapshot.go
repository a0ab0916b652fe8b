// Package snapshot stores prepared models in a compact binary file so later
// runs can skip decoding and preparation.
package snapshot

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"aqua-mesh-prep/internal/mesh"
)

const (
	magic         = "AQMS"
	formatVersion = 2
	headerSize    = len(magic) + 2 + 8
)

var (
	// ErrChecksum is returned when the payload does not match its hash.
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	// ErrCorrupt is returned for malformed or truncated payloads.
	ErrCorrupt = errors.New("snapshot: corrupt payload")
)

// Compression selects how the payload is packed.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressZlib
	CompressZstd
)

var compressionNames = map[string]Compression{
	"none": CompressNone,
	"zlib": CompressZlib,
	"zstd": CompressZstd,
}

// ParseCompression maps a configuration name to a Compression.
func ParseCompression(name string) (Compression, error) {
	c, ok := compressionNames[name]
	if !ok {
		return 0, fmt.Errorf("snapshot: unknown compression %q", name)
	}
	return c, nil
}

// Marshal encodes m. The header carries the xxhash of the uncompressed
// payload.
func Marshal(m *mesh.Model, comp Compression) ([]byte, error) {
	var payload bytes.Buffer
	encodeModel(&payload, m)
	raw := payload.Bytes()

	var body []byte
	switch comp {
	case CompressNone:
		body = raw
	case CompressZlib:
		var buf bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
	case CompressZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(raw, nil)
		enc.Close()
	default:
		return nil, fmt.Errorf("snapshot: unsupported compression %d", comp)
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(body))
	out.WriteString(magic)
	out.WriteByte(formatVersion)
	out.WriteByte(byte(comp))
	_ = binary.Write(&out, binary.LittleEndian, xxhash.Sum64(raw))
	out.Write(body)
	return out.Bytes(), nil
}

// Unmarshal decodes a snapshot produced by Marshal.
func Unmarshal(data []byte) (*mesh.Model, error) {
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, errors.New("snapshot: not a snapshot file")
	}
	if v := data[4]; v != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", v)
	}
	comp := Compression(data[5])
	sum := binary.LittleEndian.Uint64(data[6:14])
	body := data[headerSize:]

	var raw []byte
	switch comp {
	case CompressNone:
		raw = body
	case CompressZlib:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	case CompressZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if raw, err = dec.DecodeAll(body, nil); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("snapshot: unsupported compression %d", comp)
	}

	if xxhash.Sum64(raw) != sum {
		return nil, ErrChecksum
	}
	return decodeModel(raw)
}

// Save writes m to path.
func Save(path string, m *mesh.Model, comp Compression) error {
	data, err := Marshal(m, comp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a snapshot from path.
func Load(path string) (*mesh.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
