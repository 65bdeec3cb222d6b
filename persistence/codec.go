// Package persistence writes model snapshots to files and stores.
//
// An encoded model is a fixed header followed by one block holding the
// gob-encoded Snapshot:
//
//	magic "ENSM" | version uint8 | codec uint8 | raw size uint32 | stored size uint32 | payload
//
// A stored size of 0 means the payload was incompressible and is kept raw.
package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Codec selects the compression applied to a snapshot payload.
type Codec uint8

const (
	// CodecNone stores the payload uncompressed.
	CodecNone Codec = iota
	// CodecLZ4 uses LZ4 block compression.
	CodecLZ4
	// CodecZstd uses Zstandard compression.
	CodecZstd
)

// FormatVersion is the header version written by Encode.
const FormatVersion = 1

const headerSize = 4 + 1 + 1 + 4 + 4

var magic = [4]byte{'E', 'N', 'S', 'M'}

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCodec maps a codec name to a Codec. The empty string selects zstd.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	case "none", "raw":
		return CodecNone, nil
	default:
		return CodecNone, errors.NewValidationError("codec", "must be one of none, lz4, zstd", name)
	}
}

var (
	zstdEncoderPool = sync.Pool{
		New: func() interface{} {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() interface{} {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
)

// compress returns the stored payload, or nil when the data should be kept raw.
func compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return nil, nil
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 compression failed")
		}
		if n == 0 || n >= len(data) {
			return nil, nil
		}
		return buf[:n], nil
	case CodecZstd:
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		defer zstdEncoderPool.Put(enc)
		out := enc.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, nil
		}
		return out, nil
	default:
		return nil, errors.NewValidationError("codec", "unsupported codec", uint8(c))
	}
}

func decompress(c Codec, payload []byte, rawSize uint32) ([]byte, error) {
	switch c {
	case CodecLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decompression failed")
		}
		if uint32(n) != rawSize {
			return nil, errors.Newf("decompressed size mismatch: got %d, want %d", n, rawSize)
		}
		return out, nil
	case CodecZstd:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, errors.Wrap(err, "zstd decompression failed")
		}
		if uint32(len(out)) != rawSize {
			return nil, errors.Newf("decompressed size mismatch: got %d, want %d", len(out), rawSize)
		}
		return out, nil
	default:
		return nil, errors.NewValidationError("codec", "unsupported codec", uint8(c))
	}
}

// header builds the fixed header. Sizes must fit the uint32 fields.
func header(c Codec, rawSize, storedSize int) ([headerSize]byte, error) {
	var hdr [headerSize]byte
	if uint64(rawSize) > math.MaxUint32 || uint64(storedSize) > math.MaxUint32 {
		return hdr, errors.NewValueError("persistence.Encode",
			fmt.Sprintf("snapshot of %d bytes exceeds the %d byte limit", rawSize, uint64(math.MaxUint32)))
	}
	copy(hdr[:4], magic[:])
	hdr[4] = FormatVersion
	hdr[5] = byte(c)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(rawSize))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(storedSize))
	return hdr, nil
}

// Encode writes snap to w using codec c.
func Encode(w io.Writer, snap *model.Snapshot, c Codec) error {
	var raw bytes.Buffer
	if err := model.WriteSnapshot(&raw, snap); err != nil {
		return err
	}
	data := raw.Bytes()
	stored, err := compress(c, data)
	if err != nil {
		return err
	}

	hdr, err := header(c, len(data), len(stored))
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	payload := stored
	if payload == nil {
		payload = data
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "failed to write payload")
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*model.Snapshot, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, errors.NewValueError("persistence.Decode", "not an ensembles model file")
	}
	if hdr[4] != FormatVersion {
		return nil, errors.NewModelError("persistence.Decode", "version mismatch",
			errors.Newf("format version %d, supported %d", hdr[4], FormatVersion))
	}
	c := Codec(hdr[5])
	rawSize := binary.LittleEndian.Uint32(hdr[6:10])
	storedSize := binary.LittleEndian.Uint32(hdr[10:14])

	n := rawSize
	if storedSize != 0 {
		n = storedSize
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "failed to read payload")
	}

	data := payload
	if storedSize != 0 {
		var err error
		if data, err = decompress(c, payload, rawSize); err != nil {
			return nil, err
		}
	}
	return model.ReadSnapshot(bytes.NewReader(data))
}

// Marshal captures est and encodes it into a byte slice.
func Marshal(est model.Estimator, c Codec) ([]byte, error) {
	snap, err := model.Capture(est)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data and restores the estimator it holds.
func Unmarshal(data []byte) (model.Estimator, error) {
	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return model.Restore(snap)
}
