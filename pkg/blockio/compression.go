package blockio

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the framing applied around an encoded block stream.
type Compression string

const (
	// None writes the stream as is.
	None Compression = "none"
	// Zstd frames the stream with zstandard.
	Zstd Compression = "zstd"
	// LZ4 frames the stream with the lz4 frame format.
	LZ4 Compression = "lz4"
	// S2 frames the stream with s2, a snappy-compatible extension.
	S2 Compression = "s2"
)

// ParseCompression accepts a compression name, case insensitively. The
// empty string means None.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return None, nil
	case None, Zstd, LZ4, S2:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported compression %q", name)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// compressWriter wraps w with the framing encoder. Closing the result
// flushes the frame but leaves w open.
func compressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None, "":
		return nopWriteCloser{w}, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case LZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
			return nil, err
		}
		return zw, nil
	case S2:
		return s2.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}

// decompressReader wraps r with the framing decoder. The returned release
// func frees decoder state.
func decompressReader(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case None, "":
		return r, func() {}, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case LZ4:
		return lz4.NewReader(r), func() {}, nil
	case S2:
		return s2.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", c)
	}
}
