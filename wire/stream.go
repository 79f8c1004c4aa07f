package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/pfcm/bfp"
	"github.com/pfcm/bfp/internal/buffer"
)

// Compression selects how stream frames are stored.
type Compression uint8

const (
	None Compression = iota
	Zstd
	LZ4
)

var compressionNames = [...]string{None: "none", Zstd: "zstd", LZ4: "lz4"}

func (c Compression) String() string {
	if int(c) >= len(compressionNames) {
		return fmt.Sprintf("Compression(%d)", c)
	}
	return compressionNames[c]
}

// ParseCompression looks up a compression by name.
func ParseCompression(s string) (Compression, error) {
	for i, n := range compressionNames {
		if strings.EqualFold(s, n) {
			return Compression(i), nil
		}
	}
	return 0, Error.New("unknown compression %q", s)
}

// A stream is a header followed by frames.
//
//	header: "BFP1" | version u8 | WE u8 | WM u8 | compression u8 | lanes u32
//	frame:  raw size u32 | stored size u32 | stored bytes
//
// A frame holds a whole number of packed blocks. A stored size of zero means
// the frame wasn't worth compressing and its raw bytes follow.
const (
	magic      = "BFP1"
	version    = 1
	headerSize = 12
	frameHead  = 8
	maxFrame   = 1 << 26
)

// DefaultFrameBlocks is how many blocks a Writer collects before writing a
// frame.
const DefaultFrameBlocks = 64

var (
	bytePool buffer.Pool[byte]

	zstdEncoders sync.Pool
	zstdDecoders sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoders.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return enc, nil
}

// getZstdDecoder returns a decoder that refuses to produce more than a
// frame's worth of output.
func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoders.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFrame))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return dec, nil
}

// compress returns the stored form of raw, or nil if it should be stored
// as is.
func compress(c Compression, raw []byte) ([]byte, error) {
	var out []byte
	switch c {
	case None:
		return nil, nil
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer zstdEncoders.Put(enc)
		out = enc.EncodeAll(raw, nil)
	case LZ4:
		out = make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, out, nil)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		out = out[:n]
	default:
		return nil, Error.New("unknown compression %v", c)
	}
	if len(out) == 0 || len(out) >= len(raw) {
		return nil, nil
	}
	return out, nil
}

func decompress(c Compression, stored []byte, rawSize int) ([]byte, error) {
	raw := make([]byte, rawSize)
	switch c {
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoders.Put(dec)
		out, err := dec.DecodeAll(stored, raw[:0])
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if len(out) != rawSize {
			return nil, Error.New("frame decompressed to %d bytes, want %d", len(out), rawSize)
		}
		return out, nil
	case LZ4:
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if n != rawSize {
			return nil, Error.New("frame decompressed to %d bytes, want %d", n, rawSize)
		}
		return raw, nil
	}
	return nil, Error.New("compressed frame in a %v stream", c)
}

// Writer writes a stream of blocks of format F.
type Writer[F bfp.Format] struct {
	w      io.Writer
	c      Compression
	frame  int
	buf    []byte
	blocks int
	err    error
}

// NewWriter writes a stream header to w and returns a Writer for the blocks
// that follow. Call Close to write out the last frame.
func NewWriter[F bfp.Format](w io.Writer, c Compression) (*Writer[F], error) {
	if c > LZ4 {
		return nil, Error.New("unknown compression %v", c)
	}
	var f F
	h := make([]byte, 0, headerSize)
	h = append(h, magic...)
	h = append(h, version, byte(f.ExpBits()), byte(f.MantBits()), byte(c))
	h = binary.LittleEndian.AppendUint32(h, uint32(f.Lanes()))
	if _, err := w.Write(h); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Writer[F]{
		w:     w,
		c:     c,
		frame: DefaultFrameBlocks,
		buf:   bytePool.Get(0),
	}, nil
}

// SetFrameBlocks changes how many blocks go in each frame.
func (w *Writer[F]) SetFrameBlocks(n int) {
	w.frame = max(n, 1)
}

// Write adds b to the stream.
func (w *Writer[F]) Write(b bfp.Block[F]) error {
	if w.err != nil {
		return w.err
	}
	w.buf = AppendBinary(w.buf, b)
	if w.blocks++; w.blocks >= w.frame {
		return w.Flush()
	}
	return nil
}

// Flush writes any buffered blocks as a frame.
func (w *Writer[F]) Flush() error {
	if w.err != nil || w.blocks == 0 {
		return w.err
	}
	stored, err := compress(w.c, w.buf)
	if err != nil {
		w.err = err
		return err
	}
	var h [frameHead]byte
	binary.LittleEndian.PutUint32(h[0:], uint32(len(w.buf)))
	binary.LittleEndian.PutUint32(h[4:], uint32(len(stored)))
	if stored == nil {
		stored = w.buf
	}
	for _, p := range [][]byte{h[:], stored} {
		if _, err := w.w.Write(p); err != nil {
			w.err = Error.Wrap(err)
			return w.err
		}
	}
	w.buf, w.blocks = w.buf[:0], 0
	return nil
}

// Close flushes the last frame. It does not close the underlying writer.
func (w *Writer[F]) Close() error {
	err := w.Flush()
	if w.buf != nil {
		bytePool.Put(w.buf)
		w.buf = nil
	}
	if w.err == nil {
		w.err = Error.New("writer closed")
	}
	return err
}

// Reader reads a stream of blocks of format F.
type Reader[F bfp.Format] struct {
	r     io.Reader
	c     Compression
	frame []byte
}

// NewReader reads the stream header from r, checking that it describes
// blocks of format F.
func NewReader[F bfp.Format](r io.Reader) (*Reader[F], error) {
	var h [headerSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, Error.New("reading header: %v", err)
	}
	if string(h[:4]) != magic {
		return nil, Error.New("bad magic %q", h[:4])
	}
	if h[4] != version {
		return nil, Error.New("unsupported version %d", h[4])
	}
	var (
		f     F
		we    = int(h[5])
		wm    = int(h[6])
		c     = Compression(h[7])
		lanes = int(binary.LittleEndian.Uint32(h[8:]))
	)
	if we != f.ExpBits() || wm != f.MantBits() || lanes != f.Lanes() {
		return nil, Error.New("stream holds we=%d wm=%d n=%d blocks, want %v", we, wm, lanes, bfp.ParamsOf[F]())
	}
	if c > LZ4 {
		return nil, Error.New("unknown compression %v", c)
	}
	return &Reader[F]{r: r, c: c}, nil
}

// Compression reports how the stream's frames are stored.
func (r *Reader[F]) Compression() Compression { return r.c }

// Read returns the next block. At the end of the stream it returns io.EOF.
func (r *Reader[F]) Read() (bfp.Block[F], error) {
	if len(r.frame) == 0 {
		if err := r.next(); err != nil {
			return bfp.Block[F]{}, err
		}
	}
	n := ByteSize[F]()
	b, err := UnmarshalBinary[F](r.frame[:n])
	r.frame = r.frame[n:]
	return b, err
}

func (r *Reader[F]) next() error {
	var h [frameHead]byte
	switch _, err := io.ReadFull(r.r, h[:]); err {
	case nil:
	case io.EOF:
		return io.EOF
	default:
		return Error.New("reading frame: %v", err)
	}
	raw := int(binary.LittleEndian.Uint32(h[0:]))
	stored := int(binary.LittleEndian.Uint32(h[4:]))
	if raw == 0 || raw > maxFrame || raw%ByteSize[F]() != 0 {
		return Error.New("bad frame size %d", raw)
	}
	if stored > maxFrame {
		return Error.New("bad stored frame size %d", stored)
	}

	if stored == 0 {
		r.frame = make([]byte, raw)
		if _, err := io.ReadFull(r.r, r.frame); err != nil {
			return Error.New("reading frame: %v", err)
		}
		return nil
	}
	buf := bytePool.Get(stored)
	defer bytePool.Put(buf)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return Error.New("reading frame: %v", err)
	}
	frame, err := decompress(r.c, buf, raw)
	if err != nil {
		return err
	}
	r.frame = frame
	return nil
}

// ReadAll reads blocks until the end of the stream.
func ReadAll[F bfp.Format](r io.Reader) ([]bfp.Block[F], error) {
	sr, err := NewReader[F](r)
	if err != nil {
		return nil, err
	}
	var out []bfp.Block[F]
	for {
		b, err := sr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}

// WriteAll writes a whole stream of blocks to w.
func WriteAll[F bfp.Format](w io.Writer, c Compression, blocks []bfp.Block[F]) error {
	sw, err := NewWriter[F](w, c)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := sw.Write(b); err != nil {
			return err
		}
	}
	return sw.Close()
}
