// Package wire lays blocks out for transport.
//
// A packed block is 1 + 3N 32 bit words: the shared exponent, then a
// sign, mantissa, delta triple for each of the N lanes.
//
//	| exp | sign0 | mant0 | delta0 | sign1 | mant1 | delta1 | ... |
//
// As bytes every word is little endian. Streams of packed blocks are
// written by Writer and read by Reader.
package wire

import (
	"encoding/binary"

	"github.com/zeebo/errs"

	"github.com/pfcm/bfp"
)

// Error is the class of every error returned by this package.
var Error = errs.Class("wire")

// Size is the number of words in a packed block of format F.
func Size[F bfp.Format]() int {
	var f F
	return 1 + 3*f.Lanes()
}

// ByteSize is the number of bytes in a packed block of format F.
func ByteSize[F bfp.Format]() int {
	return 4 * Size[F]()
}

// Words packs b.
func Words[F bfp.Format](b bfp.Block[F]) []uint32 {
	return AppendWords(make([]uint32, 0, Size[F]()), b)
}

// AppendWords appends the packed form of b to dst.
func AppendWords[F bfp.Format](dst []uint32, b bfp.Block[F]) []uint32 {
	dst = append(dst, b.Exp)
	for i := range b.Mant {
		dst = append(dst, uint32(b.Sign[i]), b.Mant[i], b.Delta[i])
	}
	return dst
}

// FromWords unpacks a block, checking that it is well formed.
func FromWords[F bfp.Format](w []uint32) (bfp.Block[F], error) {
	if len(w) != Size[F]() {
		return bfp.Block[F]{}, Error.New("%d words for %v, want %d", len(w), bfp.ParamsOf[F]().Name, Size[F]())
	}
	b := bfp.NewBlock[F]()
	b.Exp = w[0]
	for i, t := 0, w[1:]; i < len(b.Mant); i, t = i+1, t[3:] {
		if t[0] > 1 {
			return bfp.Block[F]{}, Error.New("lane %d: sign word %#x", i, t[0])
		}
		b.Sign[i], b.Mant[i], b.Delta[i] = uint8(t[0]), t[1], t[2]
	}
	if err := b.Check(); err != nil {
		return bfp.Block[F]{}, Error.Wrap(err)
	}
	return b, nil
}

// MarshalBinary packs b into little endian bytes.
func MarshalBinary[F bfp.Format](b bfp.Block[F]) ([]byte, error) {
	return AppendBinary(make([]byte, 0, ByteSize[F]()), b), nil
}

// AppendBinary appends the little endian packed form of b to dst.
func AppendBinary[F bfp.Format](dst []byte, b bfp.Block[F]) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, b.Exp)
	for i := range b.Mant {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(b.Sign[i]))
		dst = binary.LittleEndian.AppendUint32(dst, b.Mant[i])
		dst = binary.LittleEndian.AppendUint32(dst, b.Delta[i])
	}
	return dst
}

// UnmarshalBinary unpacks a block from exactly ByteSize bytes.
func UnmarshalBinary[F bfp.Format](data []byte) (bfp.Block[F], error) {
	if len(data) != ByteSize[F]() {
		return bfp.Block[F]{}, Error.New("%d bytes for %v, want %d", len(data), bfp.ParamsOf[F]().Name, ByteSize[F]())
	}
	w := make([]uint32, Size[F]())
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return FromWords[F](w)
}
