// Package array implements a minimal dense n-dimensional array: a flat byte
// buffer plus a shape and an element type. It is the in-memory currency
// between tile loaders, the compositor and chunk writers.
//
// The package deliberately supports only what compositing needs: constant
// fills, rectangular sub-block extraction, and rectangular block copies.
// Arrays are row-major (C order) with the last axis contiguous.
package array

import (
	"encoding/binary"
	"math"
	"slices"

	moserr "github.com/stitchlab/mosaic/pkg/errors"
)

// Dtype identifies the element type of an array.
type Dtype string

// Supported element types.
const (
	Uint8   Dtype = "uint8"
	Uint16  Dtype = "uint16"
	Uint32  Dtype = "uint32"
	Float32 Dtype = "float32"
	Float64 Dtype = "float64"
)

// Size returns the element size in bytes, or 0 for an unknown dtype.
func (d Dtype) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Valid reports whether d names a supported element type.
func (d Dtype) Valid() bool { return d.Size() != 0 }

// Array is a dense row-major n-dimensional array.
type Array struct {
	Dtype Dtype
	Shape []int
	Data  []byte
}

// NumElems returns the number of elements implied by shape.
func NumElems(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// New returns a zero-initialized array of the given dtype and shape.
func New(dtype Dtype, shape []int) (*Array, error) {
	if !dtype.Valid() {
		return nil, moserr.New(moserr.ErrCodeInvalidInput, "unknown dtype %q", dtype)
	}
	for _, s := range shape {
		if s < 0 {
			return nil, moserr.New(moserr.ErrCodeInvalidInput, "negative axis length in shape %v", shape)
		}
	}
	return &Array{
		Dtype: dtype,
		Shape: slices.Clone(shape),
		Data:  make([]byte, NumElems(shape)*dtype.Size()),
	}, nil
}

// Full returns an array of the given dtype and shape with every element set
// to fill. The fill value is converted to the dtype with truncation.
func Full(dtype Dtype, shape []int, fill float64) (*Array, error) {
	a, err := New(dtype, shape)
	if err != nil {
		return nil, err
	}
	if fill == 0 {
		return a, nil
	}
	elem := encodeElem(dtype, fill)
	size := dtype.Size()
	for off := 0; off < len(a.Data); off += size {
		copy(a.Data[off:off+size], elem)
	}
	return a, nil
}

// encodeElem converts a float64 value to the byte representation of one
// element of the given dtype.
func encodeElem(dtype Dtype, v float64) []byte {
	buf := make([]byte, dtype.Size())
	switch dtype {
	case Uint8:
		buf[0] = uint8(v)
	case Uint16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case Float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	}
	return buf
}

// decodeElem reads one element at byte offset off as a float64.
func decodeElem(dtype Dtype, data []byte, off int) float64 {
	switch dtype {
	case Uint8:
		return float64(data[off])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(data[off:]))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(data[off:]))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	}
	return 0
}

// linearIndex returns the element index of idx within shape.
func linearIndex(shape, idx []int) int {
	lin := 0
	for ax, i := range idx {
		lin = lin*shape[ax] + i
	}
	return lin
}

// At returns the element at idx as a float64. Intended for tests and
// diagnostics, not bulk access.
func (a *Array) At(idx ...int) float64 {
	return decodeElem(a.Dtype, a.Data, linearIndex(a.Shape, idx)*a.Dtype.Size())
}

// Set stores v (converted to the array dtype) at idx. Intended for tests and
// diagnostics, not bulk access.
func (a *Array) Set(v float64, idx ...int) {
	off := linearIndex(a.Shape, idx) * a.Dtype.Size()
	copy(a.Data[off:], encodeElem(a.Dtype, v))
}

// Equal reports whether two arrays have the same dtype, shape and contents.
func Equal(a, b *Array) bool {
	if a.Dtype != b.Dtype || !slices.Equal(a.Shape, b.Shape) {
		return false
	}
	return slices.Equal(a.Data, b.Data)
}

// Section extracts the rectangular sub-block [start, stop) per axis into a
// new array. start and stop must have one entry per axis and describe a
// block inside the array bounds.
func (a *Array) Section(start, stop []int) (*Array, error) {
	if len(start) != len(a.Shape) || len(stop) != len(a.Shape) {
		return nil, moserr.New(moserr.ErrCodeInvalidInput,
			"section rank %d does not match array rank %d", len(start), len(a.Shape))
	}
	shape := make([]int, len(a.Shape))
	for ax := range a.Shape {
		if start[ax] < 0 || stop[ax] > a.Shape[ax] || start[ax] > stop[ax] {
			return nil, moserr.New(moserr.ErrCodeInvalidInput,
				"section [%d, %d) out of bounds on axis %d (length %d)",
				start[ax], stop[ax], ax, a.Shape[ax])
		}
		shape[ax] = stop[ax] - start[ax]
	}
	out, err := New(a.Dtype, shape)
	if err != nil {
		return nil, err
	}
	zero := make([]int, len(shape))
	copyBlock(out, zero, a, start, shape)
	return out, nil
}

// CopyBlock copies a rectangular block of the given per-axis size from src
// (starting at srcOff) into dst (starting at dstOff). The arrays must share a
// dtype; the block must lie within both arrays.
func CopyBlock(dst *Array, dstOff []int, src *Array, srcOff []int, size []int) error {
	if dst.Dtype != src.Dtype {
		return moserr.New(moserr.ErrCodeInvalidInput,
			"dtype mismatch: %s vs %s", dst.Dtype, src.Dtype)
	}
	if len(dstOff) != len(dst.Shape) || len(srcOff) != len(src.Shape) || len(size) != len(dst.Shape) || len(dst.Shape) != len(src.Shape) {
		return moserr.New(moserr.ErrCodeInvalidInput, "block rank mismatch")
	}
	for ax := range size {
		if size[ax] < 0 ||
			srcOff[ax] < 0 || srcOff[ax]+size[ax] > src.Shape[ax] ||
			dstOff[ax] < 0 || dstOff[ax]+size[ax] > dst.Shape[ax] {
			return moserr.New(moserr.ErrCodeInvalidInput,
				"block out of bounds on axis %d", ax)
		}
	}
	copyBlock(dst, dstOff, src, srcOff, size)
	return nil
}

// copyBlock walks every axis but the last and copies contiguous runs of the
// innermost axis. Bounds are assumed checked.
func copyBlock(dst *Array, dstOff []int, src *Array, srcOff []int, size []int) {
	ndim := len(size)
	if NumElems(size) == 0 {
		return
	}
	elem := dst.Dtype.Size()
	rowBytes := size[ndim-1] * elem

	// idx iterates the outer axes of the block.
	idx := make([]int, ndim-1)
	srcIdx := make([]int, ndim)
	dstIdx := make([]int, ndim)
	for {
		for ax := 0; ax < ndim-1; ax++ {
			srcIdx[ax] = srcOff[ax] + idx[ax]
			dstIdx[ax] = dstOff[ax] + idx[ax]
		}
		srcIdx[ndim-1] = srcOff[ndim-1]
		dstIdx[ndim-1] = dstOff[ndim-1]

		srcStart := linearIndex(src.Shape, srcIdx) * elem
		dstStart := linearIndex(dst.Shape, dstIdx) * elem
		copy(dst.Data[dstStart:dstStart+rowBytes], src.Data[srcStart:srcStart+rowBytes])

		// Advance the outer index, rightmost axis fastest.
		ax := ndim - 2
		for ; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < size[ax] {
				break
			}
			idx[ax] = 0
		}
		if ax < 0 {
			return
		}
	}
}
