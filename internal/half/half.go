// Package half implements the two 16-bit float storage formats used by
// Float16 and BFloat16 columns.
//
// Both formats are storage-only: callers hand in float32 and read float32
// back. The stored value is the reduced-precision one, so a round-trip does
// not reproduce the original float32 bits.
package half

import "math"

// Float16 is an IEEE-754 binary16 bit pattern.
//
//	sign: 1 bit
//	exp:  5 bits (bias 15)
//	frac: 10 bits
type Float16 uint16

// BFloat16 is the upper half of an IEEE-754 binary32 bit pattern.
//
//	sign: 1 bit
//	exp:  8 bits (bias 127)
//	frac: 7 bits
type BFloat16 uint16

const (
	f16Sign Float16 = 0x8000
	f16Exp  Float16 = 0x7C00
	f16Frac Float16 = 0x03FF

	f32Exp  uint32 = 0x7F800000
	f32Frac uint32 = 0x007FFFFF

	// MaxFloat16 is the largest finite binary16 value.
	MaxFloat16 = 65504.0
)

// Float32 widens h to float32. The conversion is exact.
func (h Float16) Float32() float32 {
	sign := uint32(h&f16Sign) << 16
	exp := uint32(h&f16Exp) >> 10
	frac := uint32(h & f16Frac)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: shift until the implicit bit appears.
		e := int32(-14)
		for frac&0x0400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x03FF
		return math.Float32frombits(sign | uint32(127+e)<<23 | frac<<13)
	case 0x1F:
		return math.Float32frombits(sign | f32Exp | frac<<13)
	default:
		return math.Float32frombits(sign | uint32(int32(exp)-15+127)<<23 | frac<<13)
	}
}

// NewFloat16 narrows f to binary16 using round-to-nearest, ties-to-even.
// Values beyond ±MaxFloat16 become ±Inf.
func NewFloat16(f float32) Float16 {
	bits := math.Float32bits(f)
	sign := Float16(bits>>16) & f16Sign
	exp := int32((bits & f32Exp) >> 23)
	frac := bits & f32Frac

	if exp == 0xFF {
		if frac == 0 {
			return sign | f16Exp
		}
		// Quiet NaN, keep the top payload bits.
		return sign | f16Exp | 0x0200 | Float16(frac>>13)&f16Frac
	}
	if exp == 0 {
		// float32 subnormals are far below the binary16 range.
		return sign
	}

	e := exp - 127 + 15
	if e >= 0x1F {
		return sign | f16Exp
	}

	if e <= 0 {
		if e < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(14 - e)
		m := mant >> shift
		rem := mant & (1<<shift - 1)
		halfway := uint32(1) << (shift - 1)
		if rem > halfway || (rem == halfway && m&1 == 1) {
			m++
		}
		return sign | Float16(m)
	}

	m := frac >> 13
	rem := frac & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
		m++
		if m == 0x0400 {
			m = 0
			e++
			if e >= 0x1F {
				return sign | f16Exp
			}
		}
	}
	return sign | Float16(uint32(e)<<10) | Float16(m)
}

// Float32 widens b to float32. The conversion is exact.
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// NewBFloat16 narrows f by dropping the low 16 mantissa bits.
//
// Truncation (not rounding) is the canonical form: it matches zeroing the low
// half-word of the little-endian float32 representation.
func NewBFloat16(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if bits&f32Exp == f32Exp && bits&f32Frac != 0 {
		// Keep NaN a NaN even if the payload sat in the dropped half.
		return BFloat16(bits>>16) | 0x0040
	}
	return BFloat16(bits >> 16)
}

// RoundFloat16 returns f as it reads back from a Float16 column.
func RoundFloat16(f float32) float32 { return NewFloat16(f).Float32() }

// RoundBFloat16 returns f as it reads back from a BFloat16 column.
func RoundBFloat16(f float32) float32 { return NewBFloat16(f).Float32() }
