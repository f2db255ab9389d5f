package coerce

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/vecingest/internal/half"
	"github.com/hupe1980/vecingest/schema"
	"github.com/hupe1980/vecingest/status"
	"github.com/hupe1980/vecingest/value"
)

// appendScalar encodes one scalar v as family f and appends it to dst.
func (c *Coercer) appendScalar(dst []byte, v value.Value, f schema.Family) ([]byte, error) {
	switch {
	case f == schema.FamilyBool:
		if v.Kind != value.KindBool {
			return nil, status.Errorf(status.TypeMismatch, "bool column accepts only boolean literals, got %s", v.Kind)
		}
		if v.B {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil

	case f == schema.FamilyVarchar:
		if v.Kind != value.KindString {
			return nil, status.Errorf(status.TypeMismatch, "varchar column expects a string, got %s", v.Kind)
		}
		return append(dst, v.S...), nil

	case f.IsInteger():
		i, err := c.toInt(v, f)
		if err != nil {
			return nil, err
		}
		return appendInt(dst, i, f), nil

	case f.IsFloat():
		x, err := c.toFloat(v, f)
		if err != nil {
			return nil, err
		}
		return appendFloat(dst, x, f), nil
	}
	return nil, status.Errorf(status.NotSupported, "no scalar encoding for %s", f)
}

func numericOnly(v value.Value, f schema.Family) error {
	if v.IsNumeric() {
		return nil
	}
	if v.Shape() != value.ShapeScalar {
		return status.Errorf(status.TypeMismatch, "%s element expected, got %s", f, v.Shape())
	}
	return status.Errorf(status.TypeMismatch, "%s expects a number, got %s", f, v.Kind)
}

// toInt narrows a numeric value to the range of f under the overflow policy.
// Floats are truncated toward zero.
func (c *Coercer) toInt(v value.Value, f schema.Family) (int64, error) {
	if err := numericOnly(v, f); err != nil {
		return 0, err
	}

	if v.Kind == value.KindFloat && math.IsNaN(v.F64) {
		if c.policy == OverflowReject {
			return 0, status.Errorf(status.ValueOutOfRange, "NaN does not fit %s", f)
		}
		return 0, status.Errorf(status.TypeMismatch, "%s cannot hold NaN", f)
	}

	i := v.I64
	inRange := true
	if v.Kind == value.KindFloat {
		i, inRange = floatToInt64(v.F64)
	}

	lo, hi := f.IntRange()
	if inRange && i >= lo && i <= hi {
		return i, nil
	}

	switch c.policy {
	case OverflowReject:
		return 0, status.Errorf(status.ValueOutOfRange, "%s does not fit %s", v, f)
	case OverflowSaturate:
		return min(max(i, lo), hi), nil
	default:
		return i, nil
	}
}

// floatToInt64 truncates toward zero. Values outside int64 are clamped and
// reported as out of range.
func floatToInt64(x float64) (int64, bool) {
	switch {
	case math.IsNaN(x):
		return 0, false
	case x >= math.MaxInt64:
		return math.MaxInt64, false
	case x < math.MinInt64:
		return math.MinInt64, false
	default:
		return int64(x), true
	}
}

// toFloat widens or narrows a numeric value to f. Narrowing that overflows a
// finite input to ±Inf is an overflow for the policy.
func (c *Coercer) toFloat(v value.Value, f schema.Family) (float64, error) {
	if err := numericOnly(v, f); err != nil {
		return 0, err
	}

	x := v.F64
	if v.Kind == value.KindInt {
		x = float64(v.I64)
	}
	if f == schema.FamilyFloat64 || math.IsInf(x, 0) || math.IsNaN(x) {
		return x, nil
	}

	limit := float64(math.MaxFloat32)
	var overflow bool
	switch f {
	case schema.FamilyFloat16:
		limit = half.MaxFloat16
		overflow = math.IsInf(float64(half.RoundFloat16(float32(x))), 0)
	default:
		overflow = math.IsInf(float64(float32(x)), 0)
	}
	if !overflow {
		return x, nil
	}

	switch c.policy {
	case OverflowReject:
		return 0, status.Errorf(status.ValueOutOfRange, "%s does not fit %s", v, f)
	case OverflowSaturate:
		return math.Copysign(limit, x), nil
	default:
		return math.Copysign(math.Inf(1), x), nil
	}
}

// appendInt stores the low-order bytes of i, which is what two's complement
// wraparound means for a narrower column.
func appendInt(dst []byte, i int64, f schema.Family) []byte {
	switch f {
	case schema.FamilyInt8:
		return append(dst, byte(i))
	case schema.FamilyInt16:
		return binary.LittleEndian.AppendUint16(dst, uint16(i))
	case schema.FamilyInt32:
		return binary.LittleEndian.AppendUint32(dst, uint32(i))
	default:
		return binary.LittleEndian.AppendUint64(dst, uint64(i))
	}
}

func appendFloat(dst []byte, x float64, f schema.Family) []byte {
	switch f {
	case schema.FamilyFloat16:
		return binary.LittleEndian.AppendUint16(dst, uint16(half.NewFloat16(float32(x))))
	case schema.FamilyBFloat16:
		return binary.LittleEndian.AppendUint16(dst, uint16(half.NewBFloat16(float32(x))))
	case schema.FamilyFloat32:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(x)))
	default:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(x))
	}
}

// Decode reads the scalar of family f at the start of b.
//
// Integers come back as KindInt, every float family as KindFloat widened from
// its stored precision, bool as KindBool and varchar as KindString (b is the
// whole string).
func Decode(b []byte, f schema.Family) value.Value {
	switch f {
	case schema.FamilyBool:
		return value.Bool(b[0] != 0)
	case schema.FamilyInt8:
		return value.Int(int64(int8(b[0])))
	case schema.FamilyInt16:
		return value.Int(int64(int16(binary.LittleEndian.Uint16(b))))
	case schema.FamilyInt32:
		return value.Int(int64(int32(binary.LittleEndian.Uint32(b))))
	case schema.FamilyInt64:
		return value.Int(int64(binary.LittleEndian.Uint64(b)))
	case schema.FamilyFloat16:
		return value.Float(float64(half.Float16(binary.LittleEndian.Uint16(b)).Float32()))
	case schema.FamilyBFloat16:
		return value.Float(float64(half.BFloat16(binary.LittleEndian.Uint16(b)).Float32()))
	case schema.FamilyFloat32:
		return value.Float(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case schema.FamilyFloat64:
		return value.Float(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case schema.FamilyVarchar:
		return value.String(string(b))
	default:
		return value.Null()
	}
}

// DecodeSeq reads n consecutive scalars of family f from b.
func DecodeSeq(b []byte, f schema.Family, n int) []value.Value {
	w := f.Width()
	out := make([]value.Value, n)
	for i := range n {
		out[i] = Decode(b[i*w:], f)
	}
	return out
}
