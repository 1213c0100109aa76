// Package normalize turns arbitrary Go values into JSON-safe trees.
//
// The output only contains nil, bool, string, int64, uint64, float64,
// []any and map[string]any. Non-finite floats become nil. Value never panics
// and Value(Value(x)) equals Value(x).
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// Value returns a JSON-safe equivalent of v.
func Value(v any) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return value(reflect.ValueOf(v), 0)
}

// maxDepth bounds recursion on cyclic pointer graphs.
const maxDepth = 64

func value(rv reflect.Value, depth int) any {
	if !rv.IsValid() || depth > maxDepth {
		return nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
	}

	// Pointers to value-receiver Stringers must not be caught as Stringers.
	if rv.Kind() == reflect.Pointer {
		switch rv.Type().Elem() {
		case timeType, decimalType, nullDecimalType:
			return value(rv.Elem(), depth+1)
		}
	}

	// Leaf types with their own representation come before kind dispatch.
	if rv.CanInterface() {
		iv := rv.Interface()
		switch x := iv.(type) {
		case time.Time:
			return x.Format(time.RFC3339Nano)
		case decimal.Decimal:
			return fromDecimal(x)
		case decimal.NullDecimal:
			if !x.Valid {
				return nil
			}
			return fromDecimal(x.Decimal)
		case json.Number:
			return fromNumber(x)
		case *big.Int:
			if x == nil {
				return nil
			}
			return fromBigInt(x)
		case *big.Float:
			if x == nil {
				return nil
			}
			f, _ := x.Float64()
			return float(f)
		case *big.Rat:
			if x == nil {
				return nil
			}
			f, _ := x.Float64()
			return float(f)
		case []byte:
			return string(x)
		case error:
			return safely(x.Error)
		}
		// Records and containers keep their elements even when they print
		// themselves.
		if s, ok := iv.(fmt.Stringer); ok && !composite(rv.Type()) {
			return safely(s.String)
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return float(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface:
		return value(rv.Elem(), depth+1)
	case reflect.Slice:
		return sequence(rv, depth)
	case reflect.Array:
		return sequence(rv, depth)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[key(iter.Key())] = value(iter.Value(), depth+1)
		}
		return out
	case reflect.Struct:
		return structure(rv, depth)
	}
	return render(rv)
}

// safely calls f, yielding nil if it panics.
func safely(f func() string) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return f()
}

func float(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func fromDecimal(d decimal.Decimal) any {
	if d.Exponent() >= 0 && d.IsInteger() {
		if bi := d.BigInt(); bi.IsInt64() {
			return bi.Int64()
		}
	}
	return float(d.InexactFloat64())
}

func fromNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return float(f)
	}
	return string(n)
}

func fromBigInt(b *big.Int) any {
	if b.IsInt64() {
		return b.Int64()
	}
	if b.IsUint64() {
		return b.Uint64()
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return float(f)
}

func sequence(rv reflect.Value, depth int) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = value(rv.Index(i), depth+1)
	}
	return out
}

func key(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	switch v := value(k, 0).(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// composite reports whether t, or the type it points to, is a record or a
// container.
func composite(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// structure maps exported fields by their json names; "-" is skipped and
// omitempty drops zero values. Untagged embedded structs are flattened into
// the parent the way encoding/json promotes them, outer fields winning.
func structure(rv reflect.Value, depth int) any {
	out := make(map[string]any, rv.NumField())
	fields(rv, depth, out)
	return out
}

func fields(rv reflect.Value, depth int, out map[string]any) {
	t := rv.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitEmpty, skip := jsonName(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if f.Anonymous && name == "" {
			inner, lift, drop := promoted(fv)
			if drop {
				continue
			}
			if lift {
				embedded = append(embedded, inner)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		out[name] = value(fv, depth+1)
	}

	for _, inner := range embedded {
		if depth > maxDepth {
			return
		}
		promotedOut := make(map[string]any, inner.NumField())
		fields(inner, depth+1, promotedOut)
		for k, v := range promotedOut {
			if _, taken := out[k]; !taken {
				out[k] = v
			}
		}
	}
}

// jsonName reads the json tag of f. An empty name means the tag gave none.
func jsonName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

// promoted returns the struct behind an embedded field when its fields are
// lifted into the parent. Leaf types such as time.Time stay named fields, and
// a nil embedded struct pointer is dropped.
func promoted(fv reflect.Value) (inner reflect.Value, lift, drop bool) {
	if fv.Kind() == reflect.Pointer {
		if fv.Type().Elem().Kind() == reflect.Struct && fv.IsNil() {
			return reflect.Value{}, false, true
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct {
		return reflect.Value{}, false, false
	}
	switch fv.Type() {
	case timeType, decimalType, nullDecimalType:
		return reflect.Value{}, false, false
	}
	return fv, true, false
}

// render is the last resort for values with no structural mapping.
func render(rv reflect.Value) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if !rv.CanInterface() {
		return nil
	}
	return fmt.Sprint(rv.Interface())
}
