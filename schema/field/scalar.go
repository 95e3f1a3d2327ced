package field

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Scalar reads and writes a plain (non-relationship) column field. Set
// converts between the loosely typed values returned by storage drivers
// and the declared Go type.
type Scalar struct {
	name  string
	owner reflect.Type
	index []int
	typ   reflect.Type
}

// ScalarOf returns a Scalar accessor for the named field of proto.
func ScalarOf(proto any, name string) (*Scalar, error) {
	return ScalarForType(reflect.TypeOf(proto), name)
}

// ScalarForType returns a Scalar accessor for the named field of struct type t.
func ScalarForType(t reflect.Type, name string) (*Scalar, error) {
	owner, sf, err := lookup(t, name)
	if err != nil {
		return nil, err
	}
	return &Scalar{name: name, owner: owner, index: sf.Index, typ: sf.Type}, nil
}

// Name returns the Go field name.
func (s *Scalar) Name() string { return s.name }

// Type returns the Go type of the field.
func (s *Scalar) Type() reflect.Type { return s.typ }

func (s *Scalar) field(obj any, op string) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != s.owner {
		return reflect.Value{}, &AccessError{Field: s.name, Op: op, Err: fmt.Errorf("%w: got %T", ErrNotStructPointer, obj)}
	}
	return rv.Elem().FieldByIndex(s.index), nil
}

// Get returns the field value.
func (s *Scalar) Get(obj any) (any, error) {
	fv, err := s.field(obj, "get")
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

// Set assigns v, converting it to the field type when needed.
// A nil v resets the field to its zero value.
func (s *Scalar) Set(obj any, v any) error {
	fv, err := s.field(obj, "set")
	if err != nil {
		return err
	}
	cv, err := Convert(v, s.typ)
	if err != nil {
		return &AccessError{Field: s.name, Op: "set", Err: err}
	}
	fv.Set(cv)
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// Convert converts v to type to. Numeric, string, boolean and time values
// returned by SQL drivers and binary codecs are accepted.
func Convert(v any, to reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(to), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(to) {
		return rv, nil
	}
	if to.Kind() == reflect.Pointer {
		inner, err := Convert(v, to.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(to.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if b, ok := v.([]byte); ok {
		v, rv = string(b), reflect.ValueOf(string(b))
	}
	switch to.Kind() {
	case reflect.String:
		return reflect.ValueOf(String(v)).Convert(to), nil
	case reflect.Bool:
		switch x := v.(type) {
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
			}
			return reflect.ValueOf(b).Convert(to), nil
		default:
			if isNumber(rv.Kind()) {
				return reflect.ValueOf(!rv.IsZero()).Convert(to), nil
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
			}
			rv = reflect.ValueOf(f)
		}
		if isNumber(rv.Kind()) {
			return rv.Convert(to), nil
		}
	case reflect.Struct:
		if to == timeType {
			if s, ok := v.(string); ok {
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
				}
				return reflect.ValueOf(t), nil
			}
		}
	}
	if rv.Type().ConvertibleTo(to) && rv.Kind() == to.Kind() {
		return rv.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot convert %T to %s", ErrTypeMismatch, v, to)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// String formats a key or column value as a string. Byte slices are
// taken verbatim and nil yields "".
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
