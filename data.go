package msgbus

import "maps"

// Data is the key-value payload carried by a Message.
//
// Getters never fail: an absent key or a value of another type yields the
// default. Types are matched exactly, so an int stored under a key is not
// returned by Int64.
type Data map[string]any

// NewData allocates a Data with room for capacity entries.
func NewData(capacity int) Data {
	if capacity < 0 {
		capacity = 0
	}
	return make(Data, capacity)
}

// Clone returns a shallow copy of d. A nil Data clones to an empty one.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	return maps.Clone(d)
}

// Has reports whether key is present.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Value returns the value under key if it holds a T, def otherwise.
func Value[T any](d Data, key string, def T) T {
	v, ok := d[key]
	if !ok || v == nil {
		return def
	}
	t, ok := v.(T)
	if !ok {
		return def
	}
	return t
}

func (d Data) set(key string, v any) Data {
	d[key] = v
	return d
}

func (d Data) SetBool(key string, v bool) Data       { return d.set(key, v) }
func (d Data) SetInt(key string, v int) Data         { return d.set(key, v) }
func (d Data) SetInt64(key string, v int64) Data     { return d.set(key, v) }
func (d Data) SetFloat32(key string, v float32) Data { return d.set(key, v) }
func (d Data) SetFloat64(key string, v float64) Data { return d.set(key, v) }
func (d Data) SetString(key string, v string) Data   { return d.set(key, v) }
func (d Data) SetList(key string, v []any) Data      { return d.set(key, v) }

func (d Data) Bool(key string) bool       { return Value(d, key, false) }
func (d Data) Int(key string) int         { return Value(d, key, 0) }
func (d Data) Int64(key string) int64     { return Value(d, key, int64(0)) }
func (d Data) Float32(key string) float32 { return Value(d, key, float32(0)) }
func (d Data) Float64(key string) float64 { return Value(d, key, float64(0)) }
func (d Data) String(key string) string   { return Value(d, key, "") }

// List returns the list under key, or an empty non-nil list.
func (d Data) List(key string) []any { return Value(d, key, []any{}) }

func (d Data) BoolOr(key string, def bool) bool          { return Value(d, key, def) }
func (d Data) IntOr(key string, def int) int             { return Value(d, key, def) }
func (d Data) Int64Or(key string, def int64) int64       { return Value(d, key, def) }
func (d Data) Float32Or(key string, def float32) float32 { return Value(d, key, def) }
func (d Data) Float64Or(key string, def float64) float64 { return Value(d, key, def) }
func (d Data) StringOr(key string, def string) string    { return Value(d, key, def) }
func (d Data) ListOr(key string, def []any) []any        { return Value(d, key, def) }
