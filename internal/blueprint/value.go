package blueprint

import (
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindTable
	KindText
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Key is a table key: either text or a positive integer index.
type Key struct {
	text    string
	index   uint32
	isIndex bool
}

// TextKey returns a text key.
func TextKey(s string) Key { return Key{text: s} }

// IndexKey returns an integer key. n must be >= 1.
func IndexKey(n uint32) Key { return Key{index: n, isIndex: true} }

// Text returns the key's text, if it is a text key.
func (k Key) Text() (string, bool) { return k.text, !k.isIndex }

// Index returns the key's integer, if it is an index key.
func (k Key) Index() (uint32, bool) { return k.index, k.isIndex }

func (k Key) String() string {
	if k.isIndex {
		return "[" + strconv.FormatUint(uint64(k.index), 10) + "]"
	}
	return k.text
}

// Value is a node of a parsed blueprint tree. The zero Value is invalid and
// every accessor on it reports absence.
type Value struct {
	kind  Kind
	text  string
	num   float64
	b     bool
	table *Table
}

func TableValue(t *Table) Value { return Value{kind: KindTable, table: t} }

func TextValue(s string) Value { return Value{kind: KindText, text: s} }

func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsTable returns the table held by v. The returned table is never nil when ok.
func (v Value) AsTable() (*Table, bool) {
	if v.kind != KindTable || v.table == nil {
		return nil, false
	}
	return v.table, true
}

// The accessors below mirror Table's and report absence when v is not a table.

func (v Value) Field(name string) (Value, bool) {
	return v.table.Field(name)
}

func (v Value) Text(name string) (string, bool) {
	return v.table.Text(name)
}

func (v Value) Number(name string) (float64, bool) {
	return v.table.Number(name)
}

func (v Value) Bool(name string) (bool, bool) {
	return v.table.Bool(name)
}

func (v Value) Table(name string) (*Table, bool) {
	return v.table.Table(name)
}

func (v Value) Len() int {
	return v.table.Len()
}

func (v Value) Index(i int) (Value, bool) {
	return v.table.Index(i)
}

// Table is an insertion-ordered mapping from Key to Value. Arrays are tables
// whose integer keys run contiguously from 1.
type Table struct {
	keys []Key
	vals map[Key]Value
}

func NewTable() *Table {
	return &Table{vals: make(map[Key]Value)}
}

// Set assigns v to k. Re-assigning an existing key keeps its original position.
func (t *Table) Set(k Key, v Value) {
	if _, ok := t.vals[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.vals[k] = v
}

// Get is safe on a nil table.
func (t *Table) Get(k Key) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.vals[k]
	return v, ok
}

func (t *Table) Field(name string) (Value, bool) { return t.Get(TextKey(name)) }

func (t *Table) Text(name string) (string, bool) {
	v, _ := t.Field(name)
	return v.AsText()
}

func (t *Table) Number(name string) (float64, bool) {
	v, _ := t.Field(name)
	return v.AsNumber()
}

func (t *Table) Bool(name string) (bool, bool) {
	v, _ := t.Field(name)
	return v.AsBool()
}

func (t *Table) Table(name string) (*Table, bool) {
	v, _ := t.Field(name)
	return v.AsTable()
}

// Len returns the array length: the largest n such that keys 1..n all exist.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for {
		if _, ok := t.vals[IndexKey(uint32(n+1))]; !ok {
			return n
		}
		n++
	}
}

// Index returns the element at 1-based position i.
func (t *Table) Index(i int) (Value, bool) {
	if i < 1 || int64(i) > int64(^uint32(0)) {
		return Value{}, false
	}
	return t.Get(IndexKey(uint32(i)))
}

// Elements returns the array part of the table in index order.
func (t *Table) Elements() []Value {
	n := t.Len()
	out := make([]Value, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, t.vals[IndexKey(uint32(i))])
	}
	return out
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []Key {
	if t == nil {
		return nil
	}
	out := make([]Key, len(t.keys))
	copy(out, t.keys)
	return out
}

// Size is the number of entries, including non-array keys.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Equal reports whether two trees have the same shape, keys, key order and leaves.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindText:
		return a.text == b.text
	case KindNumber:
		return a.num == b.num
	case KindBool:
		return a.b == b.b
	case KindTable:
		return tablesEqual(a.table, b.table)
	default:
		return true
	}
}

func tablesEqual(a, b *Table) bool {
	if a.Size() != b.Size() {
		return false
	}
	if a == nil || b == nil {
		return a.Size() == 0 && b.Size() == 0
	}
	for i, k := range a.keys {
		if b.keys[i] != k {
			return false
		}
		if !Equal(a.vals[k], b.vals[k]) {
			return false
		}
	}
	return true
}
