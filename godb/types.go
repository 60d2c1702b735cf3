package godb

// This file defines the field/tuple value types that flow between the
// storage core and its operator callers: DBType, FieldType, TupleDesc,
// DBValue, IntField, StringField, and Tuple.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DBType is the type of a tuple field.
type DBType int

const (
	IntType DBType = iota
	StringType
	UnknownType // used internally during parsing, when the type is not yet known
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// StringLength is the fixed capacity, in bytes, of a StringField's payload.
// On disk a string occupies a 4-byte little-endian length prefix followed by
// exactly StringLength bytes, truncated or zero-padded.
const StringLength = 128

// intFieldSize and stringFieldSize are the on-disk byte widths of a field,
// used to size heap page slots.
const (
	intFieldSize    = 4
	stringFieldSize = 4 + StringLength
)

// FieldType is the type of a single field in a tuple: its name, the table it
// was drawn from (may be empty), and its DBType.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

func (f FieldType) bytesOnDisk() int {
	if f.Ftype == StringType {
		return stringFieldSize
	}
	return intFieldSize
}

// TupleDesc is the "type" of a tuple: an ordered, non-empty list of fields.
type TupleDesc struct {
	Fields []FieldType
}

// equals compares two descriptors positionally by Ftype only; field names do
// not participate.
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// bytesPerTuple is the sum of the on-disk widths of this descriptor's fields.
func (d *TupleDesc) bytesPerTuple() int {
	size := 0
	for _, f := range d.Fields {
		size += f.bytesOnDisk()
	}
	return size
}

// findFieldInTd finds the best-matching field in desc for field, preferring a
// match on TableQualifier when field specifies one.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname == field.Fname && (f.Ftype == field.Ftype || field.Ftype == UnknownType) {
			if field.TableQualifier == "" && best != -1 {
				return 0, GoDBError{AmbiguousNameError, fmt.Sprintf("select name %s is ambiguous", f.Fname)}
			}
			if f.TableQualifier == field.TableQualifier || best == -1 {
				best = i
			}
		}
	}
	if best != -1 {
		return best, nil
	}
	return -1, GoDBError{IncompatibleTypesError, fmt.Sprintf("field %s.%s not found", field.TableQualifier, field.Fname)}
}

// copy returns a TupleDesc with an independent Fields slice.
func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

// setTableAlias assigns the TableQualifier of every field to alias.
func (td *TupleDesc) setTableAlias(alias string) {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	td.Fields = fields
}

// merge concatenates the fields of desc and desc2, in that order.
func (desc *TupleDesc) merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(desc.Fields)+len(desc2.Fields))
	fields = append(fields, desc.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

// ================== Field values ======================

// DBValue is the interface implemented by tuple field values.
type DBValue interface {
	EvalPred(v DBValue, op BoolOp) bool
}

// IntField is a 32-bit signed integer field value. It is stored as an
// int64 in memory, but truncated to 4 bytes little-endian on disk, per the
// heap page layout.
type IntField struct {
	Value int64
}

// StringField is a fixed-length UTF-8 string field value of up to
// StringLength bytes.
type StringField struct {
	Value string
}

// PageID identifies a page within a specific table's heap file. Identity is
// structural: two PageIDs are equal (and hash alike as map keys) iff both
// fields match.
type PageID struct {
	TableID    int
	PageNumber int
}

// RecordID is the (page, slot) coordinate of a materialized tuple.
type RecordID struct {
	PageID PageID
	SlotNo int
}

// Tuple represents a row: a value for each field of Desc, plus an optional
// RecordID assigned when the tuple is materialized on a page.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

// writeTo serializes the tuple's fields, in order, little-endian, into buf.
// Integers are truncated to 4 bytes; strings are written as a 4-byte length
// prefix followed by StringLength bytes, truncated or zero-padded.
func (t *Tuple) writeTo(buf *bytes.Buffer) error {
	for i, field := range t.Fields {
		ftype := t.Desc.Fields[i].Ftype
		switch v := field.(type) {
		case IntField:
			if ftype != IntType {
				return GoDBError{SchemaMismatchError, "int field value at non-int position"}
			}
			if err := binary.Write(buf, binary.LittleEndian, int32(v.Value)); err != nil {
				return err
			}
		case StringField:
			if ftype != StringType {
				return GoDBError{SchemaMismatchError, "string field value at non-string position"}
			}
			if err := writeStringField(buf, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported field type: %T", field)
		}
	}
	return nil
}

func writeStringField(buf *bytes.Buffer, s StringField) error {
	raw := []byte(s.Value)
	if len(raw) > StringLength {
		raw = raw[:StringLength]
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(raw))); err != nil {
		return err
	}
	padded := make([]byte, StringLength)
	copy(padded, raw)
	_, err := buf.Write(padded)
	return err
}

func readStringField(buf *bytes.Buffer) (StringField, error) {
	var n int32
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return StringField{}, err
	}
	raw := make([]byte, StringLength)
	if _, err := buf.Read(raw); err != nil {
		return StringField{}, err
	}
	if n < 0 || int(n) > StringLength {
		n = int32(len(strings.TrimRight(string(raw), "\x00")))
	}
	return StringField{Value: string(raw[:n])}, nil
}

func readIntField(buf *bytes.Buffer) (IntField, error) {
	var v int32
	if err := binary.Read(buf, binary.LittleEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: int64(v)}, nil
}

func readTupleFrom(buf *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc}
	for _, f := range desc.Fields {
		switch f.Ftype {
		case StringType:
			v, err := readStringField(buf)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, v)
		default:
			v, err := readIntField(buf)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, v)
		}
	}
	return t, nil
}

// equals compares two tuples for equality: descriptors must be equal and all
// fields must compare equal.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil && t2 == nil {
		return true
	}
	if t1 == nil || t2 == nil {
		return false
	}
	if len(t1.Fields) != len(t2.Fields) {
		return false
	}
	if !t1.Desc.equals(&t2.Desc) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples produces a new tuple with the fields of t2 appended to t1.
func joinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	return &Tuple{
		Desc:   *t1.Desc.merge(&t2.Desc),
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// compareField evaluates field against t and t2 and compares the results.
func (t *Tuple) compareField(t2 *Tuple, field Expr) (orderByState, error) {
	v1, err := field.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := field.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	return compareFields(v1, v2)
}

func compareFields(val1, val2 DBValue) (orderByState, error) {
	switch v1 := val1.(type) {
	case IntField:
		v2, ok := val2.(IntField)
		if !ok {
			break
		}
		switch {
		case v1.Value > v2.Value:
			return OrderedGreaterThan, nil
		case v1.Value == v2.Value:
			return OrderedEqual, nil
		default:
			return OrderedLessThan, nil
		}
	case StringField:
		v2, ok := val2.(StringField)
		if !ok {
			break
		}
		switch {
		case v1.Value > v2.Value:
			return OrderedGreaterThan, nil
		case v1.Value == v2.Value:
			return OrderedEqual, nil
		default:
			return OrderedLessThan, nil
		}
	}
	return OrderedEqual, fmt.Errorf("unsupported field comparison between %T and %T", val1, val2)
}

// project returns a new tuple containing only the named fields, preferring a
// match on TableQualifier when present.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	projected := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, field := range fields {
		matched := -1
		for i, df := range t.Desc.Fields {
			if field.Fname == df.Fname && field.TableQualifier == df.TableQualifier {
				matched = i
				break
			}
		}
		if matched == -1 {
			for i, df := range t.Desc.Fields {
				if field.Fname == df.Fname {
					matched = i
					break
				}
			}
		}
		if matched == -1 {
			return nil, fmt.Errorf("field %s.%s not found", field.TableQualifier, field.Fname)
		}
		projected.Fields = append(projected.Fields, t.Fields[matched])
		projected.Desc.Fields = append(projected.Desc.Fields, t.Desc.Fields[matched])
	}
	return projected, nil
}

// tupleKey computes a key suitable for use as a map key, for distinct
// projection and similar uses.
func (t *Tuple) tupleKey() any {
	var buf bytes.Buffer
	t.writeTo(&buf)
	return buf.String()
}

var prettyPrintWidth = 120

func fmtCol(v string, ncols int) string {
	colWid := prettyPrintWidth / ncols
	nextLen := len(v) + 3
	remLen := colWid - nextLen
	if remLen > 0 {
		right := remLen / 2
		left := remLen - right
		return strings.Repeat(" ", left) + v + strings.Repeat(" ", right) + " |"
	}
	if colWid-4 > 0 && colWid-4 < len(v) {
		return " " + v[0:colWid-4] + " |"
	}
	return " " + v + " |"
}

// HeaderString renders a descriptor's field names, aligned into columns when
// aligned is true, comma-separated otherwise.
func (d *TupleDesc) HeaderString(aligned bool) string {
	out := ""
	for i, f := range d.Fields {
		name := f.Fname
		if f.TableQualifier != "" {
			name = f.TableQualifier + "." + name
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(name, len(d.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			out = fmt.Sprintf("%s%s%s", out, sep, name)
		}
	}
	return out
}

// PrettyPrintString renders a tuple's field values, matching HeaderString's
// layout.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	out := ""
	for i, f := range t.Fields {
		str := ""
		switch v := f.(type) {
		case IntField:
			str = strconv.FormatInt(v.Value, 10)
		case StringField:
			str = v.Value
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(str, len(t.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			out = fmt.Sprintf("%s%s%s", out, sep, str)
		}
	}
	return out
}
