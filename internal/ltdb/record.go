package ltdb

import (
	"encoding/binary"
	"strings"
)

// Element is one named, flagged, multi-valued attribute of an Entry. A
// zero-value Values slice is a tombstone used transiently during
// mutation (§3) but is never packed with the record.
type Element struct {
	Name   string
	Flags  uint32
	Values [][]byte
}

// Entry is the backend's in-memory representation of a directory record.
// DN is implicit in the primary key and may be empty on an Entry that
// came straight out of Unpack; callers fill it in from the key.
type Entry struct {
	DN       string
	Elements []Element
}

// NewEntry returns an empty entry for dn.
func NewEntry(dn string) *Entry {
	return &Entry{DN: dn}
}

// Element returns a pointer to the named element, or nil if absent.
// Lookup is case-insensitive.
func (e *Entry) Element(name string) *Element {
	lname := strings.ToLower(name)
	for i := range e.Elements {
		if strings.ToLower(e.Elements[i].Name) == lname {
			return &e.Elements[i]
		}
	}
	return nil
}

// RemoveElement deletes the named element and reports whether it was
// present.
func (e *Entry) RemoveElement(name string) bool {
	lname := strings.ToLower(name)
	for i := range e.Elements {
		if strings.ToLower(e.Elements[i].Name) == lname {
			e.Elements = append(e.Elements[:i], e.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// SetElement replaces (or appends) the named element wholesale.
func (e *Entry) SetElement(name string, values ...[]byte) {
	if el := e.Element(name); el != nil {
		el.Values = values
		return
	}
	e.Elements = append(e.Elements, Element{Name: name, Values: values})
}

// Clone deep-copies the entry, used before a Modify so a failed
// operation can be reported against the untouched original (§8,
// testable property 5).
func (e *Entry) Clone() *Entry {
	clone := &Entry{DN: e.DN, Elements: make([]Element, len(e.Elements))}
	for i, el := range e.Elements {
		values := make([][]byte, len(el.Values))
		for j, v := range el.Values {
			values[j] = append([]byte(nil), v...)
		}
		clone.Elements[i] = Element{Name: el.Name, Flags: el.Flags, Values: values}
	}
	return clone
}

// pack serializes an entry's elements to the opaque byte form stored
// under a primary key. The DN is never packed; it is implicit in the
// key. Elements with zero values (tombstones) are dropped.
func pack(e *Entry) []byte {
	var live []Element
	for _, el := range e.Elements {
		if len(el.Values) > 0 {
			live = append(live, el)
		}
	}

	size := 4
	for _, el := range live {
		size += 4 + len(el.Name) + 4 + 4
		for _, v := range el.Values {
			size += 4 + len(v)
		}
	}

	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(live)))
	off += 4

	for _, el := range live {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(el.Name)))
		off += 4
		off += copy(buf[off:], el.Name)
		binary.LittleEndian.PutUint32(buf[off:], el.Flags)
		off += 4
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(el.Values)))
		off += 4
		for _, v := range el.Values {
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(v)))
			off += 4
			off += copy(buf[off:], v)
		}
	}

	return buf
}

// unpack is pack's exact inverse, tolerant of a missing DN (the caller
// fills it in from the primary key it read the record under).
func unpack(data []byte) (*Entry, error) {
	e := &Entry{}
	if len(data) < 4 {
		if len(data) == 0 {
			return e, nil
		}
		return nil, ErrOperations
	}

	off := 0
	numElements := binary.LittleEndian.Uint32(data[off:])
	off += 4

	for i := uint32(0); i < numElements; i++ {
		if off+4 > len(data) {
			return nil, ErrOperations
		}
		nameLen := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if off+int(nameLen) > len(data) {
			return nil, ErrOperations
		}
		name := string(data[off : off+int(nameLen)])
		off += int(nameLen)

		if off+8 > len(data) {
			return nil, ErrOperations
		}
		flags := binary.LittleEndian.Uint32(data[off:])
		off += 4
		numValues := binary.LittleEndian.Uint32(data[off:])
		off += 4

		values := make([][]byte, 0, numValues)
		for j := uint32(0); j < numValues; j++ {
			if off+4 > len(data) {
				return nil, ErrOperations
			}
			valLen := binary.LittleEndian.Uint32(data[off:])
			off += 4
			if off+int(valLen) > len(data) {
				return nil, ErrOperations
			}
			values = append(values, append([]byte(nil), data[off:off+int(valLen)]...))
			off += int(valLen)
		}

		e.Elements = append(e.Elements, Element{Name: name, Flags: flags, Values: values})
	}

	return e, nil
}
