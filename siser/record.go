package siser

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

/*
Serialize / deserialize a list of key/value pairs in a format that is
easy to parse and human-readable.

The format is line-oriented: "key: value\n"

When value is empty, long (> 120 chars) or has characters outside of
printable ascii, we serialize it as:
key:+$len\n
value\n
*/

type Entry struct {
	Key   string
	Value string
}

// Record is a list of key/value pairs to be serialized
type Record struct {
	buf  bytes.Buffer
	Name string
	// when writing, if not provided we use current time
	Timestamp time.Time
}

// ReadRecord is a deserialized Record
type ReadRecord struct {
	Name      string
	Timestamp time.Time
	// Entries are available after UnmarshalRecord
	Entries []Entry
}

func toStr(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprintf("%v", v)
}

// Write writes key/value pairs to a record.
// After you write all key/value pairs, call Marshal()
// to get serialized value (valid until next call to Reset())
func (r *Record) Write(args ...any) error {
	n := len(args)
	if n == 0 || n%2 != 0 {
		return fmt.Errorf("invalid number of args: %d. Should be multiple of 2", len(args))
	}
	for i := 0; i < n; i += 2 {
		k := toStr(args[i])
		if k == "" {
			return fmt.Errorf("empty key")
		}
		r.marshalKeyVal(k, toStr(args[i+1]))
	}
	return nil
}

// Reset to re-use the record.
// Name is not reset because common case is writing the same record type
func (r *Record) Reset() {
	r.Timestamp = time.Time{}
	r.buf.Reset()
}

// Get returns a value for a given key
func (r *ReadRecord) Get(key string) (string, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func serializableOnLine(s string) bool {
	n := len(s)
	for i := 0; i < n; i++ {
		b := s[i]
		if b < 32 || b > 127 {
			return false
		}
	}
	return true
}

// return true if value needs to be serialized in long,
// size-prefixed format
func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !serializableOnLine(s)
}

func (r *Record) marshalKeyVal(key, val string) {
	r.buf.WriteString(key)
	if !needsLongFormat(val) {
		r.buf.WriteString(": ")
		r.buf.WriteString(val)
		r.buf.WriteByte('\n')
		return
	}
	r.buf.WriteString(":+")
	r.buf.WriteString(strconv.Itoa(len(val)))
	r.buf.WriteByte('\n')
	r.buf.WriteString(val)
	// for readability: ensure a newline at the end so
	// that the next key always starts on new line
	if n := len(val); n == 0 || val[n-1] != '\n' {
		r.buf.WriteByte('\n')
	}
}

// Marshal returns serialized record
func (r *Record) Marshal() []byte {
	return r.buf.Bytes()
}

// UnmarshalRecord decodes data created with Record.Marshal
func UnmarshalRecord(d []byte) (*ReadRecord, error) {
	r := &ReadRecord{}
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return nil, fmt.Errorf("missing '\\n' marking end of line in '%s'", string(d))
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		if idx == -1 {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		key := line[:idx]
		val := line[idx+1:]
		// at this point val must be at least one character (' ' or '+')
		if len(val) < 1 {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		kind := val[0]
		val = val[1:]
		if kind == ' ' {
			r.Entries = append(r.Entries, Entry{Key: string(key), Value: string(val)})
			continue
		}
		if kind != '+' {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}

		n, err := strconv.Atoi(string(val))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative length %d of data", n)
		}
		if n > len(d) {
			return nil, fmt.Errorf("length of value %d greater than remaining data of size %d", n, len(d))
		}
		val = d[:n]
		d = d[n:]
		// encoder might put optional newline
		if len(d) > 0 && d[0] == '\n' {
			d = d[1:]
		}
		r.Entries = append(r.Entries, Entry{Key: string(key), Value: string(val)})
	}
	return r, nil
}
