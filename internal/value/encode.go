package value

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Marshal encodes v as compact JSON, keeping object keys in insertion order.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is like Marshal but pretty-prints the result.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, prefix, indent); err != nil {
		return nil, fmt.Errorf("indent: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *Object) MarshalJSON() ([]byte, error) { return Marshal(o) }
func (a *Array) MarshalJSON() ([]byte, error)  { return Marshal(a) }
func (s Scalar) MarshalJSON() ([]byte, error)  { return Marshal(s) }

func appendValue(buf *bytes.Buffer, v Value) error {
	var err error
	Match(v,
		func(o *Object) {
			buf.WriteByte('{')
			for i, k := range o.keys {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err = appendScalar(buf, k); err != nil {
					return
				}
				buf.WriteByte(':')
				if err = appendValue(buf, o.vals[i]); err != nil {
					return
				}
			}
			buf.WriteByte('}')
		},
		func(a *Array) {
			buf.WriteByte('[')
			for i, item := range a.items {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err = appendValue(buf, item); err != nil {
					return
				}
			}
			buf.WriteByte(']')
		},
		func(s Scalar) {
			err = appendScalar(buf, s.v)
		},
	)
	return err
}

func appendScalar(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode scalar %v: %w", v, err)
	}
	buf.Write(b)
	return nil
}
