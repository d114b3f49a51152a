package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/dgallion1/flatjson/internal/value"
)

// JSONDecoder reads JSON through go-json's token stream so that object keys
// keep their document order. The token stream skips separators without
// checking them, so the whole document is validated first.
type JSONDecoder struct{}

func (d *JSONDecoder) Decode(r io.Reader) (value.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &Error{Format: "json", Err: errors.New("empty document")}
	}
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		if err == nil {
			err = errors.New("malformed document")
		}
		return nil, &Error{Format: "json", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &Error{Format: "json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &Error{Format: "json", Err: err}
	}
	return v, nil
}

func readValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return fromToken(dec, tok)
}

func fromToken(dec *json.Decoder, tok json.Token) (value.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return value.String(strings.Clone(t)), nil
	case json.Number:
		return value.Number(json.Number(strings.Clone(string(t)))), nil
	case float64:
		return value.Number(json.Number(fmt.Sprint(t))), nil
	case bool:
		return value.Bool(t), nil
	case nil:
		return value.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func readObject(dec *json.Decoder) (value.Value, error) {
	obj := value.NewObject()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		key = strings.Clone(key)
		v, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj.Set(key, v)
	}
}

func readArray(dec *json.Decoder) (value.Value, error) {
	arr := value.NewArray()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return arr, nil
		}
		v, err := fromToken(dec, tok)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", arr.Len(), err)
		}
		arr.Append(v)
	}
}
