package decode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/flatjson/internal/value"
)

// maxAliasDepth bounds alias expansion so a self-referencing document
// cannot recurse forever.
const maxAliasDepth = 64

// YAMLDecoder reads a single YAML document. Mapping order is taken from the
// node tree, and scalars are normalised to the JSON scalar set.
type YAMLDecoder struct{}

func (d *YAMLDecoder) Decode(r io.Reader) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &Error{Format: "yaml", Err: err}
	}
	v, err := fromNode(&doc, 0)
	if err != nil {
		return nil, &Error{Format: "yaml", Err: err}
	}
	return v, nil
}

func fromNode(n *yaml.Node, aliases int) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return fromNode(n.Content[0], aliases)
	case yaml.AliasNode:
		if aliases >= maxAliasDepth {
			return nil, fmt.Errorf("line %d: alias nesting exceeds %d", n.Line, maxAliasDepth)
		}
		return fromNode(n.Alias, aliases+1)
	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			if k.ShortTag() == "!!merge" {
				if err := mergeInto(obj, v, aliases); err != nil {
					return nil, err
				}
				continue
			}
			child, err := fromNode(v, aliases)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k.Value, err)
			}
			obj.Set(k.Value, child)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := value.NewArray()
		for i, item := range n.Content {
			child, err := fromNode(item, aliases)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr.Append(child)
		}
		return arr, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// mergeInto applies a "<<" merge key: fields already present win.
func mergeInto(obj *value.Object, src *yaml.Node, aliases int) error {
	v, err := fromNode(src, aliases)
	if err != nil {
		return err
	}
	var sources []*value.Object
	var bad bool
	value.Match(v,
		func(o *value.Object) { sources = append(sources, o) },
		func(a *value.Array) {
			for _, item := range a.Items() {
				o, ok := item.(*value.Object)
				if !ok {
					bad = true
					return
				}
				sources = append(sources, o)
			}
		},
		func(value.Scalar) { bad = true },
	)
	if bad {
		return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
	}
	for _, o := range sources {
		for k, fv := range o.All() {
			if !obj.Has(k) {
				obj.Set(k, fv)
			}
		}
	}
	return nil
}

func fromScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var u uint64
			if uerr := n.Decode(&u); uerr != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return value.Number(json.Number(strconv.FormatUint(u, 10))), nil
		}
		return value.Number(json.Number(strconv.FormatInt(i, 10))), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("line %d: %q has no JSON representation", n.Line, n.Value)
		}
		return value.Number(json.Number(strconv.FormatFloat(f, 'g', -1, 64))), nil
	default:
		return value.String(n.Value), nil
	}
}
