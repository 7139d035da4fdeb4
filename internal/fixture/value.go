package fixture

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/srg/blewire/pkg/native"
	"gopkg.in/yaml.v3"
)

// Custom scalar tags. Plain YAML integers decode as 64-bit; 32-bit fields need !i32.
const (
	TagInt32  = "!i32"
	TagInt64  = "!i64"
	TagDouble = "!f64"
)

var ErrUnsupportedNode = errors.New("unsupported YAML node")

// Value is a native value decoded from YAML.
type Value struct {
	native.Value
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	nv, err := ToNative(n)
	if err != nil {
		return err
	}
	v.Value = nv
	return nil
}

// ToNative converts a YAML node tree to a native value, keeping the scalar width its tag asks for.
func ToNative(n *yaml.Node) (native.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return native.Null(), nil
		}
		return ToNative(n.Content[0])
	case yaml.AliasNode:
		return ToNative(n.Alias)
	case yaml.MappingNode:
		rec := make(native.Record, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return native.Null(), fmt.Errorf("%w: line %d: record keys must be scalars", ErrUnsupportedNode, key.Line)
			}
			v, err := ToNative(n.Content[i+1])
			if err != nil {
				return native.Null(), err
			}
			rec[key.Value] = v
		}
		return native.RecordOf(rec), nil
	case yaml.SequenceNode:
		items := make([]native.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := ToNative(c)
			if err != nil {
				return native.Null(), err
			}
			items = append(items, v)
		}
		return native.ListOf(items...), nil
	case yaml.ScalarNode:
		return scalar(n)
	}
	return native.Null(), fmt.Errorf("%w: kind %d at line %d", ErrUnsupportedNode, n.Kind, n.Line)
}

func scalar(n *yaml.Node) (native.Value, error) {
	bad := func(err error) (native.Value, error) {
		return native.Null(), fmt.Errorf("%w: line %d: %s %q: %v", ErrUnsupportedNode, n.Line, n.Tag, n.Value, err)
	}

	switch n.ShortTag() {
	case "!!null":
		return native.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return bad(err)
		}
		return native.Bool(b), nil
	case "!!int", TagInt64:
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return bad(err)
		}
		return native.Int64(i), nil
	case TagInt32:
		i, err := strconv.ParseInt(n.Value, 0, 32)
		if err != nil {
			return bad(err)
		}
		return native.Int32(int32(i)), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return bad(err)
		}
		return native.Double(f), nil
	case TagDouble:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return bad(err)
		}
		return native.Double(f), nil
	case "!!str":
		return native.String(n.Value), nil
	}
	return bad(errors.New("unknown tag"))
}
