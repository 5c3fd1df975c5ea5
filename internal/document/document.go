// Package document holds the in-memory form of a loaded API description:
// an ordered tree decoded from JSON or YAML, plus local reference resolution.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotObject is returned by Parse when the root value is not a mapping.
var ErrNotObject = errors.New("document root is not an object")

// ErrAliasExpansion is returned by Parse when YAML aliases expand beyond
// maxAliasNodes values.
var ErrAliasExpansion = errors.New("document aliases expand too far")

const (
	maxAliasDepth = 64
	maxAliasNodes = 1 << 20
)

// markers are the version keys. Their values are kept as written, so an
// unquoted YAML "swagger: 2.0" reads as "2.0" and not as a number.
var markers = []string{"openapi", "swagger"}

// Document is a loaded API document. It is treated as immutable once built;
// transformations produce a new Document.
type Document struct {
	root *Object
}

func New(root *Object) *Document {
	if root == nil {
		root = NewObject()
	}
	return &Document{root: root}
}

// Parse decodes a JSON or YAML document. Key order is preserved.
func Parse(data []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	dec := &decoder{budget: maxAliasNodes}
	v, err := dec.fromNode(&n, 0)
	if err != nil {
		return nil, err
	}
	root := AsObject(v)
	if root == nil {
		return nil, ErrNotObject
	}
	keepMarkerText(root, &n)
	return &Document{root: root}, nil
}

func keepMarkerText(root *Object, n *yaml.Node) {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind == yaml.ScalarNode && v.ShortTag() != "!!null" && slices.Contains(markers, k.Value) {
			root.Set(k.Value, v.Value)
		}
	}
}

func (d *Document) Root() *Object {
	if d == nil {
		return nil
	}
	return d.root
}

// Version returns the value of the openapi or swagger marker, whichever is present.
func (d *Document) Version() string {
	for _, k := range markers {
		if v := d.marker(k); v != "" {
			return v
		}
	}
	return ""
}

func (d *Document) IsSwagger2() bool {
	return strings.HasPrefix(d.marker("swagger"), "2")
}

// marker formats a version marker, numeric ones included for documents
// built in code.
func (d *Document) marker(key string) string {
	raw, _ := d.Root().Get(key)
	switch v := raw.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (d *Document) IsOpenAPI3() bool {
	return d.Root().Has("openapi")
}

// HasMarker reports whether the document declares either version marker.
func (d *Document) HasMarker() bool {
	return d.Root().Has("openapi") || d.Root().Has("swagger")
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Root())
}

// Equal compares two documents semantically.
func (d *Document) Equal(other *Document) bool {
	return Equal(d.Root(), other.Root())
}

// decoder converts yaml nodes. budget counts the values still allowed
// through alias expansion, so a small document of nested aliases cannot
// grow without bound.
type decoder struct {
	budget int
}

func (d *decoder) fromNode(n *yaml.Node, depth int) (any, error) {
	if depth > maxAliasDepth {
		return nil, errors.New("decoding document: alias nesting too deep")
	}
	if depth > 0 {
		if d.budget--; d.budget < 0 {
			return nil, fmt.Errorf("decoding document: %w", ErrAliasExpansion)
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.fromNode(n.Content[0], depth)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			val, err := d.fromNode(v, depth)
			if err != nil {
				return nil, err
			}
			if k.ShortTag() == "!!merge" {
				merge(obj, val)
				continue
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := d.fromNode(c, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, nil
		}
		return d.fromNode(n.Alias, depth+1)
	case yaml.ScalarNode:
		return scalar(n), nil
	}
	return nil, nil
}

func merge(dst *Object, src any) {
	switch s := src.(type) {
	case *Object:
		s.Range(func(k string, v any) bool {
			if !dst.Has(k) {
				dst.Set(k, v)
			}
			return true
		})
	case []any:
		for _, item := range s {
			merge(dst, item)
		}
	}
}

func scalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}

// MarshalYAML encodes the document as an ordered YAML mapping.
func (d *Document) MarshalYAML() (any, error) {
	return toNode(d.Root())
}

// MarshalYAML keeps key order when an object is written as YAML.
func (o *Object) MarshalYAML() (any, error) {
	return toNode(o)
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range t.keys {
			val, err := toNode(t.vals[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			val, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, val)
		}
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return n, nil
}
