package document

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// RefKey is the property name that marks a schema node as a reference.
const RefKey = "$ref"

const rootMarker = "#/"

// Resolve walks a local pointer such as "#/components/schemas/Pet" from the
// document root. Pointers that are not local, or that miss at any segment,
// resolve to absent.
func Resolve(doc *Document, pointer string) (any, bool) {
	if doc == nil || !strings.HasPrefix(pointer, rootMarker) {
		return nil, false
	}
	var cur any = doc.Root()
	for _, seg := range strings.Split(pointer[len(rootMarker):], "/") {
		seg = unescape(seg)
		switch node := cur.(type) {
		case *Object:
			v, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Ref returns the pointer carried by a reference node.
func Ref(schema any) (string, bool) {
	ref, ok := AsObject(schema).Get(RefKey)
	if !ok {
		return "", false
	}
	s, ok := ref.(string)
	return s, ok
}

// ResolveSchema follows the reference on schema, if it has one, and otherwise
// returns schema unchanged. Callers must pass every schema through here before
// looking at its type or properties.
func ResolveSchema(doc *Document, schema any) any {
	if schema == nil {
		return nil
	}
	ref, ok := Ref(schema)
	if !ok {
		return schema
	}
	v, ok := Resolve(doc, ref)
	if !ok {
		return nil
	}
	return v
}

var dotnetGeneric = regexp.MustCompile("`\\d+\\[\\[.*?\\]\\]")

// RefName is the display name of a reference: its last segment, with .NET
// generic suffixes dropped and underscores shown as dots.
func RefName(pointer string) string {
	if pointer == "" {
		return ""
	}
	name := pointer[strings.LastIndex(pointer, "/")+1:]
	name = dotnetGeneric.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "_", ".")
}

func unescape(seg string) string {
	if strings.Contains(seg, "%") {
		if s, err := url.PathUnescape(seg); err == nil {
			seg = s
		}
	}
	seg = strings.ReplaceAll(seg, "~1", "/")
	return strings.ReplaceAll(seg, "~0", "~")
}
