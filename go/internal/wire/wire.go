// Package wire implements the typed-XML value language the legacy penalty
// client speaks. The format predates this server and is fixed by the shipped
// binary: scalars are self-closing nodes with a "v" attribute, doubles are
// written as little-endian IEEE 754 hex, objects are <o> nodes with ordered
// <k n="..."> children, and pushed game messages are wrapped in a
// GAMEMESSAGERECEIVED envelope whose inner document lives inside an XML
// attribute. None of it may change.
package wire

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Field is one ordered key of a serialized object. The client's deserializer
// is order-sensitive for game messages, so objects are built from slices, not
// maps.
type Field struct {
	Name  string
	Value any
}

// Object is an ordered object literal.
type Object []Field

// GameMessage is the function-call shape every in-game exchange uses.
type GameMessage struct {
	FunctionName string
	Parameters   []any
}

// Escape applies the client's attribute escaping. Replacement order matters:
// ampersand first, then quote, then angle brackets.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

// Serialize renders a Go value in the client's typed-XML form.
//
// Supported inputs: nil, bool, int variants, float64, string, []any, Object
// and GameMessage. Anything else is stringified, matching the fallback the
// original serializer had.
func Serialize(v any) string {
	switch val := v.(type) {
	case nil:
		return "<null />"
	case bool:
		if val {
			return `<b v="t"/>`
		}
		return `<b v="f"/>`
	case int:
		return fmt.Sprintf(`<i v="%d"/>`, val)
	case int32:
		return fmt.Sprintf(`<i v="%d"/>`, val)
	case int64:
		return fmt.Sprintf(`<i v="%d"/>`, val)
	case uint64:
		return fmt.Sprintf(`<i v="%d"/>`, val)
	case float64:
		return serializeNumber(val)
	case string:
		return fmt.Sprintf(`<s v="%s"/>`, Escape(val))
	case []any:
		var b strings.Builder
		b.WriteString("<a>")
		for _, item := range val {
			b.WriteString(Serialize(item))
		}
		b.WriteString("</a>")
		return b.String()
	case Object:
		var b strings.Builder
		b.WriteString("<o>")
		for _, f := range val {
			fmt.Fprintf(&b, `<k n="%s">%s</k>`, Escape(f.Name), Serialize(f.Value))
		}
		b.WriteString("</o>")
		return b.String()
	case GameMessage:
		return Serialize(Object{
			{Name: "functionName", Value: val.FunctionName},
			{Name: "parameters", Value: val.Parameters},
		})
	default:
		return fmt.Sprintf(`<s v="%s"/>`, Escape(fmt.Sprint(val)))
	}
}

// serializeNumber writes a float64 the way the client's serializer does:
// the IEEE 754 bits split into two little-endian words, high word first and
// omitted entirely when zero.
func serializeNumber(f float64) string {
	bits := math.Float64bits(f)
	lo := uint32(bits)
	hi := uint32(bits >> 32)
	if hi != 0 {
		return fmt.Sprintf(`<n v="%08x%08x"/>`, hi, lo)
	}
	return fmt.Sprintf(`<n v="%x"/>`, lo)
}

// Deserialize parses a typed-XML document back into Go values: strings,
// int, float64, bool, nil, []any for arrays and map[string]any for objects.
func Deserialize(doc string) (any, error) {
	root, err := parseTree(strings.TrimSpace(doc))
	if err != nil {
		return nil, fmt.Errorf("parse wire document: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("parse wire document: empty input")
	}
	return nodeValue(root)
}

// ParseGameMessage deserializes a document and unwraps it to the inner game
// message, stripping the synchronizeString/playerIndex envelope (single or
// batched) when present.
func ParseGameMessage(doc string) (GameMessage, error) {
	v, err := Deserialize(doc)
	if err != nil {
		return GameMessage{}, err
	}
	obj := unwrapEnvelope(v)
	if obj == nil {
		return GameMessage{}, fmt.Errorf("wire: no game message in %q", truncate(doc, 60))
	}
	fn, _ := obj["functionName"].(string)
	if fn == "" {
		return GameMessage{}, fmt.Errorf("wire: empty functionName in %q", truncate(doc, 60))
	}
	params, _ := obj["parameters"].([]any)
	return GameMessage{FunctionName: fn, Parameters: params}, nil
}

func unwrapEnvelope(v any) map[string]any {
	// Batched form: an array of envelope objects. Only the first entry
	// matters; every entry carries the same message.
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if inner, ok := obj["message"].(map[string]any); ok {
		return inner
	}
	return obj
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type node struct {
	tag      string
	attrs    map[string]string
	children []*node
}

func parseTree(doc string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var stack []*node
	var root *node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{tag: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return root, nil
}

func nodeValue(n *node) (any, error) {
	switch n.tag {
	case "s":
		return n.attrs["v"], nil
	case "i":
		i, err := strconv.Atoi(n.attrs["v"])
		if err != nil {
			return nil, fmt.Errorf("wire: bad int %q: %w", n.attrs["v"], err)
		}
		return i, nil
	case "n":
		return parseNumber(n.attrs["v"])
	case "b":
		return n.attrs["v"] == "t", nil
	case "a":
		arr := make([]any, 0, len(n.children))
		for _, c := range n.children {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case "o":
		obj := make(map[string]any, len(n.children))
		for _, k := range n.children {
			if k.tag != "k" {
				continue
			}
			if len(k.children) == 0 {
				obj[k.attrs["n"]] = nil
				continue
			}
			v, err := nodeValue(k.children[0])
			if err != nil {
				return nil, err
			}
			obj[k.attrs["n"]] = v
		}
		return obj, nil
	case "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("wire: unknown node <%s>", n.tag)
	}
}

func parseNumber(h string) (float64, error) {
	if h == "" {
		return 0, fmt.Errorf("wire: empty number")
	}
	var hi, lo uint64
	var err error
	if len(h) > 8 {
		hi, err = strconv.ParseUint(h[:len(h)-8], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("wire: bad number %q: %w", h, err)
		}
		lo, err = strconv.ParseUint(h[len(h)-8:], 16, 32)
	} else {
		lo, err = strconv.ParseUint(h, 16, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("wire: bad number %q: %w", h, err)
	}
	return math.Float64frombits(hi<<32 | lo), nil
}
