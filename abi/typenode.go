package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// baseKind is the kind a typeNode carries: an elementary kind for a
// leaf, or kindTuple for a tuple (whose children are in components).
// Array nodes leave this empty — arrayOf carries that duty instead (see
// typeNode's invariants below).
type baseKind string

const (
	kindUint    baseKind = "uint"
	kindInt     baseKind = "int"
	kindAddress baseKind = "address"
	kindBool    baseKind = "bool"
	kindBytes   baseKind = "bytes"
	kindString  baseKind = "string"
	kindTuple   baseKind = "tuple"
)

// typeNode is the parsed form of one ABI type string (section 4.1). Invariants:
//   - dynamic is true iff the subtree contains string, unsized bytes, a
//     dynamic array, or a tuple with any dynamic component.
//   - arrayOf and components are mutually exclusive: a node is either an
//     array, a tuple, or an elementary scalar.
type typeNode struct {
	fieldName      string
	base           baseKind
	byteWidth      int // -1 when absent/not applicable
	dynamic        bool
	arrayOf        *typeNode
	fixedArraySize int // -1 for a dynamic array or non-array node
	components     []*typeNode
}

// Field is the Go shape of one entry in an ABI parameter list ("inputs",
// "outputs", event fields, or tuple "components"), as it appears in the
// contract ABI JSON.
type Field struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Components []Field `json:"components,omitempty"`
	Indexed    bool    `json:"indexed,omitempty"`
}

// parseType builds the typeNode tree for a single ABI field.
func parseType(f Field) (*typeNode, error) {
	return parseTypeString(f.Name, f.Type, f.Components)
}

func parseTypeString(name, typ string, components []Field) (*typeNode, error) {
	if strings.HasSuffix(typ, "]") {
		idx := strings.LastIndex(typ, "[")
		if idx < 0 {
			return nil, fmt.Errorf("%w: unbalanced array brackets in %q", ErrMalformedType, typ)
		}
		lenSpec := typ[idx+1 : len(typ)-1]
		inner := typ[:idx]

		child, err := parseTypeString(name, inner, components)
		if err != nil {
			return nil, err
		}

		node := &typeNode{fieldName: name, arrayOf: child, byteWidth: -1, fixedArraySize: -1}
		if lenSpec == "" {
			node.dynamic = true
		} else {
			n, err := strconv.Atoi(lenSpec)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed array cardinality %q", ErrMalformedType, lenSpec)
			}
			node.fixedArraySize = n
		}
		if child.dynamic {
			node.dynamic = true
		}
		return node, nil
	}

	i := 0
	for i < len(typ) && typ[i] >= 'a' && typ[i] <= 'z' {
		i++
	}
	base := typ[:i]
	rest := typ[i:]

	byteWidth := -1
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed width spec in %q", ErrMalformedType, typ)
		}
		switch baseKind(base) {
		case kindUint, kindInt:
			if n%8 != 0 {
				return nil, fmt.Errorf("%w: %s width not a multiple of 8: %q", ErrMalformedType, base, typ)
			}
			byteWidth = n / 8
		default:
			byteWidth = n
		}
	}

	node := &typeNode{fieldName: name, base: baseKind(base), byteWidth: byteWidth, fixedArraySize: -1}

	switch node.base {
	case kindTuple:
		node.components = make([]*typeNode, len(components))
		for i, c := range components {
			child, err := parseType(c)
			if err != nil {
				return nil, err
			}
			node.components[i] = child
			if child.dynamic {
				node.dynamic = true
			}
		}
	case kindString:
		node.dynamic = true
	case kindBytes:
		if byteWidth == -1 {
			node.dynamic = true
		}
	case kindUint, kindInt, kindAddress, kindBool:
		// static elementary types, nothing further to do
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBase, base)
	}

	return node, nil
}

// parseParameterList builds the virtual root tuple for a function's
// inputs/outputs or an event's indexed/non-indexed field list. Its
// dynamism is forced to false: callers provide the top-level offset
// basis (section 3).
func parseParameterList(fields []Field) (*typeNode, error) {
	components := make([]*typeNode, len(fields))
	for i, f := range fields {
		child, err := parseType(f)
		if err != nil {
			return nil, err
		}
		components[i] = child
	}
	return &typeNode{base: kindTuple, components: components, byteWidth: -1, fixedArraySize: -1, dynamic: false}, nil
}

// signatureString renders the canonical type string used in function and
// event signatures: tuples expand to "(t1,t2,...)", arrays keep their
// "[]"/"[K]" suffix, and unsized uint/int default to the 256-bit form.
func (n *typeNode) signatureString() string {
	switch {
	case n.arrayOf != nil:
		suffix := "[]"
		if n.fixedArraySize > -1 {
			suffix = "[" + strconv.Itoa(n.fixedArraySize) + "]"
		}
		return n.arrayOf.signatureString() + suffix
	case n.base == kindTuple:
		parts := make([]string, len(n.components))
		for i, c := range n.components {
			parts[i] = c.signatureString()
		}
		return "(" + strings.Join(parts, ",") + ")"
	case n.base == kindUint, n.base == kindInt:
		width := n.byteWidth
		if width == -1 {
			width = 32
		}
		return string(n.base) + strconv.Itoa(width*8)
	case n.base == kindBytes && n.byteWidth > -1:
		return "bytes" + strconv.Itoa(n.byteWidth)
	default:
		return string(n.base)
	}
}
