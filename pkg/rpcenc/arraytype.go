package rpcenc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// ErrMalformedArrayType reports an arrayType attribute that cannot be
// parsed into an item type and dimension list.
var ErrMalformedArrayType = errors.New("malformed arrayType attribute")

// formatDims renders a dimension list as "[d1,d2,...]".
func formatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseBracketedInts parses "[i]" or "[i,j,...]" attribute values
// (offset and position attributes, and arrayType dimension suffixes).
func parseBracketedInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("expected bracketed integers, got %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad index %q in %q", p, s)
		}
		out[i] = n
	}
	return out, nil
}

// parseArrayType splits an arrayType value such as "xsd:int[5]" or
// "ns:code[2,3]" into the item type (prefix resolved against el's scope)
// and the dimension list. An unsized declaration like "xsd:int[]" returns
// nil dims.
func parseArrayType(value string, el *etree.Element) (xmlns.Name, []int, error) {
	open := strings.LastIndexByte(value, '[')
	if open <= 0 || !strings.HasSuffix(value, "]") {
		return xmlns.Name{}, nil, fmt.Errorf("%w: %q", ErrMalformedArrayType, value)
	}
	itemLex := strings.TrimSpace(value[:open])
	dims, err := parseBracketedInts(value[open:])
	if err != nil {
		return xmlns.Name{}, nil, fmt.Errorf("%w: %q: %v", ErrMalformedArrayType, value, err)
	}
	item, err := xmlns.ParseLexical(itemLex, el)
	if err != nil {
		return xmlns.Name{}, nil, fmt.Errorf("%w: %q: %v", ErrMalformedArrayType, value, err)
	}
	return item, dims, nil
}

// findScopedAttr returns the value of an attribute whose local name is
// local and whose prefix resolves to wantNS in el's scope. Unprefixed
// attributes match too; legacy peers often omit the encoding prefix.
func findScopedAttr(el *etree.Element, local, wantNS string) (string, bool) {
	for _, attr := range el.Attr {
		if attr.Key != local || attr.Space == "xmlns" {
			continue
		}
		if attr.Space == "" {
			return attr.Value, true
		}
		if uri, ok := xmlns.ResolvePrefix(el, attr.Space); ok && uri == wantNS {
			return attr.Value, true
		}
	}
	return "", false
}
