package rpcenc

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// decodeArray decodes a SOAP-encoded array element. attrVal is the raw
// arrayType attribute value; hasAttr is false for elements that are only
// recognizable as arrays through xsi:type, in which case the size and
// item type come from the children alone.
func (d *Decoder) decodeArray(el *etree.Element, attrVal string, hasAttr bool) (any, error) {
	var item xmlns.Name
	var dims []int
	if hasAttr {
		it, ds, err := parseArrayType(attrVal, el)
		if err != nil {
			return nil, err
		}
		item, dims = it, ds
	}

	var base *xmlns.Name
	if !item.IsZero() && !strings.Contains(item.Local, "[") {
		base = &item
	}

	if len(dims) <= 1 {
		declared := -1
		if len(dims) == 1 {
			declared = dims[0]
		}
		return d.decodeSingleDim(el, base, declared)
	}
	return d.decodeMultiDim(el, base, dims)
}

// decodeSingleDim decodes a one-dimensional array, honoring offset and
// per-item position attributes, and pads the result to the declared size.
func (d *Decoder) decodeSingleDim(el *etree.Element, base *xmlns.Name, declared int) ([]any, error) {
	children := el.ChildElements()

	offset := 0
	if v, ok := findScopedAttr(el, "offset", d.EncodingNS); ok {
		off, err := parseBracketedInts(v)
		if err != nil || len(off) != 1 {
			return nil, fmt.Errorf("bad array offset %q", v)
		}
		offset = off[0]
	}

	// Fix the result length before any slot is registered: positions and
	// the sequential tail are both scanned up front so the backing array
	// never moves under a pending reference.
	length := declared
	seqCount := 0
	maxPos := -1
	positions := make([]int, len(children))
	for i, child := range children {
		positions[i] = -1
		if v, ok := findScopedAttr(child, "position", d.EncodingNS); ok {
			pos, err := parseBracketedInts(v)
			if err != nil || len(pos) != 1 {
				return nil, fmt.Errorf("bad array position %q", v)
			}
			positions[i] = pos[0]
			if pos[0] > maxPos {
				maxPos = pos[0]
			}
		} else {
			seqCount++
		}
	}
	if need := offset + seqCount; need > length {
		length = need
	}
	if maxPos+1 > length {
		length = maxPos + 1
	}
	if declared >= 0 && length > declared {
		d.Log.Warn("array contents exceed declared size, growing",
			"declared", declared, "actual", length)
	}
	if length < 0 {
		length = 0
	}

	result := make([]any, length)
	if id := el.SelectAttrValue("id", ""); id != "" {
		d.index[id] = result
	}

	next := offset
	for i, child := range children {
		v, err := d.decodeNode(child, base)
		if err != nil {
			return nil, err
		}
		pos := positions[i]
		if pos < 0 {
			pos = next
			next++
		}
		d.PutIndex(result, pos, v)
	}
	return result, nil
}

// decodeMultiDim decodes a multi-dimensional array into nested sequences
// matching dims: either sparse, placing each position-tagged cell at its
// coordinates, or dense, consuming children in row-major order.
func (d *Decoder) decodeMultiDim(el *etree.Element, base *xmlns.Name, dims []int) ([]any, error) {
	children := el.ChildElements()

	nested := makeNested(dims)
	if id := el.SelectAttrValue("id", ""); id != "" {
		d.index[id] = nested
	}

	total := 1
	for _, dim := range dims {
		total *= dim
	}

	flat := 0
	for _, child := range children {
		v, err := d.decodeNode(child, base)
		if err != nil {
			return nil, err
		}

		var coords []int
		if pv, ok := findScopedAttr(child, "position", d.EncodingNS); ok {
			coords, err = parseBracketedInts(pv)
			if err != nil || len(coords) != len(dims) {
				return nil, fmt.Errorf("bad array position %q for %d dimensions", pv, len(dims))
			}
		} else {
			if flat >= total {
				d.Log.Warn("multi-dimensional array has more cells than declared, dropping extras",
					"declared", total)
				break
			}
			coords = unflatten(flat, dims)
			flat++
		}

		row, last, ok := navigate(nested, coords)
		if !ok {
			d.Log.Warn("array position outside declared dimensions, dropping cell",
				"position", formatDims(coords), "dims", formatDims(dims))
			continue
		}
		d.PutIndex(row, last, v)
	}
	return nested, nil
}

// makeNested allocates the full nested sequence structure for dims, so
// cells (and pending reference slots) always land in stable slices.
func makeNested(dims []int) []any {
	out := make([]any, dims[0])
	if len(dims) > 1 {
		for i := range out {
			out[i] = makeNested(dims[1:])
		}
	}
	return out
}

// unflatten converts a row-major cell index into coordinates.
func unflatten(i int, dims []int) []int {
	coords := make([]int, len(dims))
	for k := len(dims) - 1; k >= 0; k-- {
		coords[k] = i % dims[k]
		i /= dims[k]
	}
	return coords
}

// navigate walks nested rows to the slice holding the addressed cell.
func navigate(nested []any, coords []int) ([]any, int, bool) {
	row := nested
	for k := 0; k < len(coords)-1; k++ {
		if coords[k] >= len(row) {
			return nil, 0, false
		}
		inner, ok := row[coords[k]].([]any)
		if !ok {
			return nil, 0, false
		}
		row = inner
	}
	last := coords[len(coords)-1]
	if last >= len(row) {
		return nil, 0, false
	}
	return row, last, true
}
