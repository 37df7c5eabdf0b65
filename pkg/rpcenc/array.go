package rpcenc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// ErrRowTooWide reports a multi-dimensional array row that exceeds the
// width declared by the first row at its nesting level.
var ErrRowTooWide = errors.New("array row wider than declared dimension")

// ArrayOptions adjusts how Array emits an array element.
type ArrayOptions struct {
	// Offset is the logical position of items[Offset], the first cell of
	// the encoded window.
	Offset int

	// Slice is the window length starting at Offset. Zero means the rest
	// of items. The logical array size is Offset+Slice, which may exceed
	// the number of present items.
	Slice int

	// ID, when non-empty, is set as the element's id attribute so other
	// elements can reference the array.
	ID string
}

// Array encodes a one-dimensional array. A nil cell in items is an absent
// position. When every cell from the window start through the last
// populated cell is present, items are emitted in document order with an
// offset attribute for a non-zero start; any interior gap switches to
// sparse mode, where each present item carries its absolute position.
//
// A zero name falls back to the encoding namespace's Array element.
func (e *Encoder) Array(name, itemType xmlns.Name, items []any, opt ArrayOptions) (*etree.Element, error) {
	offset := opt.Offset
	if offset < 0 {
		offset = 0
	}
	slice := opt.Slice
	if slice <= 0 {
		slice = len(items) - offset
		if slice < 0 {
			slice = 0
		}
	}
	size := offset + slice

	cell := func(i int) any {
		if i < len(items) {
			return items[i]
		}
		return nil
	}

	min := offset
	for min < size && cell(min) == nil {
		min++
	}
	max := size - 1
	for max >= min && cell(max) == nil {
		max--
	}
	sparse := false
	for i := offset; i <= max; i++ {
		if cell(i) == nil {
			sparse = true
			break
		}
	}

	el, err := e.arrayShell(name, itemType, formatDims([]int{size}), opt.ID)
	if err != nil {
		return nil, err
	}

	itemName := itemElementName(itemType)
	for i := min; i <= max; i++ {
		v := cell(i)
		if v == nil {
			continue
		}
		child, err := e.itemElement(itemType, itemName, v)
		if err != nil {
			return nil, err
		}
		if sparse {
			if err := e.encAttr(child, "position", formatDims([]int{i})); err != nil {
				return nil, err
			}
		}
		el.AddChild(child)
	}
	if !sparse && min > 0 && min <= max {
		if err := e.encAttr(el, "offset", formatDims([]int{min})); err != nil {
			return nil, err
		}
	}
	return el, nil
}

// MultiDim encodes a multi-dimensional array from nested []any rows. The
// dimensions are inferred from the first row at each nesting level; a
// wider row at any level is a hard error, while shorter rows and nil
// cells mark the array sparse. Dense arrays emit cells in row-major
// order; sparse arrays tag each present cell with its coordinates.
func (e *Encoder) MultiDim(name, itemType xmlns.Name, rows []any, opt ArrayOptions) (*etree.Element, error) {
	dims := inferDims(rows)
	if len(dims) < 2 {
		return e.Array(name, itemType, rows, opt)
	}

	var cells []multiCell
	sparse := false
	if err := gatherCells(rows, dims, nil, &cells, &sparse); err != nil {
		return nil, err
	}
	total := 1
	for _, d := range dims {
		total *= d
	}
	if len(cells) < total {
		sparse = true
	}

	el, err := e.arrayShell(name, itemType, formatDims(dims), opt.ID)
	if err != nil {
		return nil, err
	}

	itemName := itemElementName(itemType)
	for _, c := range cells {
		child, err := e.itemElement(itemType, itemName, c.value)
		if err != nil {
			return nil, err
		}
		if sparse {
			if err := e.encAttr(child, "position", formatDims(c.coords)); err != nil {
				return nil, err
			}
		}
		el.AddChild(child)
	}
	return el, nil
}

type multiCell struct {
	coords []int
	value  any
}

// inferDims reads the dimension list from the nesting of the first row at
// each level.
func inferDims(rows []any) []int {
	dims := []int{len(rows)}
	v := any(rows)
	for {
		s, ok := v.([]any)
		if !ok || len(s) == 0 {
			break
		}
		inner, ok := s[0].([]any)
		if !ok {
			break
		}
		dims = append(dims, len(inner))
		v = inner
	}
	return dims
}

// gatherCells walks nested rows depth-first, validating each row against
// the declared width at its level and collecting present leaf cells in
// row-major order.
func gatherCells(row []any, dims []int, prefix []int, cells *[]multiCell, sparse *bool) error {
	if len(row) > dims[0] {
		return fmt.Errorf("%w: got %d cells at position %v, declared %d",
			ErrRowTooWide, len(row), prefix, dims[0])
	}
	if len(row) < dims[0] {
		*sparse = true
	}
	for i, v := range row {
		coords := append(append([]int{}, prefix...), i)
		if v == nil {
			*sparse = true
			continue
		}
		if len(dims) > 1 {
			inner, ok := v.([]any)
			if !ok {
				return fmt.Errorf("expected nested row at position %v, got %T", coords, v)
			}
			if err := gatherCells(inner, dims[1:], coords, cells, sparse); err != nil {
				return err
			}
			continue
		}
		*cells = append(*cells, multiCell{coords: coords, value: v})
	}
	return nil
}

// itemElement encodes one array cell. Pre-built elements (Reference
// hrefs, Struct composites) pass through verbatim; everything else goes
// through the leaf codec for the item type.
func (e *Encoder) itemElement(itemType, name xmlns.Name, v any) (*etree.Element, error) {
	if el, ok := v.(*etree.Element); ok {
		return el, nil
	}
	return e.Typed(itemType, name, v)
}

// arrayShell builds the array element itself: name (defaulted to
// enc:Array), xsi:type, arrayType attribute, and optional id.
func (e *Encoder) arrayShell(name, itemType xmlns.Name, dims string, id string) (*etree.Element, error) {
	if name.IsZero() {
		name = xmlns.New(e.EncodingNS, "Array")
	}
	tag, err := e.NS.Qualify(name)
	if err != nil {
		return nil, err
	}
	el := etree.NewElement(tag)
	if err := e.setTypeAttr(el, xmlns.New(e.EncodingNS, "Array")); err != nil {
		return nil, err
	}
	itemQ, err := e.NS.Qualify(itemType)
	if err != nil {
		return nil, err
	}
	if err := e.encAttr(el, "arrayType", itemQ+dims); err != nil {
		return nil, err
	}
	if id != "" {
		el.CreateAttr("id", id)
	}
	return el, nil
}

// itemElementName names array item elements after the item type's local
// part, stripping any nested-array suffix.
func itemElementName(itemType xmlns.Name) xmlns.Name {
	local := itemType.Local
	if i := strings.IndexByte(local, '['); i > 0 {
		local = local[:i]
	}
	return xmlns.Name{Local: local}
}
