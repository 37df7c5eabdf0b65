package rpcenc

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/logging"
	"github.com/soapwire/soapwire/pkg/schema"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Ref is the placeholder left in a container for an element that carried
// an href attribute. The decoder never recurses into an href target;
// instead the placeholder is recorded in the pending-reference list and
// replaced once the whole node set has been decoded. That single rule is
// what makes forward references and reference cycles terminate.
type Ref struct {
	ID string
}

// Decoder carries the call-scoped state of one decode pass: the id index
// mapping id attributes to decoded nodes, and the pending-reference list
// awaiting resolution.
type Decoder struct {
	// Codecs memoizes leaf readers per qualified type.
	Codecs *schema.Cache

	// EncodingNS is the SOAP encoding namespace of the protocol version
	// being decoded.
	EncodingNS string

	Log *slog.Logger

	index   map[string]any
	pending []refSlot
}

// refSlot addresses one container position holding a *Ref placeholder.
type refSlot struct {
	ref *Ref

	mapC map[string]any
	key  string

	sliceC []any
	idx    int
}

// NewDecoder returns a decoding context for a single decode call.
func NewDecoder(codecs *schema.Cache, encodingNS string, log *slog.Logger) *Decoder {
	if log == nil {
		log = logging.Nop()
	}
	return &Decoder{
		Codecs:     codecs,
		EncodingNS: encodingNS,
		Log:        log,
		index:      make(map[string]any),
	}
}

// DecodeNodes decodes a sequence of sibling elements. Values for elements
// carrying href attributes come back as *Ref placeholders; place every
// returned value into its container with PutField or PutIndex so the
// placeholder's slot is tracked, then call ResolveReferences once the
// whole message has been decoded.
//
// base, when non-nil, is the type used for untyped leaf elements (array
// items inherit the array's item type this way).
func (d *Decoder) DecodeNodes(nodes []*etree.Element, base *xmlns.Name) ([]any, error) {
	values := make([]any, 0, len(nodes))
	for _, node := range nodes {
		v, err := d.decodeNode(node, base)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// decodeNode is the central dispatcher of the decoding engine.
func (d *Decoder) decodeNode(el *etree.Element, base *xmlns.Name) (any, error) {
	// href: allocate a placeholder, never recurse into the target.
	if h := el.SelectAttrValue("href", ""); h != "" {
		return &Ref{ID: strings.TrimPrefix(h, "#")}, nil
	}

	// SOAP-encoded array.
	if atv, ok := findScopedAttr(el, "arrayType", d.EncodingNS); ok {
		return d.decodeArray(el, atv, true)
	}

	// Explicit xsi:type.
	if lex, ok := findScopedAttr(el, "type", xmlns.XSI); ok {
		typ, err := xmlns.ParseLexical(lex, el)
		if err != nil {
			return nil, err
		}
		if typ.Space == d.EncodingNS && typ.Local == "Array" {
			return d.decodeArray(el, "", false)
		}
		r, err := d.Codecs.Reader(typ, schema.Options{})
		if err == nil {
			v, err := r(el)
			if err != nil {
				return nil, err
			}
			return d.register(el, tagType(v, typ)), nil
		}
		if !errors.Is(err, schema.ErrUnknownType) {
			return nil, err
		}
		v, err := d.bestEffort(el, base)
		if err != nil {
			return nil, err
		}
		return tagType(v, typ), nil
	}

	// Element named after a SOAP-encoded scalar type, e.g. <SOAP-ENC:int>.
	if ns := el.NamespaceURI(); (ns == d.EncodingNS || ns == xmlns.XSD) && schema.IsScalar(el.Tag) {
		r, err := d.Codecs.Reader(xmlns.New(xmlns.XSD, el.Tag), schema.Options{})
		if err == nil {
			v, err := r(el)
			if err != nil {
				return nil, err
			}
			return d.register(el, v), nil
		}
	}

	return d.bestEffort(el, base)
}

// bestEffort decodes an element with no usable type information: child
// elements become a nested composite, otherwise the element collapses to
// its text (through the base type's reader when one is in scope).
func (d *Decoder) bestEffort(el *etree.Element, base *xmlns.Name) (any, error) {
	if len(el.ChildElements()) > 0 {
		return d.decodeStruct(el)
	}
	if base != nil {
		if r, err := d.Codecs.Reader(*base, schema.Options{}); err == nil {
			if v, err := r(el); err == nil {
				return d.register(el, v), nil
			}
		}
	}
	text := el.Text()
	if id := el.SelectAttrValue("id", ""); id != "" {
		m := map[string]any{
			"_NAME": xmlns.NameOf(el).String(),
			"id":    id,
			"_":     text,
		}
		d.index[id] = m
		return m, nil
	}
	return text, nil
}

// decodeStruct decodes an element's children into a composite. The node
// is registered in the id index before its children are decoded, so a
// structure referencing itself resolves correctly.
func (d *Decoder) decodeStruct(el *etree.Element) (any, error) {
	m := map[string]any{"_NAME": xmlns.NameOf(el).String()}
	if id := el.SelectAttrValue("id", ""); id != "" {
		m["id"] = id
		d.index[id] = m
	}
	for _, child := range el.ChildElements() {
		v, err := d.decodeNode(child, nil)
		if err != nil {
			return nil, err
		}
		d.PutField(m, child.Tag, v)
	}
	return m, nil
}

// register records a decoded value in the id index when the element
// carries an id attribute.
func (d *Decoder) register(el *etree.Element, v any) any {
	if id := el.SelectAttrValue("id", ""); id != "" {
		d.index[id] = v
	}
	return v
}

// PutField stores a decoded value under a key, accumulating repeated keys
// into a sequence, and tracks *Ref placeholders for later resolution.
func (d *Decoder) PutField(m map[string]any, key string, v any) {
	if prev, ok := m[key]; ok {
		list, isList := prev.([]any)
		if !isList {
			list = []any{prev}
		}
		m[key] = append(list, v)
	} else {
		m[key] = v
	}
	if r, ok := v.(*Ref); ok {
		d.pending = append(d.pending, refSlot{ref: r, mapC: m, key: key})
	}
}

// PutIndex stores a decoded value at a slice position and tracks *Ref
// placeholders for later resolution. The slice must not be reallocated
// afterwards; array decoding sizes its result up front for this reason.
func (d *Decoder) PutIndex(s []any, i int, v any) {
	s[i] = v
	if r, ok := v.(*Ref); ok {
		d.pending = append(d.pending, refSlot{ref: r, sliceC: s, idx: i})
	}
}

// ResolveReferences walks the pending-reference list once, writing each
// indexed target into its slot. An href with no matching id is a warning,
// never fatal: the slot is left empty and decoding continues.
func (d *Decoder) ResolveReferences() {
	for _, s := range d.pending {
		target, ok := d.index[s.ref.ID]
		if !ok {
			d.Log.Warn("href target not found, leaving slot empty", "id", s.ref.ID)
		}
		s.apply(target, ok)
	}
	d.pending = nil
}

// apply replaces the slot's placeholder with the resolved target, or
// clears the slot when the target is unknown. The placeholder is located
// by identity so that key accumulation cannot misdirect the write.
func (s refSlot) apply(target any, ok bool) {
	if s.mapC != nil {
		cur := s.mapC[s.key]
		if cur == any(s.ref) {
			if ok {
				s.mapC[s.key] = target
			} else {
				delete(s.mapC, s.key)
			}
			return
		}
		if list, isList := cur.([]any); isList {
			for i := range list {
				if list[i] == any(s.ref) {
					if ok {
						list[i] = target
					} else {
						list[i] = nil
					}
					return
				}
			}
		}
		return
	}
	if s.sliceC[s.idx] == any(s.ref) {
		if ok {
			s.sliceC[s.idx] = target
		} else {
			s.sliceC[s.idx] = nil
		}
	}
}

// tagType marks a decoded composite with the explicit type it carried.
func tagType(v any, typ xmlns.Name) any {
	if m, ok := v.(map[string]any); ok {
		m["_TYPE"] = typ.String()
	}
	return v
}
