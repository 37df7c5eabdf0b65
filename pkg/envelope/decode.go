package envelope

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/rpcenc"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Decode parses a SOAP envelope back into the flat label-to-value map
// that mirrors the encode-time split. Unknown header or body children are
// retained keyed by their own qualified name; an unknown header flagged
// mustUnderstand short-circuits into a must-understand Fault and the body
// is not processed.
func (c *Codec) Decode(doc *etree.Document) (map[string]any, error) {
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" || root.NamespaceURI() != c.version.EnvelopeNS() {
		return nil, ErrNotEnvelope
	}

	var header, body *etree.Element
	for _, child := range root.ChildElements() {
		if child.NamespaceURI() != c.version.EnvelopeNS() {
			continue
		}
		switch child.Tag {
		case "Header":
			header = child
		case "Body":
			body = child
		}
	}
	if body == nil {
		return nil, ErrMissingBody
	}

	dec := rpcenc.NewDecoder(c.cache, c.version.EncodingNS(), c.log)
	result := make(map[string]any)

	if header != nil {
		for _, child := range header.ChildElements() {
			name := xmlns.NameOf(child)
			if p, ok := c.headerByName[name]; ok {
				value, err := p.read(dec, child)
				if err != nil {
					return nil, err
				}
				dec.PutField(result, p.label, value)
				continue
			}
			if c.mustUnderstandFlagged(child) {
				result["Fault"] = c.version.MustUnderstand(name)
				return result, nil
			}
			if err := c.retain(dec, result, child); err != nil {
				return nil, err
			}
		}
	}

	if faultEl := c.findFaultElement(body); faultEl != nil {
		f := c.version.DecodeFault(faultEl)
		result["Fault"] = f
		if err := c.decodeFaultDetail(dec, result, f.Detail); err != nil {
			return nil, err
		}
		dec.ResolveReferences()
		return result, nil
	}

	if err := c.decodeBodyParts(dec, result, body); err != nil {
		return nil, err
	}
	dec.ResolveReferences()
	return result, nil
}

// DecodeBytes parses and decodes in one step.
func (c *Codec) DecodeBytes(raw []byte) (map[string]any, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	return c.Decode(doc)
}

func (c *Codec) decodeBodyParts(dec *rpcenc.Decoder, result map[string]any, body *etree.Element) error {
	children := body.ChildElements()

	if c.style == Document {
		for _, child := range children {
			name := xmlns.NameOf(child)
			if p, ok := c.bodyByName[name]; ok {
				value, err := p.read(dec, child)
				if err != nil {
					return err
				}
				dec.PutField(result, p.label, value)
				continue
			}
			if err := c.retain(dec, result, child); err != nil {
				return err
			}
		}
		return nil
	}

	// RPC styles: the single body child is the procedure wrapper and its
	// children are the parts, named by label.
	if len(children) == 0 {
		return nil
	}
	wrapper := children[0]
	if len(children) > 1 {
		c.log.Warn("rpc body has multiple children, using the first",
			"wrapper", wrapper.Tag)
	}
	if got := xmlns.NameOf(wrapper); !c.procedure.IsZero() && got != c.procedure {
		c.log.Warn("rpc wrapper does not match declared procedure",
			"got", got.String(), "want", c.procedure.String())
	}
	for _, child := range wrapper.ChildElements() {
		p := c.bodyByLabel[child.Tag]
		if p == nil {
			if byName, ok := c.bodyByName[xmlns.NameOf(child)]; ok {
				p = byName
			}
		}
		if p == nil {
			if err := c.retain(dec, result, child); err != nil {
				return err
			}
			continue
		}
		value, err := p.read(dec, child)
		if err != nil {
			return err
		}
		dec.PutField(result, p.label, value)
	}
	return nil
}

// decodeFaultDetail decodes fault detail payloads against the fault parts
// the caller declared, falling back to retained raw content (carrying its
// _NAME discriminator) when no matching type was declared.
func (c *Codec) decodeFaultDetail(dec *rpcenc.Decoder, result map[string]any, detail []*etree.Element) error {
	for _, el := range detail {
		if p, ok := c.faultByName[xmlns.NameOf(el)]; ok {
			value, err := p.read(dec, el)
			if err != nil {
				return err
			}
			dec.PutField(result, p.label, value)
			continue
		}
		if err := c.retain(dec, result, el); err != nil {
			return err
		}
	}
	return nil
}

// retain keeps an unknown child keyed by its own qualified name,
// accumulating repeats into a sequence.
func (c *Codec) retain(dec *rpcenc.Decoder, result map[string]any, el *etree.Element) error {
	values, err := dec.DecodeNodes([]*etree.Element{el}, nil)
	if err != nil {
		return err
	}
	dec.PutField(result, xmlns.NameOf(el).String(), values[0])
	return nil
}

// mustUnderstandFlagged reports whether a header child demands processing.
func (c *Codec) mustUnderstandFlagged(el *etree.Element) bool {
	for _, attr := range el.Attr {
		if attr.Key != "mustUnderstand" || attr.Space == "xmlns" {
			continue
		}
		if attr.Value == "1" || attr.Value == "true" {
			return true
		}
	}
	return false
}

// findFaultElement returns the Body's Fault child, if any.
func (c *Codec) findFaultElement(body *etree.Element) *etree.Element {
	for _, child := range body.ChildElements() {
		if child.Tag == "Fault" && child.NamespaceURI() == c.version.EnvelopeNS() {
			return child
		}
	}
	return nil
}
