package envelope

import (
	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/rpcenc"
)

// Encode assembles a SOAP envelope from the caller's flat label-to-value
// map. Header and Body parts are emitted in declaration order; the Body
// element is always present, even when logically empty, while the Header
// element appears only when a header part was supplied. Leftover labels
// are a non-fatal warning.
func (c *Codec) Encode(data map[string]any) (*etree.Document, error) {
	ns := c.ns.Clone()
	enc := rpcenc.NewEncoder(ns, c.cache, c.version.EncodingNS(), c.log)

	envPrefix, err := ns.Prefix(c.version.EnvelopeNS())
	if err != nil {
		return nil, err
	}

	consumed := make(map[string]bool, len(data))

	var headerChildren []*etree.Element
	for _, p := range c.header {
		value, ok := data[p.label]
		if !ok {
			continue
		}
		consumed[p.label] = true
		el, err := p.write(enc, value)
		if err != nil {
			return nil, err
		}
		if p.mustUnderstand {
			el.CreateAttr(envPrefix+":mustUnderstand", c.version.MustUnderstandValue())
		}
		if p.role != "" {
			el.CreateAttr(envPrefix+":"+c.version.RoleAttr(), p.role)
		}
		headerChildren = append(headerChildren, el)
	}

	var bodyChildren []*etree.Element
	if f := c.takeFault(data, consumed); f != nil {
		el, err := c.version.BuildFault(ns, f)
		if err != nil {
			return nil, err
		}
		bodyChildren = []*etree.Element{el}
	} else {
		bodyChildren, err = c.encodeBodyParts(enc, data, consumed, envPrefix)
		if err != nil {
			return nil, err
		}
	}

	for label := range data {
		if !consumed[label] {
			c.log.Warn("unused message part", "label", label)
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := etree.NewElement(envPrefix + ":Envelope")
	if len(headerChildren) > 0 {
		header := env.CreateElement(envPrefix + ":Header")
		for _, el := range headerChildren {
			header.AddChild(el)
		}
	}
	body := env.CreateElement(envPrefix + ":Body")
	for _, el := range bodyChildren {
		body.AddChild(el)
	}
	for _, decl := range ns.Used() {
		env.CreateAttr("xmlns:"+decl.Prefix, decl.URI)
	}
	doc.SetRoot(env)
	return doc, nil
}

// EncodeBytes encodes and serializes in one step.
func (c *Codec) EncodeBytes(data map[string]any) ([]byte, error) {
	doc, err := c.Encode(data)
	if err != nil {
		return nil, err
	}
	return doc.WriteToBytes()
}

// encodeBodyParts builds the Body children for the configured style. RPC
// styles wrap all body values in one procedure-named element; the
// rpc-encoded wrapper additionally declares its encoding style, and the
// namespaces the encoding engine used surface on the envelope root.
func (c *Codec) encodeBodyParts(enc *rpcenc.Encoder, data map[string]any, consumed map[string]bool, envPrefix string) ([]*etree.Element, error) {
	var parts []*etree.Element
	for _, p := range c.body {
		value, ok := data[p.label]
		if !ok {
			continue
		}
		consumed[p.label] = true
		el, err := p.write(enc, value)
		if err != nil {
			return nil, err
		}
		parts = append(parts, el)
	}

	if c.style == Document {
		return parts, nil
	}

	tag, err := enc.NS.Qualify(c.procedure)
	if err != nil {
		return nil, err
	}
	wrapper := etree.NewElement(tag)
	if c.style == RPCEncoded {
		wrapper.CreateAttr(envPrefix+":encodingStyle", c.version.EncodingNS())
	}
	for _, el := range parts {
		wrapper.AddChild(el)
	}
	return []*etree.Element{wrapper}, nil
}

// takeFault pulls a *fault.Fault out of the data map, checking declared
// fault part labels first and then the implicit "Fault" label every body
// group carries.
func (c *Codec) takeFault(data map[string]any, consumed map[string]bool) *fault.Fault {
	for _, p := range c.faults {
		if f, ok := data[p.label].(*fault.Fault); ok {
			consumed[p.label] = true
			return f
		}
	}
	if f, ok := data["Fault"].(*fault.Fault); ok {
		consumed["Fault"] = true
		return f
	}
	return nil
}
