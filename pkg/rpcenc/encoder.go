package rpcenc

import (
	"fmt"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/logging"
	"github.com/soapwire/soapwire/pkg/schema"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Encoder carries the call-scoped state of one encode pass: the prefix
// table, the codec cache, and the reference-id counter. Create a fresh
// Encoder per call; the id counter must never be shared across calls.
type Encoder struct {
	// NS resolves namespace URIs to prefixes and records usage.
	NS *xmlns.Table

	// Codecs memoizes leaf encoders per qualified type.
	Codecs *schema.Cache

	// EncodingNS is the SOAP encoding namespace for this protocol
	// version, used for arrayType/offset/position attributes.
	EncodingNS string

	Log *slog.Logger

	idSeq int
}

// NewEncoder returns an encoding context for a single encode call.
func NewEncoder(ns *xmlns.Table, codecs *schema.Cache, encodingNS string, log *slog.Logger) *Encoder {
	if log == nil {
		log = logging.Nop()
	}
	return &Encoder{NS: ns, Codecs: codecs, EncodingNS: encodingNS, Log: log}
}

// NextID returns the next reference id for this call, of the form "id-N".
func (e *Encoder) NextID() string {
	e.idSeq++
	return fmt.Sprintf("id-%d", e.idSeq)
}

// Typed builds an element named name whose content is produced by the
// leaf encoder for typ, tagged with an explicit xsi:type attribute. RPC
// encoding requires the tag because the receiver cannot infer scalar
// types from context.
func (e *Encoder) Typed(typ, name xmlns.Name, value any) (*etree.Element, error) {
	w, err := e.Codecs.Writer(typ, schema.Options{})
	if err != nil {
		return nil, err
	}
	el, err := w(e.NS, name, value)
	if err != nil {
		return nil, err
	}
	if err := e.setTypeAttr(el, typ); err != nil {
		return nil, err
	}
	return el, nil
}

// Struct wraps pre-built child elements in one element named after typ.
// No validation is performed on the children.
func (e *Encoder) Struct(typ xmlns.Name, children ...*etree.Element) (*etree.Element, error) {
	tag, err := e.NS.Qualify(typ)
	if err != nil {
		return nil, err
	}
	el := etree.NewElement(tag)
	for _, child := range children {
		el.AddChild(child)
	}
	return el, nil
}

// Reference returns an element named name carrying an href attribute that
// points at target. The target is assigned an id if it does not already
// carry one; preferredID is used when non-empty, otherwise an id is drawn
// from the call's counter.
func (e *Encoder) Reference(name xmlns.Name, target *etree.Element, preferredID string) (*etree.Element, error) {
	id := target.SelectAttrValue("id", "")
	if id == "" {
		id = preferredID
		if id == "" {
			id = e.NextID()
		}
		target.CreateAttr("id", id)
	}
	tag, err := e.NS.Qualify(name)
	if err != nil {
		return nil, err
	}
	ref := etree.NewElement(tag)
	ref.CreateAttr("href", "#"+id)
	return ref, nil
}

// setTypeAttr sets xsi:type on an element to the qualified type name.
func (e *Encoder) setTypeAttr(el *etree.Element, typ xmlns.Name) error {
	xsi, err := e.NS.Prefix(xmlns.XSI)
	if err != nil {
		return err
	}
	q, err := e.NS.Qualify(typ)
	if err != nil {
		return err
	}
	el.CreateAttr(xsi+":type", q)
	return nil
}

// encAttr sets an attribute in the SOAP encoding namespace.
func (e *Encoder) encAttr(el *etree.Element, local, value string) error {
	enc, err := e.NS.Prefix(e.EncodingNS)
	if err != nil {
		return err
	}
	el.CreateAttr(enc+":"+local, value)
	return nil
}
