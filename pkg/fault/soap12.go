package fault

import (
	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// SOAP 1.2 namespace and role constants.
const (
	SOAP12EnvelopeNS   = "http://www.w3.org/2003/05/soap-envelope"
	SOAP12EncodingNS   = "http://www.w3.org/2003/05/soap-encoding"
	SOAP12RoleNext     = SOAP12EnvelopeNS + "/role/next"
	SOAP12RoleNone     = SOAP12EnvelopeNS + "/role/none"
	SOAP12RoleUltimate = SOAP12EnvelopeNS + "/role/ultimateReceiver"
)

// SOAP12 is the SOAP 1.2 protocol version.
var SOAP12 Version = soap12{}

type soap12 struct{}

func (soap12) Name() string       { return "1.2" }
func (soap12) EnvelopeNS() string { return SOAP12EnvelopeNS }
func (soap12) EncodingNS() string { return SOAP12EncodingNS }
func (soap12) RoleAttr() string   { return "role" }

func (soap12) MustUnderstandValue() string { return "true" }

func (soap12) RoleURI(abbrev string) string {
	switch abbrev {
	case "NEXT":
		return SOAP12RoleNext
	case "NONE":
		return SOAP12RoleNone
	case "ULTIMATE":
		return SOAP12RoleUltimate
	}
	return abbrev
}

func (soap12) RoleAbbrev(uri string) string {
	switch uri {
	case SOAP12RoleNext:
		return "NEXT"
	case SOAP12RoleNone:
		return "NONE"
	case SOAP12RoleUltimate:
		return "ULTIMATE"
	}
	return uri
}

func (v soap12) BuildFault(ns *xmlns.Table, f *Fault) (*etree.Element, error) {
	prefix, err := ns.Prefix(SOAP12EnvelopeNS)
	if err != nil {
		return nil, err
	}
	el := etree.NewElement(prefix + ":Fault")

	code := f.Code
	if code.IsZero() {
		code = xmlns.New(SOAP12EnvelopeNS, "Receiver")
	}
	lex, err := ns.Qualify(code)
	if err != nil {
		return nil, err
	}
	codeEl := el.CreateElement(prefix + ":Code")
	codeEl.CreateElement(prefix + ":Value").SetText(lex)

	reason := el.CreateElement(prefix + ":Reason")
	text := reason.CreateElement(prefix + ":Text")
	text.CreateAttr("xml:lang", "en")
	text.SetText(f.Reason)

	if f.Role != "" {
		el.CreateElement(prefix + ":Role").SetText(v.RoleURI(f.Role))
	}
	if len(f.Detail) > 0 {
		detail := el.CreateElement(prefix + ":Detail")
		for _, child := range f.Detail {
			detail.AddChild(child.Copy())
		}
	}
	return el, nil
}

func (v soap12) DecodeFault(el *etree.Element) *Fault {
	f := &Fault{
		Detail: copyDetail(childElement(el, "Detail")),
	}
	if codeEl := childElement(el, "Code"); codeEl != nil {
		if valueEl := childElement(codeEl, "Value"); valueEl != nil {
			f.Code = parseCode(valueEl.Text(), valueEl)
		}
	}
	if reasonEl := childElement(el, "Reason"); reasonEl != nil {
		f.Reason = childText(reasonEl, "Text")
	}
	if role := childText(el, "Role"); role != "" {
		f.Role = v.RoleAbbrev(role)
	}
	return f
}

func (soap12) MustUnderstand(header xmlns.Name) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP12EnvelopeNS, "MustUnderstand"),
		Reason: "SOAP mustUnderstand header not understood: " + header.String(),
		Role:   "NEXT",
	}
}

func (soap12) ValidationFailed(part string, detail string) *Fault {
	d := etree.NewElement("validationFailed")
	d.CreateElement("part").SetText(part)
	d.CreateElement("message").SetText(detail)
	return &Fault{
		Code:   xmlns.New(SOAP12EnvelopeNS, "Sender"),
		Reason: "validation of message part " + part + " failed",
		Detail: []*etree.Element{d},
	}
}

func (soap12) NoAnswer(part string) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP12EnvelopeNS, "Receiver"),
		Reason: "no answer produced for " + part,
	}
}

func (soap12) NotImplemented(part string) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP12EnvelopeNS, "Receiver"),
		Reason: part + " is not implemented",
	}
}
