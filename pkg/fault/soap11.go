package fault

import (
	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// SOAP 1.1 namespace and actor constants.
const (
	SOAP11EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP11EncodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
	SOAP11ActorNext  = "http://schemas.xmlsoap.org/soap/actor/next"
)

// SOAP11 is the SOAP 1.1 protocol version.
var SOAP11 Version = soap11{}

type soap11 struct{}

func (soap11) Name() string       { return "1.1" }
func (soap11) EnvelopeNS() string { return SOAP11EnvelopeNS }
func (soap11) EncodingNS() string { return SOAP11EncodingNS }
func (soap11) RoleAttr() string   { return "actor" }

func (soap11) MustUnderstandValue() string { return "1" }

func (soap11) RoleURI(abbrev string) string {
	if abbrev == "NEXT" {
		return SOAP11ActorNext
	}
	return abbrev
}

func (soap11) RoleAbbrev(uri string) string {
	if uri == SOAP11ActorNext {
		return "NEXT"
	}
	return uri
}

func (v soap11) BuildFault(ns *xmlns.Table, f *Fault) (*etree.Element, error) {
	prefix, err := ns.Prefix(SOAP11EnvelopeNS)
	if err != nil {
		return nil, err
	}
	el := etree.NewElement(prefix + ":Fault")

	code := f.Code
	if code.IsZero() {
		code = xmlns.New(SOAP11EnvelopeNS, "Server")
	}
	lex, err := ns.Qualify(code)
	if err != nil {
		return nil, err
	}
	el.CreateElement("faultcode").SetText(lex)
	el.CreateElement("faultstring").SetText(f.Reason)
	if f.Role != "" {
		el.CreateElement("faultactor").SetText(v.RoleURI(f.Role))
	}
	if len(f.Detail) > 0 {
		detail := el.CreateElement("detail")
		for _, child := range f.Detail {
			detail.AddChild(child.Copy())
		}
	}
	return el, nil
}

func (v soap11) DecodeFault(el *etree.Element) *Fault {
	f := &Fault{
		Reason: childText(el, "faultstring"),
		Detail: copyDetail(childElement(el, "detail")),
	}
	if codeEl := childElement(el, "faultcode"); codeEl != nil {
		f.Code = parseCode(codeEl.Text(), codeEl)
	}
	if actor := childText(el, "faultactor"); actor != "" {
		f.Role = v.RoleAbbrev(actor)
	}
	return f
}

func (soap11) MustUnderstand(header xmlns.Name) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP11EnvelopeNS, "MustUnderstand"),
		Reason: "SOAP mustUnderstand header not understood: " + header.String(),
		Role:   "NEXT",
	}
}

func (soap11) ValidationFailed(part string, detail string) *Fault {
	d := etree.NewElement("validationFailed")
	d.CreateElement("part").SetText(part)
	d.CreateElement("message").SetText(detail)
	return &Fault{
		Code:   xmlns.New(SOAP11EnvelopeNS, "Client"),
		Reason: "validation of message part " + part + " failed",
		Detail: []*etree.Element{d},
	}
}

func (soap11) NoAnswer(part string) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP11EnvelopeNS, "Server"),
		Reason: "no answer produced for " + part,
	}
}

func (soap11) NotImplemented(part string) *Fault {
	return &Fault{
		Code:   xmlns.New(SOAP11EnvelopeNS, "Server"),
		Reason: part + " is not implemented",
	}
}
