// Package fault builds and interprets SOAP Fault messages for both
// protocol versions. Construction and interpretation never fail: a Fault
// is plain data, and anything unrecognized passes through unchanged.
package fault

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Fault is a protocol fault: a qualified code, human-readable reason, the
// role (node) that produced it, and optional detail payload. A Fault is
// built fresh per failed call and never shared.
type Fault struct {
	Code   xmlns.Name
	Reason string

	// Role is the acting node, either a URI or a well-known abbreviation
	// such as "NEXT".
	Role string

	// Detail holds the fault's detail child elements, raw.
	Detail []*etree.Element
}

func (f *Fault) String() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Reason)
}

// Version is a SOAP protocol version: its namespace constants, role URI
// vocabulary, fault wire shape, and the fault constructors whose contents
// are version-specific. Exactly two implementations exist, SOAP11 and
// SOAP12; a MessageSpec selects one at construction time.
type Version interface {
	// Name is the version string, "1.1" or "1.2".
	Name() string

	// EnvelopeNS is the envelope namespace URI.
	EnvelopeNS() string

	// EncodingNS is the SOAP encoding namespace URI.
	EncodingNS() string

	// RoleURI expands a well-known role abbreviation ("NEXT", and for
	// SOAP 1.2 also "NONE" and "ULTIMATE") to its URI. Unrecognized
	// strings pass through unchanged.
	RoleURI(abbrev string) string

	// RoleAbbrev is the inverse of RoleURI.
	RoleAbbrev(uri string) string

	// RoleAttr is the header attribute naming the destination node:
	// "actor" in SOAP 1.1, "role" in SOAP 1.2.
	RoleAttr() string

	// MustUnderstandValue is the lexical true value of the
	// mustUnderstand attribute for this version.
	MustUnderstandValue() string

	// BuildFault renders a Fault as this version's Fault element.
	BuildFault(ns *xmlns.Table, f *Fault) (*etree.Element, error)

	// DecodeFault interprets a received Fault element. Unknown content
	// is retained rather than rejected.
	DecodeFault(el *etree.Element) *Fault

	// MustUnderstand reports a mustUnderstand header this node could not
	// process. The fault is addressed to the next node.
	MustUnderstand(header xmlns.Name) *Fault

	// ValidationFailed reports a message part that failed leaf-codec
	// validation on the receiving side.
	ValidationFailed(part string, detail string) *Fault

	// NoAnswer reports an operation that produced no response.
	NoAnswer(part string) *Fault

	// NotImplemented reports an unimplemented operation.
	NotImplemented(part string) *Fault
}

// ByName returns the Version for a version string ("1.1" or "1.2").
func ByName(s string) (Version, error) {
	switch s {
	case "1.1", "":
		return SOAP11, nil
	case "1.2":
		return SOAP12, nil
	}
	return nil, fmt.Errorf("unsupported SOAP version %q", s)
}

// childText returns the trimmed text of the first child with the given
// local name, ignoring namespaces for lenient fault parsing.
func childText(el *etree.Element, local string) string {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child.Text()
		}
	}
	return ""
}

func childElement(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

// copyDetail detaches copies of the detail children so the Fault does not
// alias the parsed document.
func copyDetail(detail *etree.Element) []*etree.Element {
	if detail == nil {
		return nil
	}
	children := detail.ChildElements()
	out := make([]*etree.Element, 0, len(children))
	for _, child := range children {
		out = append(out, child.Copy())
	}
	return out
}

// parseCode parses a lexical fault code ("SOAP-ENV:Client") in el's
// namespace scope, falling back to a bare local name.
func parseCode(lex string, el *etree.Element) xmlns.Name {
	if lex == "" {
		return xmlns.Name{}
	}
	if n, err := xmlns.ParseLexical(lex, el); err == nil {
		return n
	}
	return xmlns.Name{Local: lex}
}
