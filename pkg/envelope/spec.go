// Package envelope compiles declarative message specifications into
// matched encode/decode transforms for SOAP envelopes: Header, Body and
// Fault assembly around the RPC-encoding engine, for the document,
// rpc-literal and rpc-encoded body styles.
//
// Compilation is the expensive step (schema lookups happen once); the
// returned Codec is retained and invoked repeatedly, and each invocation
// carries its own encoding or decoding context.
package envelope

import (
	"errors"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/rpcenc"
	"github.com/soapwire/soapwire/pkg/schema"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Configuration errors, raised at compile time and never retried.
var (
	ErrUnknownStyle     = errors.New("unknown message style")
	ErrUnknownDirection = errors.New("unknown message direction")
	ErrDuplicateLabel   = errors.New("duplicate part label")
	ErrMissingType      = errors.New("part needs a type or a custom codec")
	ErrMissingProcedure = errors.New("rpc styles need a procedure name")
)

// Structural decode errors.
var (
	ErrNotEnvelope = errors.New("document is not a SOAP envelope")
	ErrMissingBody = errors.New("envelope has no Body element")
)

// Direction states whether the message travels from or to this node.
type Direction int

// Directions.
const (
	Sender Direction = iota
	Receiver
)

// Style selects the SOAP body-shaping convention.
type Style int

// Styles.
const (
	// Document puts the body parts directly into the Body element.
	Document Style = iota

	// RPCLiteral wraps the body parts in one procedure-named element.
	RPCLiteral

	// RPCEncoded wraps like RPCLiteral and additionally applies the SOAP
	// RPC-encoding rules: explicit xsi:type tags and an encodingStyle
	// attribute on the wrapper.
	RPCEncoded
)

func (s Style) String() string {
	switch s {
	case Document:
		return "document"
	case RPCLiteral:
		return "rpc-literal"
	case RPCEncoded:
		return "rpc-encoded"
	}
	return "unknown"
}

// ParseStyle parses a style string as used in message-spec files.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "document", "":
		return Document, nil
	case "rpc-literal", "rpc":
		return RPCLiteral, nil
	case "rpc-encoded":
		return RPCEncoded, nil
	}
	return 0, ErrUnknownStyle
}

// CustomEncoder is a caller-supplied part encoder, used instead of a
// compiled leaf codec.
type CustomEncoder func(enc *rpcenc.Encoder, value any) (*etree.Element, error)

// CustomDecoder is a caller-supplied part decoder.
type CustomDecoder func(dec *rpcenc.Decoder, el *etree.Element) (any, error)

// PartDef declares one named message part: either a qualified type
// reference resolved through the schema compiler, or an already-built
// custom codec. Exactly one of the two variants must be set; the choice
// is resolved once at compile time.
type PartDef struct {
	// Label is the caller-facing key in the flat data map. Unique within
	// its group; body labels are unique across all groups.
	Label string

	// Type is the qualified element or type name for leaf-codec parts.
	Type xmlns.Name

	// Encoder and Decoder form the custom-codec variant.
	Encoder CustomEncoder
	Decoder CustomDecoder
}

func (p PartDef) custom() bool {
	return p.Encoder != nil || p.Decoder != nil
}

// MessageSpec declares the shape of one message. It is immutable once
// compiled and owned exclusively by the resulting Codec.
type MessageSpec struct {
	Direction Direction
	Style     Style

	// Version selects the protocol version; nil means SOAP 1.1.
	Version fault.Version

	// Procedure names the RPC wrapper element; required for RPC styles.
	Procedure xmlns.Name

	// Header, Body and Faults are the part groups, in declaration order.
	Header []PartDef
	Body   []PartDef
	Faults []PartDef

	// MustUnderstand flags header part labels the receiver must process.
	MustUnderstand map[string]bool

	// Destination routes header part labels to a role, given as a URI or
	// a well-known abbreviation such as "NEXT".
	Destination map[string]string

	// Namespaces is the preferred prefix table. The standard bindings
	// (envelope, encoding, xsd, xsi) are added when absent.
	Namespaces *xmlns.Table

	// Compiler produces leaf codecs for the part types. The built-in XSD
	// scalar compiler always backs it as a fallback.
	Compiler schema.Compiler

	Log *slog.Logger
}
