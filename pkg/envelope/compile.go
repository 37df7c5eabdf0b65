package envelope

import (
	"fmt"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/logging"
	"github.com/soapwire/soapwire/pkg/rpcenc"
	"github.com/soapwire/soapwire/pkg/schema"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Codec is the compiled encode/decode pair for one MessageSpec. It holds
// no per-call state: every Encode or Decode invocation creates its own
// context, so a Codec is safe for concurrent use.
type Codec struct {
	version   fault.Version
	style     Style
	procedure xmlns.Name
	ns        *xmlns.Table
	cache     *schema.Cache
	log       *slog.Logger

	header []*compiledPart
	body   []*compiledPart
	faults []*compiledPart

	headerByName map[xmlns.Name]*compiledPart
	bodyByName   map[xmlns.Name]*compiledPart
	bodyByLabel  map[string]*compiledPart
	faultByName  map[xmlns.Name]*compiledPart
}

// compiledPart is a PartDef with its codec variant resolved.
type compiledPart struct {
	label string
	typ   xmlns.Name
	write CustomEncoder
	read  CustomDecoder

	mustUnderstand bool
	role           string
}

// Compile builds the encode/decode transform pair for a message
// specification. All schema lookups happen here; the returned Codec's
// operations are cheap and stateless with respect to prior calls.
func Compile(spec MessageSpec) (*Codec, error) {
	switch spec.Style {
	case Document, RPCLiteral, RPCEncoded:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStyle, spec.Style)
	}
	switch spec.Direction {
	case Sender, Receiver:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, spec.Direction)
	}
	if spec.Style != Document && spec.Procedure.IsZero() {
		return nil, ErrMissingProcedure
	}

	version := spec.Version
	if version == nil {
		version = fault.SOAP11
	}
	log := spec.Log
	if log == nil {
		log = logging.Nop()
	}

	ns := spec.Namespaces
	if ns == nil {
		ns = xmlns.NewTable()
	} else {
		ns = ns.Clone()
	}
	ensureBinding(ns, "SOAP-ENV", version.EnvelopeNS())
	ensureBinding(ns, "SOAP-ENC", version.EncodingNS())
	ensureBinding(ns, "xsd", xmlns.XSD)
	ensureBinding(ns, "xsi", xmlns.XSI)

	if err := checkLabels(spec); err != nil {
		return nil, err
	}

	c := &Codec{
		version:      version,
		style:        spec.Style,
		procedure:    spec.Procedure,
		ns:           ns,
		cache:        schema.NewCache(schema.Fallback(spec.Compiler, schema.Builtin())),
		log:          log,
		headerByName: make(map[xmlns.Name]*compiledPart),
		bodyByName:   make(map[xmlns.Name]*compiledPart),
		bodyByLabel:  make(map[string]*compiledPart),
		faultByName:  make(map[xmlns.Name]*compiledPart),
	}

	bodyMode := typeNamed
	switch c.style {
	case RPCLiteral:
		bodyMode = labelNamed
	case RPCEncoded:
		bodyMode = encoded
	}

	for _, def := range spec.Header {
		p, err := c.resolvePart(def, typeNamed)
		if err != nil {
			return nil, err
		}
		p.mustUnderstand = spec.MustUnderstand[def.Label]
		if dest, ok := spec.Destination[def.Label]; ok {
			p.role = version.RoleURI(dest)
		}
		c.header = append(c.header, p)
		c.headerByName[p.typ] = p
	}
	for _, def := range spec.Body {
		p, err := c.resolvePart(def, bodyMode)
		if err != nil {
			return nil, err
		}
		c.body = append(c.body, p)
		c.bodyByName[p.typ] = p
		c.bodyByLabel[p.label] = p
	}
	for _, def := range spec.Faults {
		p, err := c.resolvePart(def, typeNamed)
		if err != nil {
			return nil, err
		}
		c.faults = append(c.faults, p)
		c.faultByName[p.typ] = p
	}
	return c, nil
}

// partMode selects how a part is rendered on the wire.
type partMode int

const (
	// typeNamed emits the part as an element named after its type, the
	// document-style (and header/fault) convention.
	typeNamed partMode = iota

	// labelNamed emits the part as an element named after its label with
	// literal content, the rpc-literal parameter convention.
	labelNamed

	// encoded emits the part label-named with SOAP RPC encoding applied.
	encoded
)

// resolvePart turns a PartDef into its compiled form, fixing the codec
// variant now rather than re-inspecting it on every call.
func (c *Codec) resolvePart(def PartDef, mode partMode) (*compiledPart, error) {
	p := &compiledPart{label: def.Label, typ: def.Type}

	if def.custom() {
		p.write = def.Encoder
		p.read = def.Decoder
		return p, nil
	}
	if def.Type.IsZero() {
		return nil, fmt.Errorf("%w: part %q", ErrMissingType, def.Label)
	}

	// Compile-time schema lookups; errors surface before any message is
	// processed.
	writer, err := c.cache.Writer(def.Type, schema.Options{})
	if err != nil {
		return nil, fmt.Errorf("part %q: %w", def.Label, err)
	}
	reader, err := c.cache.Reader(def.Type, schema.Options{})
	if err != nil {
		return nil, fmt.Errorf("part %q: %w", def.Label, err)
	}

	typ := def.Type
	label := def.Label
	switch mode {
	case typeNamed:
		p.write = func(enc *rpcenc.Encoder, value any) (*etree.Element, error) {
			return writer(enc.NS, typ, value)
		}
		p.read = func(_ *rpcenc.Decoder, el *etree.Element) (any, error) {
			return reader(el)
		}
	case labelNamed:
		p.write = func(enc *rpcenc.Encoder, value any) (*etree.Element, error) {
			return writer(enc.NS, xmlns.Name{Local: label}, value)
		}
		p.read = func(_ *rpcenc.Decoder, el *etree.Element) (any, error) {
			return reader(el)
		}
	case encoded:
		p.write = func(enc *rpcenc.Encoder, value any) (*etree.Element, error) {
			return enc.Typed(typ, xmlns.Name{Local: label}, value)
		}
		p.read = func(dec *rpcenc.Decoder, el *etree.Element) (any, error) {
			values, err := dec.DecodeNodes([]*etree.Element{el}, &typ)
			if err != nil {
				return nil, err
			}
			return values[0], nil
		}
	}
	return p, nil
}

// checkLabels enforces label uniqueness: within each group, and for body
// labels across all three groups, so the flat data map always partitions
// unambiguously.
func checkLabels(spec MessageSpec) error {
	groups := [][]PartDef{spec.Header, spec.Body, spec.Faults}
	seen := make([]map[string]bool, len(groups))
	for i, group := range groups {
		seen[i] = make(map[string]bool, len(group))
		for _, def := range group {
			if seen[i][def.Label] {
				return fmt.Errorf("%w: %q", ErrDuplicateLabel, def.Label)
			}
			seen[i][def.Label] = true
		}
	}
	for _, def := range spec.Body {
		if seen[0][def.Label] || seen[2][def.Label] {
			return fmt.Errorf("%w: body label %q also declared elsewhere", ErrDuplicateLabel, def.Label)
		}
	}
	return nil
}

func ensureBinding(t *xmlns.Table, prefix, uri string) {
	if !t.Bound(uri) {
		t.Add(prefix, uri)
	}
}
