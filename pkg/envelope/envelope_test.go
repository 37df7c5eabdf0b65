package envelope

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/logging"
	"github.com/soapwire/soapwire/pkg/schema"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// priceCompiler serves the {urn:example}Price type for document-style
// tests, the way a generated schema compiler would.
type priceCompiler struct{}

func (priceCompiler) CompileWriter(typ xmlns.Name, _ schema.Options) (schema.Writer, error) {
	if typ != xmlns.New("urn:example", "Price") {
		return nil, schema.ErrUnknownType
	}
	return func(ns *xmlns.Table, name xmlns.Name, value any) (*etree.Element, error) {
		tag, err := ns.Qualify(name)
		if err != nil {
			return nil, err
		}
		el := etree.NewElement(tag)
		el.SetText(fmt.Sprintf("%v", value))
		return el, nil
	}, nil
}

func (priceCompiler) CompileReader(typ xmlns.Name, _ schema.Options) (schema.Reader, error) {
	if typ != xmlns.New("urn:example", "Price") {
		return nil, schema.ErrUnknownType
	}
	return func(el *etree.Element) (any, error) {
		return strconv.ParseFloat(strings.TrimSpace(el.Text()), 64)
	}, nil
}

func exampleNS() *xmlns.Table {
	t := xmlns.NewTable()
	t.Add("ex", "urn:example")
	return t
}

func TestCompileValidation(t *testing.T) {
	_, err := Compile(MessageSpec{Style: Style(99)})
	assert.ErrorIs(t, err, ErrUnknownStyle)

	_, err = Compile(MessageSpec{Direction: Direction(99)})
	assert.ErrorIs(t, err, ErrUnknownDirection)

	_, err = Compile(MessageSpec{Style: RPCEncoded})
	assert.ErrorIs(t, err, ErrMissingProcedure)

	_, err = Compile(MessageSpec{
		Body: []PartDef{
			{Label: "a", Type: xmlns.New(xmlns.XSD, "int")},
			{Label: "a", Type: xmlns.New(xmlns.XSD, "string")},
		},
	})
	assert.ErrorIs(t, err, ErrDuplicateLabel)

	_, err = Compile(MessageSpec{
		Header: []PartDef{{Label: "a", Type: xmlns.New(xmlns.XSD, "int")}},
		Body:   []PartDef{{Label: "a", Type: xmlns.New(xmlns.XSD, "string")}},
	})
	assert.ErrorIs(t, err, ErrDuplicateLabel)

	_, err = Compile(MessageSpec{Body: []PartDef{{Label: "a"}}})
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = Compile(MessageSpec{
		Body: []PartDef{{Label: "a", Type: xmlns.New("urn:example", "Nope")}},
	})
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("rpc")
	require.NoError(t, err)
	assert.Equal(t, RPCLiteral, s)

	s, err = ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, Document, s)

	_, err = ParseStyle("bogus")
	assert.ErrorIs(t, err, ErrUnknownStyle)
}

func TestDocumentRoundTrip(t *testing.T) {
	spec := MessageSpec{
		Style: Document,
		Body: []PartDef{
			{Label: "price", Type: xmlns.New("urn:example", "Price")},
		},
		Namespaces: exampleNS(),
		Compiler:   priceCompiler{},
	}

	spec.Direction = Sender
	sender, err := Compile(spec)
	require.NoError(t, err)

	raw, err := sender.EncodeBytes(map[string]any{"price": 9.5})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<ex:Price>9.5</ex:Price>")

	spec.Direction = Receiver
	receiver, err := Compile(spec)
	require.NoError(t, err)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"price": 9.5}, out)
}

func TestBodyAlwaysPresent(t *testing.T) {
	c, err := Compile(MessageSpec{Style: Document})
	require.NoError(t, err)

	doc, err := c.Encode(nil)
	require.NoError(t, err)

	env := doc.Root()
	require.NotNil(t, env)
	assert.Equal(t, "Envelope", env.Tag)

	var sawHeader, sawBody bool
	for _, child := range env.ChildElements() {
		switch child.Tag {
		case "Header":
			sawHeader = true
		case "Body":
			sawBody = true
		}
	}
	assert.True(t, sawBody, "Body must be present even when empty")
	assert.False(t, sawHeader, "empty Header must be omitted")
}

func envChild(t *testing.T, doc *etree.Document, tag string) *etree.Element {
	t.Helper()
	for _, child := range doc.Root().ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	t.Fatalf("envelope has no %s child", tag)
	return nil
}

func TestHeaderAttributes(t *testing.T) {
	c, err := Compile(MessageSpec{
		Style: Document,
		Header: []PartDef{
			{Label: "session", Type: xmlns.New(xmlns.XSD, "string")},
		},
		MustUnderstand: map[string]bool{"session": true},
		Destination:    map[string]string{"session": "NEXT"},
	})
	require.NoError(t, err)

	doc, err := c.Encode(map[string]any{"session": "abc"})
	require.NoError(t, err)

	hdr := envChild(t, doc, "Header").ChildElements()[0]
	assert.Equal(t, "1", hdr.SelectAttrValue("SOAP-ENV:mustUnderstand", ""))
	assert.Equal(t, fault.SOAP11ActorNext, hdr.SelectAttrValue("SOAP-ENV:actor", ""))
}

func TestHeaderAttributesSOAP12(t *testing.T) {
	c, err := Compile(MessageSpec{
		Style:   Document,
		Version: fault.SOAP12,
		Header: []PartDef{
			{Label: "session", Type: xmlns.New(xmlns.XSD, "string")},
		},
		MustUnderstand: map[string]bool{"session": true},
		Destination:    map[string]string{"session": "ULTIMATE"},
	})
	require.NoError(t, err)

	doc, err := c.Encode(map[string]any{"session": "abc"})
	require.NoError(t, err)

	hdr := envChild(t, doc, "Header").ChildElements()[0]
	assert.Equal(t, "true", hdr.SelectAttrValue("SOAP-ENV:mustUnderstand", ""))
	assert.Equal(t, fault.SOAP12RoleUltimate, hdr.SelectAttrValue("SOAP-ENV:role", ""))
}

func rpcSpec(dir Direction) MessageSpec {
	return MessageSpec{
		Direction: dir,
		Style:     RPCEncoded,
		Procedure: xmlns.New("urn:example", "GetPrice"),
		Body: []PartDef{
			{Label: "symbol", Type: xmlns.New(xmlns.XSD, "string")},
			{Label: "count", Type: xmlns.New(xmlns.XSD, "int")},
		},
		Namespaces: exampleNS(),
	}
}

func TestRPCEncodedRoundTrip(t *testing.T) {
	sender, err := Compile(rpcSpec(Sender))
	require.NoError(t, err)

	raw, err := sender.EncodeBytes(map[string]any{"symbol": "ACME", "count": 3})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "<ex:GetPrice")
	assert.Contains(t, s, `SOAP-ENV:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"`)
	assert.Contains(t, s, `<symbol xsi:type="xsd:string">ACME</symbol>`)
	assert.Contains(t, s, `<count xsi:type="xsd:int">3</count>`)

	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"symbol": "ACME", "count": 3}, out)
}

func TestRPCLiteralWrapsParts(t *testing.T) {
	spec := rpcSpec(Sender)
	spec.Style = RPCLiteral
	c, err := Compile(spec)
	require.NoError(t, err)

	raw, err := c.EncodeBytes(map[string]any{"symbol": "ACME"})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "<ex:GetPrice>")
	assert.Contains(t, s, "<symbol>ACME</symbol>")
	assert.NotContains(t, s, "encodingStyle")
	assert.NotContains(t, s, "xsi:type")
}

func TestLeftoverLabelWarns(t *testing.T) {
	var buf bytes.Buffer
	spec := rpcSpec(Sender)
	spec.Log = logging.New(logging.Config{Output: &buf})

	c, err := Compile(spec)
	require.NoError(t, err)

	_, err = c.EncodeBytes(map[string]any{"symbol": "ACME", "bogus": 1})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unused message part")
	assert.Contains(t, buf.String(), "bogus")
}

func TestFaultRoundTrip(t *testing.T) {
	sender, err := Compile(rpcSpec(Sender))
	require.NoError(t, err)

	raw, err := sender.EncodeBytes(map[string]any{
		"Fault": fault.SOAP11.NotImplemented("GetPrice"),
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "SOAP-ENV:Fault")
	assert.NotContains(t, string(raw), "<ex:GetPrice", "fault replaces the rpc wrapper")

	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	f, ok := out["Fault"].(*fault.Fault)
	require.True(t, ok)
	assert.Equal(t, xmlns.New(fault.SOAP11EnvelopeNS, "Server"), f.Code)
	assert.Contains(t, f.Reason, "GetPrice")
}

func TestMustUnderstandShortCircuit(t *testing.T) {
	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	raw := []byte(`<?xml version="1.0"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ex="urn:example">` +
		`<SOAP-ENV:Header>` +
		`<ex:Session SOAP-ENV:mustUnderstand="1">s1</ex:Session>` +
		`</SOAP-ENV:Header>` +
		`<SOAP-ENV:Body><ex:GetPrice><symbol>ACME</symbol></ex:GetPrice></SOAP-ENV:Body>` +
		`</SOAP-ENV:Envelope>`)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)

	f, ok := out["Fault"].(*fault.Fault)
	require.True(t, ok)
	assert.Equal(t, xmlns.New(fault.SOAP11EnvelopeNS, "MustUnderstand"), f.Code)
	assert.Equal(t, "NEXT", f.Role)
	_, decoded := out["symbol"]
	assert.False(t, decoded, "body must not be processed after a mustUnderstand fault")
}

func TestUnknownHeaderRetained(t *testing.T) {
	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	raw := []byte(`<?xml version="1.0"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ex="urn:example">` +
		`<SOAP-ENV:Header><ex:Trace>t-77</ex:Trace></SOAP-ENV:Header>` +
		`<SOAP-ENV:Body><ex:GetPrice><symbol>ACME</symbol></ex:GetPrice></SOAP-ENV:Body>` +
		`</SOAP-ENV:Envelope>`)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "t-77", out["{urn:example}Trace"])
	assert.Equal(t, "ACME", out["symbol"])
}

func TestUnknownBodyPartRetained(t *testing.T) {
	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	raw := []byte(`<?xml version="1.0"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ex="urn:example">` +
		`<SOAP-ENV:Body><ex:GetPrice><symbol>ACME</symbol><extra>x</extra></ex:GetPrice></SOAP-ENV:Body>` +
		`</SOAP-ENV:Envelope>`)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "ACME", out["symbol"])
	assert.Equal(t, "x", out["extra"])
}

func TestDecodeRejectsNonEnvelope(t *testing.T) {
	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	_, err = receiver.DecodeBytes([]byte(`<root/>`))
	assert.ErrorIs(t, err, ErrNotEnvelope)

	_, err = receiver.DecodeBytes([]byte(
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"/>`))
	assert.ErrorIs(t, err, ErrMissingBody)

	_, err = receiver.DecodeBytes([]byte(`not xml`))
	assert.Error(t, err)
}

func TestDecodeResolvesReferences(t *testing.T) {
	receiver, err := Compile(rpcSpec(Receiver))
	require.NoError(t, err)

	raw := []byte(`<?xml version="1.0"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"` +
		` xmlns:ex="urn:example" xmlns:xsd="http://www.w3.org/2001/XMLSchema"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<SOAP-ENV:Body><ex:GetPrice>` +
		`<symbol href="#s1"/>` +
		`<sym id="s1" xsi:type="xsd:string">ACME</sym>` +
		`</ex:GetPrice></SOAP-ENV:Body>` +
		`</SOAP-ENV:Envelope>`)

	out, err := receiver.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "ACME", out["symbol"])
}
