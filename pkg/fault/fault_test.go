package fault

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

func TestByName(t *testing.T) {
	v, err := ByName("1.1")
	require.NoError(t, err)
	assert.Equal(t, SOAP11, v)

	v, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, SOAP11, v)

	v, err = ByName("1.2")
	require.NoError(t, err)
	assert.Equal(t, SOAP12, v)

	_, err = ByName("2.0")
	assert.Error(t, err)
}

func TestRoleVocabulary(t *testing.T) {
	assert.Equal(t, SOAP11ActorNext, SOAP11.RoleURI("NEXT"))
	assert.Equal(t, "NEXT", SOAP11.RoleAbbrev(SOAP11ActorNext))

	assert.Equal(t, SOAP12RoleNext, SOAP12.RoleURI("NEXT"))
	assert.Equal(t, SOAP12RoleNone, SOAP12.RoleURI("NONE"))
	assert.Equal(t, SOAP12RoleUltimate, SOAP12.RoleURI("ULTIMATE"))
	assert.Equal(t, "ULTIMATE", SOAP12.RoleAbbrev(SOAP12RoleUltimate))

	// Unrecognized strings pass through both directions.
	assert.Equal(t, "urn:custom", SOAP11.RoleURI("urn:custom"))
	assert.Equal(t, "urn:custom", SOAP12.RoleAbbrev("urn:custom"))
}

func TestVersionConstants(t *testing.T) {
	assert.Equal(t, "actor", SOAP11.RoleAttr())
	assert.Equal(t, "1", SOAP11.MustUnderstandValue())
	assert.Equal(t, "role", SOAP12.RoleAttr())
	assert.Equal(t, "true", SOAP12.MustUnderstandValue())
}

func TestConstructors(t *testing.T) {
	f := SOAP11.MustUnderstand(xmlns.New("urn:example", "Session"))
	assert.Equal(t, xmlns.New(SOAP11EnvelopeNS, "MustUnderstand"), f.Code)
	assert.Equal(t, "NEXT", f.Role)
	assert.Contains(t, f.Reason, "{urn:example}Session")

	f = SOAP12.ValidationFailed("symbol", "must be uppercase")
	assert.Equal(t, xmlns.New(SOAP12EnvelopeNS, "Sender"), f.Code)
	require.Len(t, f.Detail, 1)
	assert.Equal(t, "validationFailed", f.Detail[0].Tag)

	f = SOAP11.ValidationFailed("symbol", "bad")
	assert.Equal(t, xmlns.New(SOAP11EnvelopeNS, "Client"), f.Code)

	f = SOAP11.NoAnswer("GetPrice")
	assert.Equal(t, xmlns.New(SOAP11EnvelopeNS, "Server"), f.Code)

	f = SOAP12.NotImplemented("GetPrice")
	assert.Equal(t, xmlns.New(SOAP12EnvelopeNS, "Receiver"), f.Code)
	assert.Contains(t, f.Reason, "GetPrice")
}

// buildAndReparse renders a fault under an envelope-like root and parses
// it back, so prefix resolution works the way it does on a real message.
func buildAndReparse(t *testing.T, v Version, f *Fault) *etree.Element {
	t.Helper()
	ns := xmlns.NewTable()
	ns.Add("env", v.EnvelopeNS())

	el, err := v.BuildFault(ns, f)
	require.NoError(t, err)

	root := etree.NewElement("root")
	root.CreateAttr("xmlns:env", v.EnvelopeNS())
	root.AddChild(el)
	doc := etree.NewDocument()
	doc.SetRoot(root)
	s, err := doc.WriteToString()
	require.NoError(t, err)

	parsed := etree.NewDocument()
	require.NoError(t, parsed.ReadFromString(s))
	return parsed.Root().ChildElements()[0]
}

func TestSOAP11FaultRoundTrip(t *testing.T) {
	in := SOAP11.ValidationFailed("symbol", "must be uppercase")
	in.Role = "NEXT"

	el := buildAndReparse(t, SOAP11, in)
	assert.Equal(t, "env:Fault", el.FullTag())
	assert.Equal(t, "env:Client", childText(el, "faultcode"))

	out := SOAP11.DecodeFault(el)
	assert.Equal(t, in.Code, out.Code)
	assert.Equal(t, in.Reason, out.Reason)
	assert.Equal(t, "NEXT", out.Role)
	require.Len(t, out.Detail, 1)
	assert.Equal(t, "validationFailed", out.Detail[0].Tag)
}

func TestSOAP12FaultRoundTrip(t *testing.T) {
	in := &Fault{
		Code:   xmlns.New(SOAP12EnvelopeNS, "Sender"),
		Reason: "malformed request",
		Role:   "ULTIMATE",
	}

	el := buildAndReparse(t, SOAP12, in)
	code := childElement(el, "Code")
	require.NotNil(t, code)
	assert.Equal(t, "env:Sender", childText(code, "Value"))
	reason := childElement(el, "Reason")
	require.NotNil(t, reason)
	assert.Equal(t, "malformed request", childText(reason, "Text"))

	out := SOAP12.DecodeFault(el)
	assert.Equal(t, in.Code, out.Code)
	assert.Equal(t, in.Reason, out.Reason)
	assert.Equal(t, "ULTIMATE", out.Role)
}

func TestBuildFaultDefaultsCode(t *testing.T) {
	el := buildAndReparse(t, SOAP11, &Fault{Reason: "boom"})
	out := SOAP11.DecodeFault(el)
	assert.Equal(t, xmlns.New(SOAP11EnvelopeNS, "Server"), out.Code)

	el = buildAndReparse(t, SOAP12, &Fault{Reason: "boom"})
	out = SOAP12.DecodeFault(el)
	assert.Equal(t, xmlns.New(SOAP12EnvelopeNS, "Receiver"), out.Code)
}

func TestFaultString(t *testing.T) {
	f := &Fault{Code: xmlns.New(SOAP11EnvelopeNS, "Server"), Reason: "boom"}
	assert.Equal(t, "{http://schemas.xmlsoap.org/soap/envelope/}Server: boom", f.String())
}

func TestDecodeFaultLenient(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<Fault><faultcode>Whatever</faultcode></Fault>`))
	f := SOAP11.DecodeFault(doc.Root())
	assert.Equal(t, "Whatever", f.Code.Local)
	assert.Empty(t, f.Reason)
	assert.Empty(t, f.Detail)
}
