// Package xmlns provides XML qualified names and the namespace prefix
// table consulted whenever the codec emits or resolves a qualified name.
package xmlns

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Well-known schema namespaces.
const (
	XSD = "http://www.w3.org/2001/XMLSchema"
	XSI = "http://www.w3.org/2001/XMLSchema-instance"
)

// ErrUnboundNamespace is returned when a namespace URI has no registered
// prefix in the table. A qualified name cannot be written without one, so
// this is a hard encoding error.
var ErrUnboundNamespace = errors.New("namespace has no registered prefix")

// Name is an XML qualified name: a namespace URI plus a local part.
type Name struct {
	Space string
	Local string
}

// New returns the qualified name {space}local.
func New(space, local string) Name {
	return Name{Space: space, Local: local}
}

// IsZero reports whether the name is empty.
func (n Name) IsZero() bool {
	return n.Space == "" && n.Local == ""
}

// String renders the name in Clark notation, e.g. "{urn:example}Person".
// Names without a namespace render as the bare local part.
func (n Name) String() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Declaration is one prefix-to-URI binding, as emitted in an xmlns
// attribute.
type Declaration struct {
	Prefix string
	URI    string
}

// Table maps namespace URIs to preferred prefixes and tracks which
// bindings were actually used, so a writer can emit declarations for
// exactly the namespaces that appear in the document.
type Table struct {
	byURI    map[string]*binding
	byPrefix map[string]string
}

type binding struct {
	prefix string
	used   bool
}

// NewTable returns an empty prefix table.
func NewTable() *Table {
	return &Table{
		byURI:    make(map[string]*binding),
		byPrefix: make(map[string]string),
	}
}

// Add registers a preferred prefix for a namespace URI, replacing any
// previous binding for that URI or that prefix. A prefix never maps to
// two URIs, so the emitted declarations stay unambiguous.
func (t *Table) Add(prefix, uri string) {
	if old, ok := t.byURI[uri]; ok {
		delete(t.byPrefix, old.prefix)
	}
	if oldURI, ok := t.byPrefix[prefix]; ok {
		delete(t.byURI, oldURI)
	}
	t.byURI[uri] = &binding{prefix: prefix}
	t.byPrefix[prefix] = uri
}

// Prefix returns the registered prefix for a namespace URI and marks the
// binding as used. An unregistered URI is an error.
func (t *Table) Prefix(uri string) (string, error) {
	b, ok := t.byURI[uri]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnboundNamespace, uri)
	}
	b.used = true
	return b.prefix, nil
}

// Bound reports whether a namespace URI has a registered prefix, without
// marking it used.
func (t *Table) Bound(uri string) bool {
	_, ok := t.byURI[uri]
	return ok
}

// URI returns the namespace bound to a prefix.
func (t *Table) URI(prefix string) (string, bool) {
	uri, ok := t.byPrefix[prefix]
	return uri, ok
}

// Qualify renders a qualified name as "prefix:local" using the table,
// marking the namespace as used. Names without a namespace are returned
// as the bare local part.
func (t *Table) Qualify(n Name) (string, error) {
	if n.Space == "" {
		return n.Local, nil
	}
	p, err := t.Prefix(n.Space)
	if err != nil {
		return "", err
	}
	if p == "" {
		return n.Local, nil
	}
	return p + ":" + n.Local, nil
}

// Used returns the bindings consumed since the table was created or
// cloned, sorted by prefix for deterministic output.
func (t *Table) Used() []Declaration {
	var decls []Declaration
	for uri, b := range t.byURI {
		if b.used {
			decls = append(decls, Declaration{Prefix: b.prefix, URI: uri})
		}
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Prefix < decls[j].Prefix })
	return decls
}

// Clone returns a copy of the table with all used flags cleared. Each
// encode call works on its own clone so usage tracking never leaks
// between calls.
func (t *Table) Clone() *Table {
	c := NewTable()
	for uri, b := range t.byURI {
		c.byURI[uri] = &binding{prefix: b.prefix}
		c.byPrefix[b.prefix] = uri
	}
	return c
}

// ResolvePrefix resolves an XML prefix against the in-scope xmlns
// declarations of an element, walking toward the document root. The
// empty prefix resolves to the default namespace.
func ResolvePrefix(el *etree.Element, prefix string) (string, bool) {
	for e := el; e != nil; e = e.Parent() {
		for _, attr := range e.Attr {
			if prefix == "" {
				if attr.Space == "" && attr.Key == "xmlns" {
					return attr.Value, true
				}
			} else if attr.Space == "xmlns" && attr.Key == prefix {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// ParseLexical splits a lexical QName such as "xsd:int" and resolves its
// prefix against the xmlns declarations in scope at el.
func ParseLexical(lex string, el *etree.Element) (Name, error) {
	prefix, local := "", lex
	if i := strings.IndexByte(lex, ':'); i >= 0 {
		prefix, local = lex[:i], lex[i+1:]
	}
	if local == "" {
		return Name{}, fmt.Errorf("malformed qualified name %q", lex)
	}
	uri, ok := ResolvePrefix(el, prefix)
	if !ok && prefix != "" {
		return Name{}, fmt.Errorf("undeclared namespace prefix %q in %q", prefix, lex)
	}
	return Name{Space: uri, Local: local}, nil
}

// NameOf returns the qualified name of an element as parsed by etree.
func NameOf(el *etree.Element) Name {
	return Name{Space: el.NamespaceURI(), Local: el.Tag}
}
