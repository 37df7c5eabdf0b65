// Package schema defines the schema-compiler collaborator interface the
// envelope codec depends on, a memoizing codec cache, and built-in codecs
// for the XSD primitive scalar types.
//
// The codec itself never parses XSD documents; a Compiler supplied by the
// caller turns a qualified type name into a value-to-element writer and an
// element-to-value reader for non-RPC-encoded leaf types.
package schema

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// ErrUnknownType is returned by a Compiler for a type it cannot serve.
var ErrUnknownType = errors.New("unknown schema type")

// Writer turns an application value into an element with the given name.
// Qualified names are rendered through the supplied prefix table.
type Writer func(ns *xmlns.Table, name xmlns.Name, value any) (*etree.Element, error)

// Reader turns a received element back into an application value.
type Reader func(el *etree.Element) (any, error)

// Options carries call-scoped compilation options. The option set is part
// of the codec cache key.
type Options struct {
	// Qualified requests namespace-qualified element names for values
	// written by the compiled writer.
	Qualified bool
}

func (o Options) key() string {
	if o.Qualified {
		return "q"
	}
	return ""
}

// Compiler produces leaf codecs for qualified type names.
type Compiler interface {
	CompileWriter(typ xmlns.Name, opts Options) (Writer, error)
	CompileReader(typ xmlns.Name, opts Options) (Reader, error)
}

// Fallback returns a Compiler that consults primary first and falls back
// to secondary when primary reports ErrUnknownType. A nil primary behaves
// as if it knew no types.
func Fallback(primary, secondary Compiler) Compiler {
	return fallback{primary: primary, secondary: secondary}
}

type fallback struct {
	primary   Compiler
	secondary Compiler
}

func (f fallback) CompileWriter(typ xmlns.Name, opts Options) (Writer, error) {
	if f.primary != nil {
		w, err := f.primary.CompileWriter(typ, opts)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, ErrUnknownType) {
			return nil, err
		}
	}
	return f.secondary.CompileWriter(typ, opts)
}

func (f fallback) CompileReader(typ xmlns.Name, opts Options) (Reader, error) {
	if f.primary != nil {
		r, err := f.primary.CompileReader(typ, opts)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrUnknownType) {
			return nil, err
		}
	}
	return f.secondary.CompileReader(typ, opts)
}

func cacheKey(typ xmlns.Name, opts Options) string {
	return typ.String() + "|" + opts.key()
}

func unknownType(typ xmlns.Name) error {
	return fmt.Errorf("%w: %s", ErrUnknownType, typ)
}
