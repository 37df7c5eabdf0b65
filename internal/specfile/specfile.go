// Package specfile loads message specifications from YAML documents, the
// format the CLI uses to describe a message without any WSDL tooling.
package specfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soapwire/soapwire/pkg/envelope"
	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/xmlns"
)

// File is the YAML shape of a message specification.
type File struct {
	Version   string            `yaml:"version"`
	Style     string            `yaml:"style"`
	Procedure string            `yaml:"procedure"`
	Prefixes  map[string]string `yaml:"prefixes"`
	Header    []Part            `yaml:"header"`
	Body      []Part            `yaml:"body"`
	Faults    []Part            `yaml:"faults"`
}

// Part declares one message part. Type is a lexical qualified name whose
// prefix must appear in the file's prefixes map or the standard bindings.
type Part struct {
	Label          string `yaml:"label"`
	Type           string `yaml:"type"`
	MustUnderstand bool   `yaml:"mustUnderstand"`
	Destination    string `yaml:"destination"`
}

// Load reads and parses a message-spec file.
func Load(path string) (envelope.MessageSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return envelope.MessageSpec{}, fmt.Errorf("read spec file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a MessageSpec from YAML.
func Parse(raw []byte) (envelope.MessageSpec, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return envelope.MessageSpec{}, fmt.Errorf("parse spec file: %w", err)
	}

	version, err := fault.ByName(f.Version)
	if err != nil {
		return envelope.MessageSpec{}, err
	}
	style, err := envelope.ParseStyle(f.Style)
	if err != nil {
		return envelope.MessageSpec{}, fmt.Errorf("%w: %q", err, f.Style)
	}

	prefixes := map[string]string{
		"SOAP-ENV": version.EnvelopeNS(),
		"SOAP-ENC": version.EncodingNS(),
		"xsd":      xmlns.XSD,
		"xsi":      xmlns.XSI,
	}
	table := xmlns.NewTable()
	for prefix, uri := range prefixes {
		table.Add(prefix, uri)
	}
	for prefix, uri := range f.Prefixes {
		prefixes[prefix] = uri
		table.Add(prefix, uri)
	}

	spec := envelope.MessageSpec{
		Style:          style,
		Version:        version,
		Namespaces:     table,
		MustUnderstand: make(map[string]bool),
		Destination:    make(map[string]string),
	}

	if f.Procedure != "" {
		spec.Procedure, err = resolve(f.Procedure, prefixes)
		if err != nil {
			return envelope.MessageSpec{}, err
		}
	}

	for _, part := range f.Header {
		def, err := resolvePart(part, prefixes)
		if err != nil {
			return envelope.MessageSpec{}, err
		}
		spec.Header = append(spec.Header, def)
		if part.MustUnderstand {
			spec.MustUnderstand[part.Label] = true
		}
		if part.Destination != "" {
			spec.Destination[part.Label] = part.Destination
		}
	}
	for _, part := range f.Body {
		def, err := resolvePart(part, prefixes)
		if err != nil {
			return envelope.MessageSpec{}, err
		}
		spec.Body = append(spec.Body, def)
	}
	for _, part := range f.Faults {
		def, err := resolvePart(part, prefixes)
		if err != nil {
			return envelope.MessageSpec{}, err
		}
		spec.Faults = append(spec.Faults, def)
	}
	return spec, nil
}

func resolvePart(part Part, prefixes map[string]string) (envelope.PartDef, error) {
	if part.Label == "" {
		return envelope.PartDef{}, fmt.Errorf("part with type %q has no label", part.Type)
	}
	typ, err := resolve(part.Type, prefixes)
	if err != nil {
		return envelope.PartDef{}, fmt.Errorf("part %q: %w", part.Label, err)
	}
	return envelope.PartDef{Label: part.Label, Type: typ}, nil
}

// resolve expands a lexical "prefix:local" name against the file's
// prefix map.
func resolve(lex string, prefixes map[string]string) (xmlns.Name, error) {
	prefix, local := "", lex
	if i := strings.IndexByte(lex, ':'); i >= 0 {
		prefix, local = lex[:i], lex[i+1:]
	}
	if local == "" {
		return xmlns.Name{}, fmt.Errorf("malformed qualified name %q", lex)
	}
	if prefix == "" {
		return xmlns.Name{Local: local}, nil
	}
	uri, ok := prefixes[prefix]
	if !ok {
		return xmlns.Name{}, fmt.Errorf("prefix %q in %q is not declared", prefix, lex)
	}
	return xmlns.New(uri, local), nil
}
