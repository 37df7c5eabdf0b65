package schema

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/soapwire/soapwire/pkg/xmlns"
)

// Builtin returns a Compiler covering the XSD primitive scalar types.
// These are the leaf codecs the RPC-encoding rules need for typed scalar
// elements; the SOAP encoding namespace mirrors the same local names, so
// the builtin compiler accepts any namespace and dispatches on the local
// part.
func Builtin() Compiler {
	return builtin{}
}

type builtin struct{}

type scalar struct {
	write func(any) (string, error)
	read  func(string) (any, error)
}

var scalars = map[string]scalar{
	"string": {
		write: func(v any) (string, error) { return fmt.Sprintf("%v", v), nil },
		read:  func(s string) (any, error) { return s, nil },
	},
	"boolean": {
		write: writeBool,
		read: func(s string) (any, error) {
			switch strings.TrimSpace(s) {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			}
			return nil, fmt.Errorf("invalid boolean lexical %q", s)
		},
	},
	"int": {
		write: writeInt,
		read: func(s string) (any, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
			return int(n), err
		},
	},
	"long": {
		write: writeInt,
		read: func(s string) (any, error) {
			return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		},
	},
	"short": {
		write: writeInt,
		read: func(s string) (any, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16)
			return int16(n), err
		},
	},
	"byte": {
		write: writeInt,
		read: func(s string) (any, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8)
			return int8(n), err
		},
	},
	"integer": {
		write: writeInt,
		read: func(s string) (any, error) {
			return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		},
	},
	"float": {
		write: writeFloat,
		read: func(s string) (any, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
			return float32(f), err
		},
	},
	"double": {
		write: writeFloat,
		read: func(s string) (any, error) {
			return strconv.ParseFloat(strings.TrimSpace(s), 64)
		},
	},
	"decimal": {
		// Decimals stay lexical to avoid binary rounding.
		write: func(v any) (string, error) { return fmt.Sprintf("%v", v), nil },
		read:  func(s string) (any, error) { return strings.TrimSpace(s), nil },
	},
	"dateTime": {
		write: func(v any) (string, error) {
			t, ok := v.(time.Time)
			if !ok {
				return "", fmt.Errorf("dateTime requires time.Time, got %T", v)
			}
			return t.Format(time.RFC3339), nil
		},
		read: func(s string) (any, error) {
			return time.Parse(time.RFC3339, strings.TrimSpace(s))
		},
	},
	"date": {
		write: func(v any) (string, error) {
			t, ok := v.(time.Time)
			if !ok {
				return "", fmt.Errorf("date requires time.Time, got %T", v)
			}
			return t.Format("2006-01-02"), nil
		},
		read: func(s string) (any, error) {
			return time.Parse("2006-01-02", strings.TrimSpace(s))
		},
	},
	"anyURI": {
		write: func(v any) (string, error) { return fmt.Sprintf("%v", v), nil },
		read:  func(s string) (any, error) { return strings.TrimSpace(s), nil },
	},
	"base64Binary": {
		write: func(v any) (string, error) {
			b, ok := v.([]byte)
			if !ok {
				return "", fmt.Errorf("base64Binary requires []byte, got %T", v)
			}
			return base64.StdEncoding.EncodeToString(b), nil
		},
		read: func(s string) (any, error) {
			return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		},
	},
}

func writeBool(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("boolean requires bool, got %T", v)
	}
	return strconv.FormatBool(b), nil
}

func writeInt(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int8:
		return strconv.FormatInt(int64(n), 10), nil
	case int16:
		return strconv.FormatInt(int64(n), 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case float64:
		// JSON numbers arrive as float64.
		return strconv.FormatInt(int64(n), 10), nil
	}
	return "", fmt.Errorf("integer type requires an integer value, got %T", v)
}

func writeFloat(v any) (string, error) {
	switch f := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(f), nil
	}
	return "", fmt.Errorf("float type requires a numeric value, got %T", v)
}

func (builtin) CompileWriter(typ xmlns.Name, opts Options) (Writer, error) {
	sc, ok := scalars[typ.Local]
	if !ok {
		return nil, unknownType(typ)
	}
	return func(ns *xmlns.Table, name xmlns.Name, value any) (*etree.Element, error) {
		tag := name.Local
		if opts.Qualified || name.Space != "" {
			q, err := ns.Qualify(name)
			if err != nil {
				return nil, err
			}
			tag = q
		}
		lex, err := sc.write(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s as %s: %w", name, typ, err)
		}
		el := etree.NewElement(tag)
		el.SetText(lex)
		return el, nil
	}, nil
}

func (builtin) CompileReader(typ xmlns.Name, _ Options) (Reader, error) {
	sc, ok := scalars[typ.Local]
	if !ok {
		return nil, unknownType(typ)
	}
	return func(el *etree.Element) (any, error) {
		v, err := sc.read(el.Text())
		if err != nil {
			return nil, fmt.Errorf("decode %s as %s: %w", el.Tag, typ, err)
		}
		return v, nil
	}, nil
}

// IsScalar reports whether the builtin compiler can serve the given local
// type name. The decoder uses this to recognize SOAP-encoded scalar
// elements named after their type.
func IsScalar(local string) bool {
	_, ok := scalars[local]
	return ok
}
