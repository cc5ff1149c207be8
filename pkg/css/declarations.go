package css

import "strings"

// Declaration is one "property: value" pair of a declaration block.
type Declaration struct {
	Property string
	Value    string
}

// Declarations is an ordered declaration block, as found in a style
// attribute. Order is preserved so rewriting an attribute keeps the author's
// declarations where they were.
type Declarations []Declaration

// ParseDeclarations splits a block on ';'. Property names are lower-cased;
// entries without a colon or value are dropped.
func ParseDeclarations(block string) Declarations {
	var out Declarations
	for _, part := range strings.Split(block, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		if prop == "" || value == "" {
			continue
		}
		out = out.Set(prop, value)
	}
	return out
}

func (d Declarations) Get(property string) (string, bool) {
	for _, decl := range d {
		if decl.Property == property {
			return decl.Value, true
		}
	}
	return "", false
}

// Set replaces the value in place or appends a new declaration.
func (d Declarations) Set(property, value string) Declarations {
	for i := range d {
		if d[i].Property == property {
			d[i].Value = value
			return d
		}
	}
	return append(d, Declaration{Property: property, Value: value})
}

func (d Declarations) Remove(property string) Declarations {
	out := d[:0]
	for _, decl := range d {
		if decl.Property != property {
			out = append(out, decl)
		}
	}
	return out
}

// String formats the block for a style attribute: "a: 1; b: 2".
func (d Declarations) String() string {
	parts := make([]string, len(d))
	for i, decl := range d {
		parts[i] = decl.Property + ": " + decl.Value
	}
	return strings.Join(parts, "; ")
}
