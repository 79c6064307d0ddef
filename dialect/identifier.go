package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// reservedWords are ECMAScript and TypeScript keywords that cannot be used
// as binding names.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "type": true, "typeof": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true,
}

// Reserved reports whether name is a keyword.
func Reserved(name string) bool {
	return reservedWords[name]
}

func identRune(r rune, first bool) bool {
	if r == '_' || r == '$' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}

// ValidIdentifier reports whether name can be written unquoted as a
// binding.
func ValidIdentifier(name string) bool {
	if name == "" || reservedWords[name] {
		return false
	}
	for i, r := range name {
		if !identRune(r, i == 0) {
			return false
		}
	}
	return true
}

// Identifier turns name into a valid binding name, replacing invalid
// characters with '_' and appending '_' to keywords.
func Identifier(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case identRune(r, i == 0):
			b.WriteRune(r)
		case i == 0 && unicode.IsDigit(r):
			b.WriteByte('_')
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if reservedWords[out] {
		return out + "_"
	}
	return out
}

// PropertyKey returns name as an object key, quoting it when needed.
// Keywords are valid property names and stay unquoted.
func PropertyKey(name string) string {
	if name == "" {
		return `""`
	}
	for i, r := range name {
		if !identRune(r, i == 0) {
			return strconv.Quote(name)
		}
	}
	return name
}

// Pascal upper-cases the first letter of every word in s and drops the
// separators between words: "pet_tags" becomes "PetTags".
func Pascal(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' || r == '.' || r == '/' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Literal formats a schema literal (string, int64, float64, bool or nil)
// as source text.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strconv.Quote(fmt.Sprint(v))
}

// DocComment returns description as a block comment at indent, or "" when
// description is empty.
func DocComment(description, indent string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	description = strings.ReplaceAll(description, "*/", `*\/`)
	lines := strings.Split(description, "\n")
	if len(lines) == 1 {
		return indent + "/** " + lines[0] + " */\n"
	}
	var b strings.Builder
	b.WriteString(indent + "/**\n")
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			b.WriteString(indent + " *\n")
			continue
		}
		b.WriteString(indent + " * " + line + "\n")
	}
	b.WriteString(indent + " */\n")
	return b.String()
}
