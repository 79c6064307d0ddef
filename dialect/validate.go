package dialect

import "strings"

// Rule is a single go-playground style validation rule.
type Rule struct {
	// Name is the rule name, e.g. "required", "email", "min".
	Name string

	// Param is the value after "=", empty if none. For "min=8" it is "8".
	Param string
}

// ParseValidateTag splits a validate string such as "required,email,min=8"
// into rules. Empty parts are skipped.
func ParseValidateTag(tag string) []Rule {
	if tag == "" {
		return nil
	}
	parts := strings.Split(tag, ",")
	rules := make([]Rule, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, param, _ := strings.Cut(part, "=")
		if name == "" {
			continue
		}
		rules = append(rules, Rule{Name: name, Param: param})
	}
	return rules
}
