package zod

import (
	"strconv"
	"strings"

	"github.com/skyleague/therefore-sub001/dialect"
)

// support says how a validate rule maps onto Zod.
type support int

const (
	// supported rules have a direct Zod check.
	supported support = iota
	// skipped rules are covered by the structure of the schema.
	skipped
	// unsupported rules have no Zod equivalent and are dropped.
	unsupported
)

var regexChecks = map[string]string{
	"alphanum":  `/^[a-zA-Z0-9]+$/`,
	"alpha":     `/^[a-zA-Z]+$/`,
	"numeric":   `/^[0-9]+$/`,
	"lowercase": `/^[a-z]+$/`,
	"uppercase": `/^[A-Z]+$/`,
	"hexcolor":  `/^#(?:[0-9a-fA-F]{3}){1,2}$/`,
}

var formatChecks = map[string]string{
	"email":     ".email()",
	"url":       ".url()",
	"uri":       ".url()",
	"uuid":      ".uuid()",
	"ipv4":      ".ip({ version: 'v4' })",
	"ipv6":      ".ip({ version: 'v6' })",
	"ip":        ".ip()",
	"datetime":  ".datetime()",
	"date-time": ".datetime()",
	"date":      ".date()",
	"time":      ".time()",
}

var numericChecks = map[string]string{
	"gt":  ".gt",
	"gte": ".gte",
	"lt":  ".lt",
	"lte": ".lte",
}

// check returns the Zod method chain for r. isString selects length
// checks over numeric bounds for min, max and len.
func check(r dialect.Rule, isString bool) (string, support) {
	switch r.Name {
	case "required":
		if isString {
			return ".min(1)", supported
		}
		return "", skipped
	case "omitempty", "dive":
		return "", skipped
	case "min", "max":
		if !isNumber(r.Param) {
			return "", unsupported
		}
		return "." + r.Name + "(" + r.Param + ")", supported
	case "len":
		if !isString || !isNumber(r.Param) {
			return "", unsupported
		}
		return ".length(" + r.Param + ")", supported
	case "eq", "ne":
		if r.Param == "" {
			return "", unsupported
		}
		op := "==="
		if r.Name == "ne" {
			op = "!=="
		}
		value := r.Param
		if isString {
			value = strconv.Quote(r.Param)
		} else if !isNumber(r.Param) {
			return "", unsupported
		}
		return ".refine((v) => v " + op + " " + value + ")", supported
	case "startswith":
		return ".startsWith(" + strconv.Quote(r.Param) + ")", supported
	case "endswith":
		return ".endsWith(" + strconv.Quote(r.Param) + ")", supported
	case "contains":
		return ".includes(" + strconv.Quote(r.Param) + ")", supported
	}
	if m, ok := numericChecks[r.Name]; ok {
		if isString || !isNumber(r.Param) {
			return "", unsupported
		}
		return m + "(" + r.Param + ")", supported
	}
	if m, ok := formatChecks[r.Name]; ok {
		if !isString {
			return "", unsupported
		}
		return m, supported
	}
	if re, ok := regexChecks[r.Name]; ok {
		if !isString {
			return "", unsupported
		}
		return ".regex(" + re + ")", supported
	}
	return "", unsupported
}

// oneOf returns the literal choices of a "oneof" rule.
func oneOf(rules []dialect.Rule) ([]string, bool) {
	for _, r := range rules {
		if r.Name == "oneof" {
			values := strings.Fields(r.Param)
			return values, len(values) > 0
		}
	}
	return nil, false
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
