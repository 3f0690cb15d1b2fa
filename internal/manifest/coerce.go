package manifest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/apkscan/internal/model"
)

// truthy holds the case-folded spellings accepted as true.
var truthy = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"y":    true,
}

// CoerceBool applies Android's loose boolean policy. It is total:
//   - nil and absent values are false
//   - a bool passes through
//   - a string is true iff it case-insensitively equals true, 1, yes or y
//   - anything else is false
func CoerceBool(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case *bool:
		return v != nil && *v
	case string:
		return looseBool(v)
	case *string:
		return v != nil && looseBool(*v)
	case model.AttrValue:
		if b, ok := v.AsBool(); ok {
			return b
		}
		if s, ok := v.AsText(); ok {
			return looseBool(s)
		}
		return false
	default:
		return false
	}
}

func looseBool(s string) bool {
	return truthy[cases.Fold().String(strings.TrimSpace(s))]
}

// Coerce converts a raw attribute into the value its schema entry asks for.
// A missing attribute yields the schema default. Numeric attributes that
// hold a resource or theme reference are kept as text.
func Coerce(raw string, present bool, spec model.AttrSpec) (model.AttrValue, error) {
	if !present {
		return spec.Default, nil
	}

	switch spec.Rule {
	case model.RuleBool:
		return model.Bool(CoerceBool(raw)), nil
	case model.RuleInt:
		i, err := parseInt(raw)
		if err == nil {
			return model.Int(i), nil
		}
		if isReference(raw) {
			return model.Text(raw), nil
		}
		return model.Absent(), fmt.Errorf("attribute %s: %q is not an integer", spec.Name, raw)
	case model.RuleReal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return model.Real(f), nil
		}
		if isReference(raw) {
			return model.Text(raw), nil
		}
		return model.Absent(), fmt.Errorf("attribute %s: %q is not a number", spec.Name, raw)
	default:
		return model.Text(raw), nil
	}
}

// parseInt parses a decimal integer, or a hexadecimal one with an explicit
// 0x prefix. Leading zeros stay decimal.
func parseInt(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return strconv.ParseInt(sign+s[2:], 16, 64)
	}
	return strconv.ParseInt(sign+s, 10, 64)
}

// isReference reports whether s is a resource (@...) or theme (?...) reference.
func isReference(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "@") || strings.HasPrefix(s, "?")
}
