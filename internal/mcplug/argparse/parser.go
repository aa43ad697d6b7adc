// Package argparse turns a CLI argument vector into the JSON object a
// tools/call invocation expects, accepting the five surface forms the core
// contract names (§4.5): colon, equals, mixed colon/equals, function-call
// with named parameters, function-call with positional parameters.
package argparse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse converts raw CLI tokens (everything after the tool name) into an
// arguments object, assigning positional function-call values to required
// in declared order.
func Parse(tokens []string, required []string) (map[string]any, error) {
	if len(tokens) == 1 {
		if args, ok, err := parseFunctionCall(tokens[0], required); ok {
			return args, err
		}
	}
	return parseKeyValue(tokens)
}

// parseFunctionCall recognizes `name(arg1, arg2)` or `name(k1=v1, k2=v2)`
// syntax, where `name` is not inspected here (the caller already split the
// tool name off); the whole single token is `(...)`-wrapped arguments.
func parseFunctionCall(token string, required []string) (map[string]any, bool, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "(") || !strings.HasSuffix(token, ")") {
		return nil, false, nil
	}
	inner := strings.TrimSpace(token[1 : len(token)-1])
	if inner == "" {
		return map[string]any{}, true, nil
	}

	parts := splitTopLevel(inner, ',')
	args := make(map[string]any, len(parts))

	named := strings.Contains(parts[0], "=")
	if named {
		for _, p := range parts {
			k, v, ok := splitOnce(p, '=')
			if !ok {
				return nil, true, fmt.Errorf("argparse: malformed named argument %q", p)
			}
			coerced, err := coerce(strings.TrimSpace(v))
			if err != nil {
				return nil, true, err
			}
			args[strings.TrimSpace(k)] = coerced
		}
		return args, true, nil
	}

	if len(parts) > len(required) {
		return nil, true, fmt.Errorf("argparse: %d positional arguments given but tool declares %d required parameter(s)", len(parts), len(required))
	}
	for i, p := range parts {
		coerced, err := coerce(strings.TrimSpace(p))
		if err != nil {
			return nil, true, err
		}
		args[required[i]] = coerced
	}
	return args, true, nil
}

// parseKeyValue handles colon, equals, and mixed colon/equals forms: each
// token is `key:value` or `key=value`, parsed independently on whichever of
// ':' or '=' appears first. A token with neither separator is an error.
func parseKeyValue(tokens []string) (map[string]any, error) {
	args := make(map[string]any, len(tokens))
	for _, tok := range tokens {
		sep := firstSeparator(tok)
		if sep == 0 {
			return nil, fmt.Errorf("argparse: argument %q has no ':' or '=' separator", tok)
		}
		k, v, ok := splitOnce(tok, sep)
		if !ok {
			return nil, fmt.Errorf("argparse: malformed argument %q", tok)
		}
		coerced, err := coerce(v)
		if err != nil {
			return nil, err
		}
		args[k] = coerced
	}
	return args, nil
}

// firstSeparator returns whichever of ':' or '=' appears first in tok, or 0
// if neither is present.
func firstSeparator(tok string) byte {
	ci := strings.IndexByte(tok, ':')
	ei := strings.IndexByte(tok, '=')
	switch {
	case ci < 0 && ei < 0:
		return 0
	case ci < 0:
		return '='
	case ei < 0:
		return ':'
	case ci < ei:
		return ':'
	default:
		return '='
	}
}

func splitOnce(s string, sep byte) (string, string, bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// splitTopLevel splits on sep, ignoring occurrences inside matching quotes,
// brackets, or braces, so `a={"x":1}, b=2` yields two parts, not four.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	var escaped bool
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// coerce applies the ordered type-coercion rules (§4.5): quoted string →
// boolean → null → integer → float → parseable JSON → bare string.
func coerce(v string) (any, error) {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(v), &s); err == nil {
			return s, nil
		}
		return v[1 : len(v)-1], nil
	}

	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, nil
	}

	trimmed := strings.TrimSpace(v)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && gjson.Valid(trimmed) {
		return gjson.Parse(trimmed).Value(), nil
	}

	return v, nil
}
