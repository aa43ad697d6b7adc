package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// envPattern matches the three recognized syntaxes (§4.1):
//   ${NAME}             group 1
//   ${NAME:-FALLBACK}   group 2 / group 3
//   $env:NAME           group 4
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}|\$env:([A-Za-z_][A-Za-z0-9_]*)`)

// lookupFunc abstracts os.LookupEnv for testability.
type lookupFunc func(string) (string, bool)

// ExpandString performs a single-pass expansion of every occurrence of the
// three env-var syntaxes in s. A lone "$" not followed by "{" or "env:" is
// left as a literal dollar sign. ${UNSET} with no fallback is an error
// naming the variable and source. Resolve passes the directory that holds
// the defining config file as source, so the file name itself is not part
// of that message.
func ExpandString(s, source string, lookup lookupFunc) (string, error) {
	if !hasDollar(s) {
		return s, nil
	}

	var firstErr error

	result := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := envPattern.FindStringSubmatch(match)
		// sub[1]=braced name, sub[2]=":-FALLBACK" block, sub[3]=fallback, sub[4]=$env:NAME name
		name := sub[1]
		hasFallback := sub[2] != ""
		fallback := sub[3]
		if name == "" {
			name = sub[4]
		}

		val, ok := lookup(name)
		if ok && val != "" {
			return val
		}
		if hasFallback {
			return fallback
		}
		if ok {
			// Set but empty, and no fallback syntax used: treated as set.
			return val
		}
		firstErr = mcplug.ErrConfigError(
			"environment variable "+name+" is not set (required by "+source+")", nil)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// ExpandServer applies ExpandString to every env-expandable field of a
// server config: baseUrl, command, each arg, each env value, each header
// value (§4.1).
func ExpandServer(name, source string, s *mcplug.ServerConfig, lookup lookupFunc) error {
	expand := func(label, v string) (string, error) {
		out, err := ExpandString(v, source, lookup)
		if err != nil {
			return "", wrapField(name, label, err)
		}
		return out, nil
	}

	var err error
	if s.BaseURL, err = expand("baseUrl", s.BaseURL); err != nil {
		return err
	}
	if s.Command, err = expand("command", s.Command); err != nil {
		return err
	}
	for i, a := range s.Args {
		if s.Args[i], err = expand("args", a); err != nil {
			return err
		}
	}
	for k, v := range s.Env {
		if s.Env[k], err = expand("env."+k, v); err != nil {
			return err
		}
	}
	for k, v := range s.Headers {
		if s.Headers[k], err = expand("headers."+k, v); err != nil {
			return err
		}
	}
	return nil
}

func wrapField(server, field string, err error) error {
	if e, ok := err.(*mcplug.Error); ok {
		e.Message = "server " + server + "." + field + ": " + e.Message
		return e
	}
	return err
}

func defaultLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// hasDollar is a fast pre-check so callers can skip the regex pass entirely
// for the common case of a string with no "$" at all.
func hasDollar(s string) bool {
	return strings.IndexByte(s, '$') >= 0
}
