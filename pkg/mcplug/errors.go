package mcplug

import "fmt"

// ErrorKind is the closed sum type of errors the core can produce. Every
// kind carries a stable string Code so a structured-output consumer can
// emit {error:{server,tool,message,code}} without a case analysis on Kind.
type ErrorKind int

const (
	KindServerNotFound ErrorKind = iota
	KindToolNotFound
	KindConnectionFailed
	KindTimeout
	KindAuthRequired
	KindConfigError
	KindTransportError
	KindProtocolError
	KindOAuthError
	KindIoError
)

// Code returns the stable string code for the kind, used in JSON projection.
func (k ErrorKind) Code() string {
	switch k {
	case KindServerNotFound, KindToolNotFound:
		return "not_found"
	case KindConnectionFailed:
		return "connection_refused"
	case KindTimeout:
		return "timeout"
	case KindAuthRequired:
		return "auth_required"
	case KindConfigError:
		return "config_error"
	case KindTransportError:
		return "transport_error"
	case KindProtocolError:
		return "parse_error"
	case KindOAuthError:
		return "oauth_error"
	case KindIoError:
		return "io_error"
	default:
		return "unknown"
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindServerNotFound:
		return "ServerNotFound"
	case KindToolNotFound:
		return "ToolNotFound"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindTimeout:
		return "Timeout"
	case KindAuthRequired:
		return "AuthRequired"
	case KindConfigError:
		return "ConfigError"
	case KindTransportError:
		return "TransportError"
	case KindProtocolError:
		return "ProtocolError"
	case KindOAuthError:
		return "OAuthError"
	case KindIoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// Error is the single error type every core operation returns. It is closed
// over ErrorKind; callers branch on the Kind field or Code(), never on
// string matching.
type Error struct {
	Kind    ErrorKind
	Server  string
	Tool    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("mcplug: %s: %s: %s", e.Kind, e.Server, e.Message)
	}
	return fmt.Sprintf("mcplug: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Code returns the stable string code for the error's kind.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// JSON is the wire projection a structured-output collaborator emits for
// an error without needing a case analysis on Kind.
type JSON struct {
	Server  string `json:"server,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// AsJSON projects the error into its stable wire shape.
func (e *Error) AsJSON() JSON {
	return JSON{
		Server:  e.Server,
		Tool:    e.Tool,
		Message: e.Message,
		Code:    e.Kind.Code(),
	}
}

func newErr(kind ErrorKind, server, tool, msg string, cause error) *Error {
	return &Error{Kind: kind, Server: server, Tool: tool, Message: msg, Cause: cause}
}

// ErrServerNotFound builds a ServerNotFound error naming the known servers.
func ErrServerNotFound(server string, known []string) *Error {
	return newErr(KindServerNotFound, server, "", fmt.Sprintf("unknown server %q (known: %v)", server, known), nil)
}

// ErrToolNotFound builds a ToolNotFound error, optionally carrying a
// fuzzy-matched suggestion in the message.
func ErrToolNotFound(server, tool, suggestion string) *Error {
	msg := fmt.Sprintf("unknown tool %q", tool)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return newErr(KindToolNotFound, server, tool, msg, nil)
}

// ErrConnectionFailed wraps a transport-construction or handshake failure.
func ErrConnectionFailed(server, msg string, cause error) *Error {
	return newErr(KindConnectionFailed, server, "", msg, cause)
}

// ErrTimeout builds a Timeout error carrying the operation and elapsed duration.
func ErrTimeout(server, op string, elapsedMS int64) *Error {
	return newErr(KindTimeout, server, "", fmt.Sprintf("%s timed out after %dms", op, elapsedMS), nil)
}

// ErrAuthRequired signals the transport needs authentication it does not have.
func ErrAuthRequired(server, msg string) *Error {
	return newErr(KindAuthRequired, server, "", msg, nil)
}

// ErrConfigError wraps a configuration resolution failure.
func ErrConfigError(msg string, cause error) *Error {
	return newErr(KindConfigError, "", "", msg, cause)
}

// ErrTransportError wraps a generic transport-level failure.
func ErrTransportError(server, msg string, cause error) *Error {
	return newErr(KindTransportError, server, "", msg, cause)
}

// ErrProtocolError wraps a JSON-RPC framing or decoding failure.
func ErrProtocolError(server, msg string, cause error) *Error {
	return newErr(KindProtocolError, server, "", msg, cause)
}

// ErrOAuthError wraps a failure from the OAuth collaborator surface.
func ErrOAuthError(server, msg string, cause error) *Error {
	return newErr(KindOAuthError, server, "", msg, cause)
}

// ErrIo wraps a raw I/O failure not otherwise classified.
func ErrIo(msg string, cause error) *Error {
	return newErr(KindIoError, "", "", msg, cause)
}

// AsMcplugError unwraps err into *Error if it is (or wraps) one.
func AsMcplugError(err error) (*Error, bool) {
	var target *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return target, false
}
