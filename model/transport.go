package model

// ErrInvalidTransport indicates an unrecognized transport name.
var ErrInvalidTransport = NewReaderError(ErrorTypeTransport, "invalid transport")

// Transport represents the communication transport method for the MCP server
type Transport uint8

const (
	// UndefinedTransport is the zero value for an unset transport
	UndefinedTransport Transport = iota
	// StdioTransport serves MCP over stdin/stdout
	StdioTransport
	// HTTPTransport serves MCP over streamable HTTP
	HTTPTransport
)

// ParseTransport converts a string to a Transport type
func ParseTransport(transport string) (Transport, error) {
	switch transport {
	case "stdio":
		return StdioTransport, nil
	case "http":
		return HTTPTransport, nil
	default:
		return UndefinedTransport, ErrInvalidTransport
	}
}

// String returns the string representation of a Transport
func (t Transport) String() string {
	switch t {
	case StdioTransport:
		return "stdio"
	case HTTPTransport:
		return "http"
	default:
		return "undefined"
	}
}
