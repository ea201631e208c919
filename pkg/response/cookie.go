package response

import (
	"strconv"
	"strings"
)

// Cookie is an outgoing Set-Cookie entry. Empty Domain and Path and a nil
// MaxAge are left out of the header line.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	MaxAge   *int
	HTTPOnly bool
}

// headerLine renders the cookie as a Set-Cookie header line without CRLF.
func (c Cookie) headerLine() string {
	var sb strings.Builder
	sb.WriteString("Set-Cookie: ")
	sb.WriteString(c.Name)
	sb.WriteString(`="`)
	sb.WriteString(c.Value)
	sb.WriteByte('"')
	if c.Domain != "" {
		sb.WriteString("; Domain=")
		sb.WriteString(c.Domain)
	}
	if c.Path != "" {
		sb.WriteString("; Path=")
		sb.WriteString(c.Path)
	}
	if c.MaxAge != nil {
		sb.WriteString("; Max-Age=")
		sb.WriteString(strconv.Itoa(*c.MaxAge))
	}
	if c.HTTPOnly {
		sb.WriteString("; HttpOnly")
	}
	return sb.String()
}

// ParseCookieHeader splits a request Cookie header into name/value pairs.
// Quoted values are unquoted. Later duplicates win.
func ParseCookieHeader(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		out[strings.TrimSpace(name)] = value
	}
	return out
}
