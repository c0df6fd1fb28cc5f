package logstore

// FallbackName is used whenever a server or resource name is missing.
// Non-string JSON values decay to "" at the handler boundary and land here too.
const FallbackName = "unknown"

// SanitizeName maps an arbitrary name to a filesystem-safe token. Every
// byte outside [A-Za-z0-9_-] becomes '_', preserving length and position.
// Distinct inputs may collide on the same output; that is accepted.
func SanitizeName(name string) string {
	if name == "" {
		return FallbackName
	}
	out := []byte(name)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
