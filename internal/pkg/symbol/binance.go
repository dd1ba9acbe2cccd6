package symbol

import "strings"

// ToBinance converts the canonical "BASE/QUOTE" form to the exchange form "BASEQUOTE".
func ToBinance(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "/", "")
}

// FromBinance converts an exchange symbol back to "BASE/QUOTE"; it returns "" when no known quote matches.
func FromBinance(raw string) string {
	return Parse(raw).String()
}
