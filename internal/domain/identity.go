package domain

// DisplayName renders an identity for chat and dashboard output: handles get
// an @ prefix, numeric ids are shortened to their last five digits.
func DisplayName(identity string) string {
	if isDigits(identity) {
		tail := identity
		if len(tail) > 5 {
			tail = tail[len(tail)-5:]
		}
		return "ID " + tail
	}
	return "@" + identity
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
