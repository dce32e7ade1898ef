package utils

import "strings"

// MinimumAge is the youngest participant allowed to take part.
const MinimumAge = 18

// IsValidEmail checks if the email string contains an "@" symbol with text on both sides.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

// IsAdult checks the participant is old enough to take part.
func IsAdult(age int) bool {
	return age >= MinimumAge
}

// IsDigitKey reports whether a keystroke may be taken as a response. Only ASCII
// digits count; targets are compared as their decimal text.
func IsDigitKey(key rune) bool {
	return key >= '0' && key <= '9'
}
