package common

import "regexp"

// SettingKeyPattern is the shape of a dotted settings key such as
// "alerts.runway_threshold_months".
const SettingKeyPattern = `^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`

// MatchRegex compiles and matches a regex pattern against a string.
// Returns true if the pattern matches, false otherwise.
// Returns an error if the pattern is invalid.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
