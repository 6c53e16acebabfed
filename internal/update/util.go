package update

import "strings"

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func indexOf(items []string, target string) int {
	if target == "" {
		return -1
	}
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
