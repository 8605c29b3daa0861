package uploader

import "qapp_backend/platform/sanitize"

// NormalizeHashtags turns comma separated input into a tag list:
// "a, b ,, c" -> ["a" "b" "c"], "" -> [].
func NormalizeHashtags(raw string) []string {
	return sanitize.SplitTags(raw)
}
