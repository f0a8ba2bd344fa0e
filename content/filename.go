package content

import (
	"net/url"
	"strings"
)

// DecodedFileName returns the decoded file name at the end of rawURL, or of
// src when rawURL yields none. Only names with an extension count; anything
// else yields "".
func DecodedFileName(rawURL, src string) string {
	name := lastSegment(rawURL)
	if name == "" {
		name = lastSegment(src)
	}
	if !strings.Contains(name, ".") {
		return ""
	}
	return name
}

// lastSegment returns the unescaped text after the final "/", or "" when
// s has no "/".
func lastSegment(s string) string {
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	segment := s[i+1:]
	if decoded, err := url.PathUnescape(segment); err == nil {
		return decoded
	}
	return segment
}
