// Package path splits slash-separated paths into segments.
package path

import "strings"

// Separator joins path segments.
const Separator = "/"

// Path is an ordered sequence of segments. The zero value is the empty path.
type Path []string

// Parse splits s on "/". Empty segments, from leading, trailing or repeated
// separators, are dropped.
func Parse(s string) Path {
	var out Path
	for _, seg := range strings.Split(s, Separator) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p) }

// IsEmpty reports whether p has no segments.
func (p Path) IsEmpty() bool { return len(p) == 0 }

// Join returns p followed by the segments of s.
func (p Path) Join(s string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Parse(s)...)
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}
