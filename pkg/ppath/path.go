// Package ppath implements the pure path-string algebra shared by every
// VFS backend and front-end: join, normalisation, segment walking, and
// the name/stem/suffix/parent/drive family. Every function here is total
// and allocation-light; none of them touch a filesystem.
package ppath

import "strings"

const sep = '/'

// IsAbsolute reports whether p starts with '/' once any drive prefix is
// skipped.
func IsAbsolute(p string) bool {
	p = stripDrive(p)
	return len(p) > 0 && p[0] == sep
}

// IsRelative is the complement of IsAbsolute.
func IsRelative(p string) bool {
	return !IsAbsolute(p)
}

// IsRoot reports whether p is exactly "/" or "<drive>:/".
func IsRoot(p string) bool {
	rest := stripDrive(p)
	return rest == "/"
}

// Drive returns the drive letter (a single byte) if p begins with a
// letter/digit followed by ':', else 0.
func Drive(p string) byte {
	if len(p) >= 2 && isDriveChar(p[0]) && p[1] == ':' {
		return p[0]
	}
	return 0
}

func isDriveChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// stripDrive returns p with a leading "<drive>:" prefix removed, if any.
func stripDrive(p string) string {
	if d := Drive(p); d != 0 {
		return p[2:]
	}
	return p
}

// Join concatenates a and b with a single '/' between them, unless b is
// absolute (in which case the result is b). The result must fit within
// limit bytes including a trailing NUL; otherwise Join returns ("",
// false) to signal name-too-long to the caller.
func Join(a, b string, limit int) (string, bool) {
	if IsAbsolute(b) {
		if len(b)+1 > limit {
			return "", false
		}
		return b, true
	}
	if a == "" {
		if len(b)+1 > limit {
			return "", false
		}
		return b, true
	}
	if b == "" {
		if len(a)+1 > limit {
			return "", false
		}
		return a, true
	}
	var out string
	if strings.HasSuffix(a, "/") {
		out = a + b
	} else {
		out = a + "/" + b
	}
	if len(out)+1 > limit {
		return "", false
	}
	return out, true
}

// ResolveDot eliminates "." and ".." segments in place, preserving any
// drive prefix, the leading '/' of an absolute path, and a trailing '/'
// if the input had one. A ".." that would climb above the root is
// silently dropped (it does not error, and does not escape the root).
func ResolveDot(p string) string {
	drive := ""
	rest := p
	if d := Drive(p); d != 0 {
		drive = p[:2]
		rest = p[2:]
	}

	absolute := strings.HasPrefix(rest, "/")
	trailingSlash := len(rest) > 1 && strings.HasSuffix(rest, "/")

	segments := splitSegments(rest)
	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			// else: climbing above root, silently dropped.
		default:
			out = append(out, seg)
		}
	}

	var b strings.Builder
	b.WriteString(drive)
	if absolute {
		b.WriteByte(sep)
	}
	for i, seg := range out {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(seg)
	}
	if trailingSlash && len(out) > 0 {
		b.WriteByte(sep)
	}

	result := b.String()
	if result == "" || result == drive {
		if absolute {
			return drive + "/"
		}
		return drive + "."
	}
	return result
}

// splitSegments splits rest on '/', treating consecutive separators as
// one and dropping empty leading/trailing segments.
func splitSegments(rest string) []string {
	raw := strings.Split(rest, "/")
	out := raw[:0:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Resolve normalises p against cwd: if p is absolute, it is normalised
// directly; otherwise cwd and p are joined first. limit bounds the
// intermediate join (see Join); a failure there propagates as ok=false.
func Resolve(cwd, p string, limit int) (string, bool) {
	if IsAbsolute(p) {
		return ResolveDot(p), true
	}
	joined, ok := Join(cwd, p, limit)
	if !ok {
		return "", false
	}
	return ResolveDot(joined), true
}

// Top returns the first segment of p (skipping any drive prefix and
// leading/duplicated separators) and the remainder of the path
// following it, for iterative forward walks.
func Top(p string) (segment, rest string) {
	rest = stripDrive(p)
	for len(rest) > 0 && rest[0] == sep {
		rest = rest[1:]
	}
	if rest == "" {
		return "", ""
	}
	i := strings.IndexByte(rest, sep)
	if i < 0 {
		return rest, ""
	}
	segment = rest[:i]
	rest = rest[i+1:]
	for len(rest) > 0 && rest[0] == sep {
		rest = rest[1:]
	}
	return segment, rest
}

// Tail returns the final segment of p and the remainder (everything
// before it), walking from the end backward — the symmetric counterpart
// to Top.
func Tail(p string) (segment, rest string) {
	body := stripDrive(p)
	trimmed := strings.TrimRight(body, "/")
	if trimmed == "" {
		return "", ""
	}
	i := strings.LastIndexByte(trimmed, sep)
	if i < 0 {
		return trimmed, ""
	}
	return trimmed[i+1:], trimmed[:i+1]
}

// finalSegment returns the last path segment of p, with no separators.
func finalSegment(p string) string {
	seg, _ := Tail(p)
	return seg
}

// Name returns the final segment of p.
func Name(p string) string {
	return finalSegment(p)
}

// Suffix returns the substring from the last '.' in the final segment to
// its end, per the spec's rules:
//   - a segment made entirely of '.' characters has no suffix.
//   - a '.' at position 0 with no earlier non-'.' character yields no
//     suffix either (".vim" has none), but a leading run of more than one
//     '.' followed by a non-dot run does have a suffix ("..vim" -> ".vim").
func Suffix(p string) string {
	name := finalSegment(p)
	if isAllDots(name) {
		return ""
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	// A single leading dot with nothing before it is a dotfile name, not
	// a suffix: ".vim" -> no suffix. But "..vim" -> first dot at 0, last
	// dot at 1, non-dot content starts at 2: suffix is ".vim".
	if i == 0 {
		return ""
	}
	return name[i:]
}

// Stem returns the final segment minus its Suffix.
func Stem(p string) string {
	name := finalSegment(p)
	suf := Suffix(p)
	if suf == "" {
		return name
	}
	return strings.TrimSuffix(name, suf)
}

func isAllDots(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			return false
		}
	}
	return true
}

// Parent returns p with its final segment removed (the directory
// containing it), preserving any drive prefix and absoluteness.
func Parent(p string) string {
	drive := ""
	if d := Drive(p); d != 0 {
		drive = p[:2]
	}

	_, rest := Tail(p)
	if rest == "" {
		if IsAbsolute(p) {
			return drive + "/"
		}
		return ""
	}
	rest = strings.TrimRight(rest, "/")
	if rest == "" {
		return drive + "/"
	}
	return drive + rest
}
