package geocodec

import "strings"

const upperhex = "0123456789ABCDEF"

// DataURI builds "data:<mediaType>;charset=utf-8,<payload>" with the payload
// percent-encoded the way browsers' encodeURIComponent does it.
func DataURI(mediaType string, payload []byte) string {
	var b strings.Builder
	b.Grow(len("data:;charset=utf-8,") + len(mediaType) + len(payload)*3)
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";charset=utf-8,")
	for _, c := range payload {
		if keepUnescaped(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func keepUnescaped(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
