package main

import (
	"strings"
)

// splitStatements splits a SQL script on semicolons that are outside string
// literals, quoted identifiers and comments. Comments are dropped and empty
// statements are skipped. Bodies that contain their own semicolons, such as
// CREATE TRIGGER ... BEGIN ... END, are not supported.
func splitStatements(src string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := closingQuote(src, i)
			cur.WriteString(src[i:end])
			i = end - 1
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				i = len(src)
			} else {
				i += nl - 1
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return stmts
}

// closingQuote returns the index just past the quote that closes the one at
// start. A doubled quote character is an escaped quote.
func closingQuote(src string, start int) int {
	q := src[start]
	for i := start + 1; i < len(src); i++ {
		if src[i] != q {
			continue
		}
		if i+1 < len(src) && src[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(src)
}
