package storage

import (
	"fmt"
	"strings"
	"time"
)

// Document kinds used as file name prefixes
const (
	KindPO      = "po"
	KindPI      = "pi"
	KindInvoice = "invoice"
)

// PathParams describes where a document lives
type PathParams struct {
	Buyer    string
	Date     time.Time
	Folder   string // PO number, PO id or invoice number
	Kind     string
	Filename string
	At       time.Time // upload time, used for the millisecond suffix
}

// BuildPath returns {buyer}/{Month}/{DD}/{folder}/{kind}_{epochMillis}_{filename}
func BuildPath(p PathParams) string {
	at := p.At
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s/%s/%02d/%s/%s_%d_%s",
		Sanitize(p.Buyer),
		p.Date.Month().String(),
		p.Date.Day(),
		Sanitize(p.Folder),
		p.Kind,
		at.UnixMilli(),
		Sanitize(p.Filename),
	)
}

// Sanitize keeps [A-Za-z0-9._-] and replaces every other rune with '_'
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	// a bare ".." would escape the folder
	if strings.Trim(out, ".") == "" {
		return strings.Repeat("_", len(out))
	}
	return out
}
