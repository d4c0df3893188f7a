package frontmatter

import (
	"bytes"
	"errors"
)

// ErrMissingClosingDelimiter indicates the page opens a frontmatter block that is never closed.
var ErrMissingClosingDelimiter = errors.New("frontmatter opened with --- but never closed")

const delim = "---"

// Split cuts a page into its raw YAML header and body. ok is false when the
// page has no header, in which case body is the whole input. CRLF pages are
// accepted; the returned header keeps its original line endings.
func Split(page []byte) (header, body []byte, ok bool, err error) {
	first, rest, found := bytes.Cut(page, []byte("\n"))
	if !found || string(bytes.TrimSuffix(first, []byte("\r"))) != delim {
		return nil, page, false, nil
	}

	start := len(page) - len(rest)
	for off := start; off < len(page); {
		line, _, _ := bytes.Cut(page[off:], []byte("\n"))
		next := min(off+len(line)+1, len(page))
		if string(bytes.TrimSuffix(line, []byte("\r"))) == delim {
			return page[start:off], page[next:], true, nil
		}
		off = next
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}
