// Package multipart decodes an already-buffered multipart/form-data request
// body into text fields plus at most one file part. It is a single pass over
// the byte slice: no streaming, no I/O, safe to call from concurrent
// handlers. The caller is responsible for bounding the body size.
package multipart

import (
	"bytes"
	"errors"
	"strings"
)

// ErrMissingBoundary is returned when the Content-Type header carries no
// boundary parameter. Nothing can be parsed without it.
var ErrMissingBoundary = errors.New("multipart: missing boundary in content-type")

// File is the single binary part of a form, stored under the fixed field
// name "file" regardless of the name the client declared.
type File struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Form is the decoded body: scalar text fields by declared name, plus the
// file part if one was present.
type Form struct {
	Values map[string]string
	File   *File
}

// Boundary extracts the boundary token from a Content-Type header value of
// the form "multipart/form-data; boundary=<token>". Wrapping double quotes
// around the token are stripped.
func Boundary(contentType string) (string, error) {
	for _, seg := range strings.Split(contentType, ";") {
		seg = strings.TrimSpace(seg)
		if strings.HasPrefix(seg, "boundary=") {
			b := strings.TrimPrefix(seg, "boundary=")
			b = strings.Trim(b, `"`)
			if b != "" {
				return b, nil
			}
		}
	}
	return "", ErrMissingBoundary
}

// Decode parses body against the boundary declared in contentType.
//
// The only hard failure is a missing boundary. Individual parts that are
// malformed (no header/body separator) or carry no usable identity (neither
// name= nor filename= in content-disposition) are skipped so that one bad
// part never prevents extraction of its siblings.
func Decode(body []byte, contentType string) (*Form, error) {
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}

	form := &Form{Values: map[string]string{}}

	delim := []byte("--" + boundary)
	for _, seg := range bytes.Split(body, delim) {
		trimmed := bytes.TrimSpace(seg)
		// Preamble before the first boundary, and the "--" left over from
		// the terminating boundary marker.
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("--")) {
			continue
		}

		headers, raw, ok := splitPart(seg)
		if !ok {
			continue
		}

		disposition := headers["content-disposition"]
		name, filename := dispositionFields(disposition)

		switch {
		case filename != "":
			ct := headers["content-type"]
			if ct == "" {
				ct = "application/octet-stream"
			}
			form.File = &File{
				Filename:    filename,
				Content:     raw,
				ContentType: ct,
			}
		case name != "":
			form.Values[name] = string(raw)
		}
	}

	return form, nil
}

// splitPart separates one boundary-delimited segment into parsed headers and
// the raw part body. Returns ok=false when the CRLF CRLF separator is absent.
func splitPart(seg []byte) (map[string]string, []byte, bool) {
	sep := []byte("\r\n\r\n")
	i := bytes.Index(seg, sep)
	if i < 0 {
		return nil, nil, false
	}

	headers := map[string]string{}
	for _, line := range strings.Split(string(seg[:i]), "\n") {
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	raw := seg[i+len(sep):]
	// Segmentation leaves the boundary-adjacent line terminator (and, for
	// the final part, leading dashes of the close marker) on the tail.
	raw = bytes.TrimSuffix(raw, []byte("--"))
	raw = bytes.TrimSuffix(raw, []byte("\r\n"))

	return headers, raw, true
}

// dispositionFields pulls name= and filename= out of a content-disposition
// header value, stripping wrapping quotes.
func dispositionFields(disposition string) (name, filename string) {
	for _, seg := range strings.Split(disposition, ";") {
		seg = strings.TrimSpace(seg)
		if strings.HasPrefix(seg, "filename=") {
			filename = strings.Trim(strings.TrimPrefix(seg, "filename="), `"`)
		} else if strings.HasPrefix(seg, "name=") {
			name = strings.Trim(strings.TrimPrefix(seg, "name="), `"`)
		}
	}
	return name, filename
}
