package metadata

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html/charset"
)

// XMLDeclaration precedes the copied element in every staged document.
const XMLDeclaration = `<?xml version="1.0" encoding="utf-8"?>`

// sniffSize bounds how far the encoding declaration is searched for.
const sniffSize = 1024

var encodingDeclPattern = regexp.MustCompile(`^<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// rootElement describes the first element of a document.
type rootElement struct {
	Namespace string
	Local     string
}

// staged is the outcome of copying a document.
type staged struct {
	Root  rootElement
	Bytes int64
}

// stagingError marks a failure writing the staging file.
type stagingError struct {
	err error
}

func (e *stagingError) Error() string { return "failed to write staging file: " + e.err.Error() }

func (e *stagingError) Unwrap() error { return e.err }

// streamError marks a failure reading the source stream.
type streamError struct {
	err error
}

func (e *streamError) Error() string { return e.err.Error() }

func (e *streamError) Unwrap() error { return e.err }

// errNoElement is returned by copyRoot when the stream ends before any element.
var errNoElement = errors.New("no element in document")

// recorder tees what the decoder reads. Until the root element is located it
// keeps everything; afterwards it forwards bytes straight to the destination.
type recorder struct {
	src     io.Reader
	pending bytes.Buffer
	dst     io.Writer
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		if r.dst != nil {
			if _, werr := r.dst.Write(p[:n]); werr != nil {
				return n, &stagingError{err: werr}
			}
		} else {
			r.pending.Write(p[:n])
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &streamError{err: err}
	}
	return n, err
}

// forwardFrom writes the recorded bytes from stream offset off onwards to dst and
// switches to pass-through.
func (r *recorder) forwardFrom(off int64, dst io.Writer) error {
	buf := r.pending.Bytes()
	start := off
	if start < 0 || start > int64(len(buf)) {
		return fmt.Errorf("root element offset %d outside recorded input", off)
	}
	if _, err := dst.Write(buf[start:]); err != nil {
		return &stagingError{err: err}
	}
	r.pending = bytes.Buffer{}
	r.dst = dst
	return nil
}

// copyRoot decodes src until the end of its first element and writes the XML
// declaration followed by that element's exact bytes to dst. onRoot is called
// once the first element has been read, before copying begins.
func copyRoot(src io.Reader, dst io.Writer, truncate func(int64) error, onRoot func(rootElement)) (staged, error) {
	utf8Src, err := toUTF8(src)
	if err != nil {
		return staged{}, err
	}

	rec := &recorder{src: utf8Src}
	dec := xml.NewDecoder(rec)
	// Input is already UTF-8; the declared encoding is only informational now.
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root      rootElement
		rootStart int64
		depth     int
	)

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return staged{}, errNoElement
			}
			return staged{}, err
		}

		if cd, ok := tok.(xml.CharData); ok {
			if strings.TrimFunc(string(cd), unicode.IsSpace) != "" {
				line, _ := dec.InputPos()
				return staged{}, &xml.SyntaxError{Msg: "data at the root level is invalid", Line: line}
			}
			continue
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		root = rootElement{Namespace: start.Name.Space, Local: start.Name.Local}
		rootStart = off
		depth = 1
		break
	}

	if onRoot != nil {
		onRoot(root)
	}

	if _, err := io.WriteString(dst, XMLDeclaration); err != nil {
		return staged{}, &stagingError{err: err}
	}
	if err := rec.forwardFrom(rootStart, dst); err != nil {
		return staged{}, err
	}

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return staged{}, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}

	size := int64(len(XMLDeclaration)) + dec.InputOffset() - rootStart
	if err := truncate(size); err != nil {
		return staged{}, &stagingError{err: err}
	}

	return staged{Root: root, Bytes: size}, nil
}

// toUTF8 strips a byte order mark and converts non-UTF-8 input to UTF-8.
func toUTF8(src io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(src, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, &streamError{err: err}
	}

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		_, _ = br.Discard(len(bomUTF16LE))
		return decodeLabel("utf-16le", br)
	case bytes.HasPrefix(head, bomUTF16BE):
		_, _ = br.Discard(len(bomUTF16BE))
		return decodeLabel("utf-16be", br)
	}

	m := encodingDeclPattern.FindSubmatch(head)
	if m == nil {
		return br, nil
	}
	label := strings.ToLower(string(m[1]))
	if label == "utf-8" || label == "utf8" || label == "us-ascii" || label == "ascii" {
		return br, nil
	}
	return decodeLabel(label, br)
}

func decodeLabel(label string, r io.Reader) (io.Reader, error) {
	converted, err := charset.NewReaderLabel(label, r)
	if err != nil {
		return nil, &xml.SyntaxError{Msg: fmt.Sprintf("unsupported encoding %q", label), Line: 1}
	}
	return converted, nil
}
