package solution

import (
	"strings"

	"github.com/ctagard/dotnet-dap/internal/errors"
)

type tagKind int

const (
	tagOpen tagKind = iota
	tagSelfClosing
	tagClose
)

// tag is one element tag found by markupReader. start and end are byte
// offsets of '<' and one past '>'.
type tag struct {
	kind  tagKind
	name  string
	attrs map[string]string
	start int
	end   int
}

// attr returns the value of the named attribute and whether it was present.
func (t tag) attr(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// markupReader is a flat tokenizer over XML-like text. It reports element
// tags in document order and never builds a tree, so nesting, attribute
// order and quoting style do not matter. Comments, processing instructions,
// CDATA sections and declarations are skipped. The only failure is a
// construct that is still open at end of input.
type markupReader struct {
	src string
	pos int
}

func newMarkupReader(src string) *markupReader {
	return &markupReader{src: src}
}

var entityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// next returns the next tag. ok is false once the input is exhausted.
func (r *markupReader) next() (t tag, ok bool, err error) {
	for {
		i := strings.IndexByte(r.src[r.pos:], '<')
		if i < 0 {
			r.pos = len(r.src)
			return tag{}, false, nil
		}
		start := r.pos + i
		rest := r.src[start:]

		switch {
		case strings.HasPrefix(rest, "<!--"):
			if err := r.skipPast(start, "-->", "comment"); err != nil {
				return tag{}, false, err
			}
			continue
		case strings.HasPrefix(rest, "<![CDATA["):
			if err := r.skipPast(start, "]]>", "CDATA"); err != nil {
				return tag{}, false, err
			}
			continue
		case strings.HasPrefix(rest, "<?"):
			if err := r.skipPast(start, "?>", "processing instruction"); err != nil {
				return tag{}, false, err
			}
			continue
		case strings.HasPrefix(rest, "<!"):
			if err := r.skipPast(start, ">", "declaration"); err != nil {
				return tag{}, false, err
			}
			continue
		case strings.HasPrefix(rest, "</"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return tag{}, false, errors.ParseError("closing", start)
			}
			r.pos = start + end + 1
			return tag{
				kind:  tagClose,
				name:  strings.TrimSpace(rest[2:end]),
				start: start,
				end:   r.pos,
			}, true, nil
		}

		name := readName(rest[1:])
		if name == "" {
			// A lone '<' in text content.
			r.pos = start + 1
			continue
		}
		t, err := r.readStartTag(start, name)
		if err != nil {
			return tag{}, false, err
		}
		return t, true, nil
	}
}

// text returns the trimmed character data between two offsets.
func (r *markupReader) text(from, to int) string {
	if from < 0 || to > len(r.src) || from >= to {
		return ""
	}
	return strings.TrimSpace(entityReplacer.Replace(r.src[from:to]))
}

func (r *markupReader) skipPast(start int, terminator, construct string) error {
	end := strings.Index(r.src[start:], terminator)
	if end < 0 {
		return errors.ParseError(construct, start)
	}
	r.pos = start + end + len(terminator)
	return nil
}

func (r *markupReader) readStartTag(start int, name string) (tag, error) {
	t := tag{kind: tagOpen, name: name, attrs: map[string]string{}, start: start}
	p := start + 1 + len(name)
	src := r.src

	for {
		for p < len(src) && isSpace(src[p]) {
			p++
		}
		if p >= len(src) {
			return tag{}, errors.ParseError(name, start)
		}
		switch {
		case src[p] == '>':
			t.end = p + 1
			r.pos = t.end
			return t, nil
		case strings.HasPrefix(src[p:], "/>"):
			t.kind = tagSelfClosing
			t.end = p + 2
			r.pos = t.end
			return t, nil
		case src[p] == '/':
			p++
			continue
		}

		attrName := readName(src[p:])
		if attrName == "" {
			// Junk inside the tag; step over it.
			p++
			continue
		}
		p += len(attrName)
		for p < len(src) && isSpace(src[p]) {
			p++
		}
		if p >= len(src) || src[p] != '=' {
			t.attrs[attrName] = ""
			continue
		}
		p++
		for p < len(src) && isSpace(src[p]) {
			p++
		}
		if p >= len(src) {
			return tag{}, errors.ParseError(name, start)
		}
		if q := src[p]; q == '"' || q == '\'' {
			end := strings.IndexByte(src[p+1:], q)
			if end < 0 {
				return tag{}, errors.ParseError(name, start)
			}
			t.attrs[attrName] = entityReplacer.Replace(src[p+1 : p+1+end])
			p += end + 2
			continue
		}
		v := p
		for p < len(src) && !isSpace(src[p]) && src[p] != '>' && !strings.HasPrefix(src[p:], "/>") {
			p++
		}
		t.attrs[attrName] = entityReplacer.Replace(src[v:p])
	}
}

func readName(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if isSpace(c) || c == '>' || c == '/' || c == '=' || c == '<' || c == '"' || c == '\'' {
			break
		}
		i++
	}
	return s[:i]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
