package templates

import "strings"

// Field identifies a placeholder that can appear in a message template.
type Field int

const (
	fieldNone Field = iota
	FieldClientName
	FieldFirstName
	FieldDate
	FieldTime
	FieldPrice
	FieldAddress
	FieldHoursBefore
)

var fieldNames = map[string]Field{
	"clientName":  FieldClientName,
	"firstName":   FieldFirstName,
	"date":        FieldDate,
	"time":        FieldTime,
	"price":       FieldPrice,
	"address":     FieldAddress,
	"hoursBefore": FieldHoursBefore,
}

// optional fields remove the whole line they appear on when they have no value.
func (f Field) optional() bool {
	return f == FieldPrice || f == FieldAddress
}

type segment struct {
	text  string
	field Field
}

type line struct {
	segments []segment
}

func (l line) blank() bool {
	for _, s := range l.segments {
		if s.field != fieldNone || strings.TrimSpace(s.text) != "" {
			return false
		}
	}
	return true
}

// Template is a parsed message body: lines made of literal and placeholder
// segments. Unknown {names} stay literal text.
type Template struct {
	lines []line
}

// Parse splits src into lines and segments. It never fails: anything that is
// not a known placeholder is kept verbatim.
func Parse(src string) *Template {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	raw := strings.Split(src, "\n")
	t := &Template{lines: make([]line, 0, len(raw))}
	for _, r := range raw {
		t.lines = append(t.lines, parseLine(r))
	}
	return t
}

func parseLine(s string) line {
	var l line
	var lit strings.Builder
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			lit.WriteString(s)
			break
		}
		closeIdx := strings.IndexByte(s[open:], '}')
		if closeIdx < 0 {
			lit.WriteString(s)
			break
		}
		closeIdx += open
		name := s[open+1 : closeIdx]
		field, ok := fieldNames[name]
		if !ok {
			lit.WriteString(s[:closeIdx+1])
			s = s[closeIdx+1:]
			continue
		}
		lit.WriteString(s[:open])
		if lit.Len() > 0 {
			l.segments = append(l.segments, segment{text: lit.String()})
			lit.Reset()
		}
		l.segments = append(l.segments, segment{field: field})
		s = s[closeIdx+1:]
	}
	if lit.Len() > 0 {
		l.segments = append(l.segments, segment{text: lit.String()})
	}
	return l
}

// Execute renders the template. A line that references an optional field
// missing from values is removed together with the blank separator after it,
// and further blank lines are dropped while the output already ends in one,
// so elision never leaves a doubled blank line behind.
func (t *Template) Execute(values map[Field]string) string {
	present := func(f Field) bool {
		_, ok := values[f]
		return ok
	}

	out := make([]string, 0, len(t.lines))
	keptBlank := make([]bool, 0, len(t.lines))
	endsBlank := func() bool { return len(out) == 0 || keptBlank[len(out)-1] }
	afterElision := false
	for i := 0; i < len(t.lines); i++ {
		l := t.lines[i]
		if elided(l, present) {
			if i+1 < len(t.lines) && t.lines[i+1].blank() {
				i++
			}
			afterElision = true
			continue
		}
		if l.blank() && afterElision && endsBlank() {
			continue
		}
		if !l.blank() {
			afterElision = false
		}
		out = append(out, render(l, values))
		keptBlank = append(keptBlank, l.blank())
	}
	if afterElision {
		for len(out) > 0 && keptBlank[len(out)-1] {
			out = out[:len(out)-1]
			keptBlank = keptBlank[:len(keptBlank)-1]
		}
	}
	return strings.Join(out, "\n")
}

func elided(l line, present func(Field) bool) bool {
	for _, s := range l.segments {
		if s.field.optional() && !present(s.field) {
			return true
		}
	}
	return false
}

func render(l line, values map[Field]string) string {
	var b strings.Builder
	for _, s := range l.segments {
		if s.field == fieldNone {
			b.WriteString(s.text)
			continue
		}
		b.WriteString(values[s.field])
	}
	return b.String()
}

// Fields lists the placeholders the template references, in first-use order.
func (t *Template) Fields() []Field {
	seen := map[Field]bool{}
	var out []Field
	for _, l := range t.lines {
		for _, s := range l.segments {
			if s.field != fieldNone && !seen[s.field] {
				seen[s.field] = true
				out = append(out, s.field)
			}
		}
	}
	return out
}
