package opcall

import (
	"net/url"
	"regexp"
	"strings"
)

// LabelSource is implemented by input types whose fields supply values for
// path or host labels. Inputs without labels need not implement it.
type LabelSource interface {
	// Label returns the value for the named label. The second return value
	// reports whether the input can supply the label at all.
	Label(name string) (string, bool)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segLabel
	segGreedy
)

type segment struct {
	kind segmentKind
	// literal text, or the label name for segLabel/segGreedy
	text string
}

// Pattern is the parsed form of a URI path template.
//
// Templates are split at "/". A segment of exactly "{name}" is a label,
// "{name+}" is a greedy label (its value may contain "/"), and anything else
// is literal text. Labels do not mix with literal text inside one segment.
// A "?" anywhere in the raw template starts a literal query suffix of
// key=value pairs joined by "&", which is parsed out separately.
type Pattern struct {
	raw           string
	segments      []segment
	query         url.Values
	trailingSlash bool
}

// ParsePattern parses a URI path template.
func ParsePattern(template string) *Pattern {
	path := template
	query := url.Values{}
	if i := strings.Index(template, "?"); i >= 0 {
		path = template[:i]
		if parsed, err := url.ParseQuery(template[i+1:]); err == nil {
			query = parsed
		}
	}

	p := &Pattern{
		raw:           template,
		query:         query,
		trailingSlash: strings.HasSuffix(path, "/"),
	}
	for _, seg := range strings.Split(path, "/") {
		switch {
		case len(seg) > 3 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "+}"):
			p.segments = append(p.segments, segment{segGreedy, seg[1 : len(seg)-2]})
		case len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			p.segments = append(p.segments, segment{segLabel, seg[1 : len(seg)-1]})
		default:
			p.segments = append(p.segments, segment{segLiteral, seg})
		}
	}
	return p
}

// Labels returns the label names in the pattern, in order of appearance.
func (p *Pattern) Labels() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.kind != segLiteral {
			names = append(names, seg.text)
		}
	}
	return names
}

// HasLabels reports whether the pattern contains any labels.
func (p *Pattern) HasLabels() bool {
	for _, seg := range p.segments {
		if seg.kind != segLiteral {
			return true
		}
	}
	return false
}

// Query returns the literal query parameters parsed out of the template.
func (p *Pattern) Query() url.Values {
	return p.query
}

// TrailingSlash reports whether the template's path (ignoring any query
// suffix) ended in "/".
func (p *Pattern) TrailingSlash() bool {
	return p.trailingSlash
}

// Expand substitutes label values from src and rejoins the path.
//
// Label values are percent-escaped. A greedy label's value is split on "/",
// each piece escaped independently, and rejoined with "/", so internal
// slashes survive expansion. If the pattern contains labels that src cannot
// supply (or src is nil), Expand fails with a *MissingLabelsError naming
// every unresolved label.
func (p *Pattern) Expand(src LabelSource) (string, error) {
	if src == nil {
		if p.HasLabels() {
			return "", &MissingLabelsError{Template: p.raw, Labels: p.Labels()}
		}
	}

	var missing []string
	parts := make([]string, 0, len(p.segments))
	for _, seg := range p.segments {
		switch seg.kind {
		case segLiteral:
			parts = append(parts, seg.text)
		case segLabel:
			v, ok := src.Label(seg.text)
			if !ok {
				missing = append(missing, seg.text)
				continue
			}
			parts = append(parts, escapeLabel(v))
		case segGreedy:
			v, ok := src.Label(seg.text)
			if !ok {
				missing = append(missing, seg.text)
				continue
			}
			pieces := strings.Split(v, "/")
			for i := range pieces {
				pieces[i] = escapeLabel(pieces[i])
			}
			parts = append(parts, strings.Join(pieces, "/"))
		}
	}
	if len(missing) > 0 {
		return "", &MissingLabelsError{Template: p.raw, Labels: missing}
	}
	return strings.Join(parts, "/"), nil
}

var hostLabelPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ExpandHostPrefix substitutes {name} labels in a host-prefix template.
// Unlike path expansion this is a flat substitution: labels may appear
// anywhere in the prefix, mixed with literal text.
func ExpandHostPrefix(prefix string, src LabelSource) (string, error) {
	if !strings.Contains(prefix, "{") {
		return prefix, nil
	}

	var missing []string
	out := hostLabelPattern.ReplaceAllStringFunc(prefix, func(match string) string {
		name := match[1 : len(match)-1]
		if src == nil {
			missing = append(missing, name)
			return match
		}
		v, ok := src.Label(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return escapeLabel(v)
	})
	if len(missing) > 0 {
		return "", &MissingLabelsError{Template: prefix, Labels: missing}
	}
	return out, nil
}

const upperhex = "0123456789ABCDEF"

// escapeLabel percent-encodes a label value per the RFC 3986 reserved set.
// A literal "+" becomes "%20": the stock query escaper leaves "+" alone, so
// it has to be handled here.
func escapeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.' || c == '_' || c == '~':
			b.WriteByte(c)
		case c == '+':
			b.WriteString("%20")
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}
