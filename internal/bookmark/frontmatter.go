package bookmark

import (
	"fmt"
	"strings"
	"time"
)

// delimiter bounds the frontmatter block at the top of an issue body.
const delimiter = "---"

// ErrNoFrontmatter is returned when an issue body has no parseable
// frontmatter block.
var ErrNoFrontmatter = fmt.Errorf("no frontmatter block found")

// Encoded is the issue representation of a bookmark.
type Encoded struct {
	Title  string
	Body   string
	Labels []string
}

// Encode renders a bookmark as issue title, frontmatter body and labels.
// dateSaved is written once and preserved across updates; pass the zero
// time to stamp it now. When isUpdate is set a date_updated field is
// refreshed as well.
func Encode(b Bookmark, isUpdate bool, dateSaved time.Time, now func() time.Time) Encoded {
	if now == nil {
		now = time.Now
	}
	if dateSaved.IsZero() {
		dateSaved = now()
	}

	var sb strings.Builder
	sb.WriteString(delimiter)
	sb.WriteString("\n")
	writeField(&sb, "title", b.Title)
	writeField(&sb, "url", b.URL)
	writeField(&sb, "provider", b.Provider)
	writeField(&sb, "date_saved", dateSaved.UTC().Format(time.RFC3339))
	if isUpdate {
		writeField(&sb, "date_updated", now().UTC().Format(time.RFC3339))
	}
	sb.WriteString(delimiter)
	sb.WriteString("\n")
	if b.Notes != "" {
		sb.WriteString("\n")
		sb.WriteString(b.Notes)
	}

	return Encoded{
		Title:  b.Title,
		Body:   sb.String(),
		Labels: b.Labels(),
	}
}

// writeField emits a double-quoted key: "value" line with inner quotes
// escaped so the block stays parseable.
func writeField(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteString(`: "`)
	sb.WriteString(strings.ReplaceAll(value, `"`, `\"`))
	sb.WriteString("\"\n")
}

// Fields is the parsed frontmatter of an issue body.
type Fields struct {
	Title       string
	URL         string
	Provider    string
	DateSaved   time.Time
	DateUpdated time.Time
	Notes       string
}

// ParseBody splits an issue body into frontmatter fields and trailing
// notes. The parser is deliberately permissive: each line between the
// delimiters is a key: value pair, values may be double-quoted,
// single-quoted or bare, and unknown keys are ignored.
func ParseBody(body string) (*Fields, error) {
	raw, notes, err := splitFrontmatter(body)
	if err != nil {
		return nil, err
	}

	f := &Fields{Notes: notes}
	for key, value := range raw {
		switch key {
		case "title":
			f.Title = value
		case "url":
			f.URL = value
		case "provider":
			f.Provider = value
		case "date_saved":
			f.DateSaved, _ = time.Parse(time.RFC3339, value)
		case "date_updated":
			f.DateUpdated, _ = time.Parse(time.RFC3339, value)
		}
	}
	return f, nil
}

// splitFrontmatter tokenizes the block between the delimiters into
// key/value pairs and returns the remaining body text as notes.
func splitFrontmatter(body string) (map[string]string, string, error) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	// First non-blank line must open the block.
	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == delimiter {
			start = i
		}
		break
	}
	if start == -1 {
		return nil, "", ErrNoFrontmatter
	}

	end := -1
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, "", ErrNoFrontmatter
	}

	fields := make(map[string]string)
	for _, line := range lines[start+1 : end] {
		key, value, ok := parseFieldLine(line)
		if !ok {
			continue
		}
		fields[key] = value
	}

	notes := strings.Join(lines[end+1:], "\n")
	return fields, strings.TrimSpace(notes), nil
}

// parseFieldLine parses a single "key: value" line.
func parseFieldLine(line string) (string, string, bool) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(value)), true
}

// unquote strips one matching pair of single or double quotes and
// unescapes embedded quotes. Bare values come back trimmed as-is.
func unquote(s string) string {
	if len(s) >= 2 {
		if s[0] == '"' && s[len(s)-1] == '"' {
			return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
		}
		if s[0] == '\'' && s[len(s)-1] == '\'' {
			return strings.ReplaceAll(s[1:len(s)-1], `\'`, `'`)
		}
	}
	return s
}

// Decode reconstructs a bookmark from an issue's body and label set.
func Decode(body string, labels []string) (*Bookmark, error) {
	f, err := ParseBody(body)
	if err != nil {
		return nil, fmt.Errorf("decoding bookmark: %w", err)
	}
	if f.URL == "" {
		return nil, fmt.Errorf("decoding bookmark: frontmatter has no url: %w", ErrNoFrontmatter)
	}
	return &Bookmark{
		Title:    f.Title,
		URL:      f.URL,
		Type:     TypeFromLabels(labels),
		Provider: f.Provider,
		Notes:    f.Notes,
		Tags:     TagsFromLabels(labels),
	}, nil
}

// ExtractURL pulls the url value out of an issue body for duplicate
// matching. It parses the frontmatter first; if the block is malformed
// it falls back to scanning every line of the body for a url: field so
// a broken record can still be matched.
func ExtractURL(body string) (string, bool) {
	if f, err := ParseBody(body); err == nil && f.URL != "" {
		return f.URL, true
	}
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := parseFieldLine(line)
		if ok && key == "url" && value != "" {
			return value, true
		}
	}
	return "", false
}
