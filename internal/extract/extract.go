package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"cardscan/internal/common"
)

// NotFound is the sentinel value for a field that could not be resolved.
// It is a placeholder, not an error: extraction is total and always yields
// all seven fields.
const NotFound = "Not Found"

// FieldRecord is the structured output of extraction. Every field is always
// present; unresolved fields carry NotFound. The record is plain data and
// holds no references back into the source text.
type FieldRecord struct {
	Name     string `json:"name"`
	JobTitle string `json:"job_title"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Website  string `json:"website"`
}

// Config holds the tunable knobs of the heuristic classifier.
// Zero values are replaced with the defaults below.
type Config struct {
	// MaxHeaderLines is how many lines from the top are scanned for the
	// person's name. Card layouts put the name near the top.
	MaxHeaderLines int

	// MinNameWords/MaxNameWords bound the whitespace-split word count a
	// line must have to qualify as a name.
	MinNameWords int
	MaxNameWords int

	// NameBlacklist rejects labeled field lines ("Phone: ...") that would
	// otherwise qualify as names. Matched case-insensitively as substrings.
	NameBlacklist []string
}

// Defaults for Config.
const (
	DefaultMaxHeaderLines = 8
	DefaultMinNameWords   = 2
	DefaultMaxNameWords   = 4
)

// DefaultNameBlacklist lists label words that mark a line as a labeled
// field rather than a personal name.
var DefaultNameBlacklist = []string{
	"Phone", "Mobile", "Email", "Web", "Address", "Street", "Fax", "Direct",
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// phoneRe is a whole-line anchor: an optional + or 00 prefix, then 7 to
	// 15 digit groups separated by at most three spaces, dots, or hyphens.
	// A phone-shaped substring inside a longer line never matches.
	phoneRe = regexp.MustCompile(`^(?:(?:\+|00)[\s.-]{0,3})?(?:\d[\s.-]{0,3}){7,15}$`)
)

// Extractor turns a blob of OCR text into a FieldRecord. It is stateless
// and safe for concurrent use.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.MaxHeaderLines <= 0 {
		cfg.MaxHeaderLines = DefaultMaxHeaderLines
	}
	if cfg.MinNameWords <= 0 {
		cfg.MinNameWords = DefaultMinNameWords
	}
	if cfg.MaxNameWords <= 0 {
		cfg.MaxNameWords = DefaultMaxNameWords
	}
	if cfg.NameBlacklist == nil {
		cfg.NameBlacklist = DefaultNameBlacklist
	}
	return &Extractor{cfg: cfg}
}

// SegmentLines splits raw OCR text on line breaks, trims each line, and
// drops lines that are empty after trimming. Order is preserved. Any
// string is accepted; empty input yields an empty slice.
func SegmentLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Extract runs the full classification pipeline over the OCR text.
// Identical input always produces an identical record. Input that is not
// valid UTF-8 is rejected with ErrInvalidInput; an empty string is valid
// and yields an all-NotFound record.
func (e *Extractor) Extract(text string) (FieldRecord, error) {
	if !utf8.ValidString(text) {
		return FieldRecord{}, fmt.Errorf("ocr text is not valid UTF-8: %w", common.ErrInvalidInput)
	}

	rec := FieldRecord{
		Name:     NotFound,
		JobTitle: NotFound,
		Company:  NotFound,
		Email:    NotFound,
		Phone:    NotFound,
		Address:  NotFound,
		Website:  NotFound,
	}

	lines := SegmentLines(text)

	// Email is a substring search over the whole text; first match wins.
	// Matches are cloned so the record never aliases the caller's text.
	if m := emailRe.FindString(text); m != "" {
		rec.Email = strings.Clone(m)
	}

	// Phone is a whole-line match; first qualifying line wins.
	for _, l := range lines {
		if phoneRe.MatchString(l) {
			rec.Phone = strings.Clone(l)
			break
		}
	}

	rec.Name = e.classifyName(lines)
	rec.JobTitle = e.classifyJobTitle(lines, rec.Name)
	rec.Company = e.classifyCompany(lines, rec)
	rec.Address = e.classifyAddress(lines)
	rec.Website = e.classifyWebsite(text, lines)

	return rec, nil
}

// classifyName scans the first MaxHeaderLines lines for a short,
// symbol-free, multi-word line that is not a labeled field.
func (e *Extractor) classifyName(lines []string) string {
	header := lines
	if len(header) > e.cfg.MaxHeaderLines {
		header = header[:e.cfg.MaxHeaderLines]
	}
	for _, line := range header {
		if len(line) < 3 {
			continue
		}
		if strings.Contains(line, "@") {
			continue
		}
		if strings.ContainsFunc(line, unicode.IsDigit) {
			continue
		}
		if containsAnyFold(line, e.cfg.NameBlacklist) {
			continue
		}
		words := strings.Fields(line)
		if len(words) >= e.cfg.MinNameWords && len(words) <= e.cfg.MaxNameWords {
			return strings.Clone(line)
		}
	}
	return NotFound
}

// containsAnyFold reports whether s contains any of the words,
// case-insensitively, as a substring.
func containsAnyFold(s string, words []string) bool {
	ls := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(ls, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
