package extract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cardscan/internal/common"
)

const sampleCard = "John Smith\nSenior Engineer\nAcme Corp\njohn.smith@acme.com\n+1 555 123 4567"

func TestSegmentLines(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields empty sequence", func(t *testing.T) {
		t.Parallel()
		if got := SegmentLines(""); len(got) != 0 {
			t.Errorf("expected no lines, got %v", got)
		}
	})

	t.Run("trims and drops blank lines, order preserved", func(t *testing.T) {
		t.Parallel()
		got := SegmentLines("  a  \n\n\t\nb\n  \nc\n")
		want := []string{"a", "b", "c"}
		if len(got) != len(want) {
			t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("whitespace-only input yields empty sequence", func(t *testing.T) {
		t.Parallel()
		if got := SegmentLines(" \n \t \n "); len(got) != 0 {
			t.Errorf("expected no lines, got %v", got)
		}
	})
}

func TestExtractSampleCard(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	rec, err := e.Extract(sampleCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Email != "john.smith@acme.com" {
		t.Errorf("expected email 'john.smith@acme.com', got %q", rec.Email)
	}
	if rec.Phone != "+1 555 123 4567" {
		t.Errorf("expected phone '+1 555 123 4567', got %q", rec.Phone)
	}
	if rec.Name != "John Smith" {
		t.Errorf("expected name 'John Smith', got %q", rec.Name)
	}
	if rec.JobTitle != "Senior Engineer" {
		t.Errorf("expected job title 'Senior Engineer', got %q", rec.JobTitle)
	}
	if rec.Company != "Acme Corp" {
		t.Errorf("expected company 'Acme Corp', got %q", rec.Company)
	}
}

func TestExtractAlwaysTotal(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	inputs := []string{
		"",
		sampleCard,
		"garbage $$ lines\n12345",
		strings.Repeat("x\n", 50),
	}
	for _, in := range inputs {
		rec, err := e.Extract(in)
		if err != nil {
			t.Fatalf("input %q: unexpected error: %v", in, err)
		}
		// marshal to a map so absent keys would be visible
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]string
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(m) != 7 {
			t.Errorf("input %q: expected exactly 7 fields, got %d: %v", in, len(m), m)
		}
		for k, v := range m {
			if v == "" {
				t.Errorf("input %q: field %s is empty, expected a value or sentinel", in, k)
			}
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	first, err := e.Extract(sampleCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Extract(sampleCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("extraction is not idempotent: %+v vs %+v", first, second)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	rec, err := e.Extract("")
	if err != nil {
		t.Fatalf("empty input must not error, got: %v", err)
	}
	for _, v := range []string{rec.Name, rec.JobTitle, rec.Company, rec.Email, rec.Phone, rec.Address, rec.Website} {
		if v != NotFound {
			t.Errorf("expected all fields %q for empty input, got %+v", NotFound, rec)
		}
	}
}

func TestExtractInvalidUTF8(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	_, err := e.Extract("John Smith\n\xff\xfe")
	if err == nil {
		t.Fatal("expected an error for non-UTF-8 input")
	}
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmailMatcher(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})

	t.Run("embedded email still matches", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("Reach me at x@y.com for details")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Email != "x@y.com" {
			t.Errorf("expected 'x@y.com', got %q", rec.Email)
		}
	})

	t.Run("first match in document order wins", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("a@b.com\nc@d.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Email != "a@b.com" {
			t.Errorf("expected 'a@b.com', got %q", rec.Email)
		}
	})

	t.Run("no email resolves to sentinel", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("no contact details here")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Email != NotFound {
			t.Errorf("expected %q, got %q", NotFound, rec.Email)
		}
	})
}

func TestPhoneMatcher(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})

	t.Run("embedded phone does not match", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("call me on 555 123 4567 after five")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Phone != NotFound {
			t.Errorf("phone requires a whole-line match, got %q", rec.Phone)
		}
	})

	t.Run("whole-line phone matches", func(t *testing.T) {
		t.Parallel()
		for _, line := range []string{
			"+1 555 123 4567",
			"00 49 30 1234567",
			"555-123-4567",
			"555.123.4567",
		} {
			rec, err := e.Extract(line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Phone != line {
				t.Errorf("expected phone %q, got %q", line, rec.Phone)
			}
		}
	})

	t.Run("too few digits rejected", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("123456")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Phone != NotFound {
			t.Errorf("six digits should not match, got %q", rec.Phone)
		}
	})

	t.Run("first matching line wins", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("555 123 4567\n999 888 7777")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Phone != "555 123 4567" {
			t.Errorf("expected first line, got %q", rec.Phone)
		}
	})
}

func TestNameHeuristic(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})

	t.Run("blacklisted label line is rejected", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("Phone: 555-1234")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != NotFound {
			t.Errorf("blacklist must reject the line, got name %q", rec.Name)
		}
	})

	t.Run("all header lines disqualified", func(t *testing.T) {
		t.Parallel()
		text := "Mobile Office\nRoom 42\nFax Desk\n3rd Unit\nEmail Us\nWeb Shop\nStreet Side\nDirect Line"
		rec, err := e.Extract(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != NotFound {
			t.Errorf("expected %q, got %q", NotFound, rec.Name)
		}
	})

	t.Run("name beyond header window is ignored", func(t *testing.T) {
		t.Parallel()
		// eight disqualified lines, then a perfectly good name
		text := strings.Repeat("x1\n", 8) + "Jane Doe"
		rec, err := e.Extract(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != NotFound {
			t.Errorf("line 9 must not be scanned, got %q", rec.Name)
		}
	})

	t.Run("word count bounds", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("Madonna\nOne Two Three Four Five\nJane Ann Marie Doe")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != "Jane Ann Marie Doe" {
			t.Errorf("expected the four-word line, got %q", rec.Name)
		}
	})

	t.Run("digit disqualifies a line", func(t *testing.T) {
		t.Parallel()
		rec, err := e.Extract("John Smith 3rd\nJane Doe")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != "Jane Doe" {
			t.Errorf("expected 'Jane Doe', got %q", rec.Name)
		}
	})

	t.Run("custom header window is honored", func(t *testing.T) {
		t.Parallel()
		custom := NewExtractor(Config{MaxHeaderLines: 2})
		rec, err := custom.Extract("x1\nx2\nJane Doe")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Name != NotFound {
			t.Errorf("expected %q with a 2-line window, got %q", NotFound, rec.Name)
		}
	})
}

func TestNewExtractorDefaults(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	if e.cfg.MaxHeaderLines != DefaultMaxHeaderLines {
		t.Errorf("expected MaxHeaderLines %d, got %d", DefaultMaxHeaderLines, e.cfg.MaxHeaderLines)
	}
	if e.cfg.MinNameWords != DefaultMinNameWords {
		t.Errorf("expected MinNameWords %d, got %d", DefaultMinNameWords, e.cfg.MinNameWords)
	}
	if e.cfg.MaxNameWords != DefaultMaxNameWords {
		t.Errorf("expected MaxNameWords %d, got %d", DefaultMaxNameWords, e.cfg.MaxNameWords)
	}
	if len(e.cfg.NameBlacklist) != len(DefaultNameBlacklist) {
		t.Errorf("expected default blacklist, got %v", e.cfg.NameBlacklist)
	}
}
