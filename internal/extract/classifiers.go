package extract

import (
	"regexp"
	"strings"
)

// The richer classifiers below resolve JobTitle, Company, Address, and
// Website. They share the engine's contract: first qualifying hit wins,
// NotFound when nothing qualifies, and no cross-field validation.

// titleWords are role words commonly printed under the person's name.
var titleWords = []string{
	"engineer", "developer", "designer", "architect", "scientist",
	"manager", "director", "officer", "president", "executive",
	"founder", "co-founder", "owner", "partner", "principal",
	"ceo", "cto", "cfo", "coo", "cmo", "vp", "vice president",
	"head", "lead", "consultant", "analyst", "specialist",
	"coordinator", "administrator", "accountant", "attorney", "advisor",
	"sales", "marketing", "recruiter",
}

// companySuffixes are corporate designators that mark a line as an
// organization rather than a person or a label.
var companySuffixes = []string{
	"inc", "ltd", "llc", "llp", "plc", "corp", "corporation", "gmbh",
	"co", "company", "group", "holdings", "enterprises", "industries",
	"technologies", "solutions", "systems", "labs", "studio", "studios",
	"consulting", "partners", "agency", "associates", "pvt",
}

// addressWords mark a line as a street or mailing address when it also
// carries digits.
var addressWords = []string{
	"street", "st.", "road", "rd.", "avenue", "ave", "boulevard", "blvd",
	"lane", "ln.", "drive", "dr.", "suite", "ste", "floor", "fl.",
	"building", "block", "sector", "p.o. box", "po box", "unit", "plaza",
}

// freeMailDomains are mail providers whose domain says nothing about the
// company, so they are skipped when deriving Company from the email.
var freeMailDomains = map[string]struct{}{
	"gmail": {}, "yahoo": {}, "hotmail": {}, "outlook": {},
	"icloud": {}, "aol": {}, "proton": {}, "protonmail": {}, "live": {},
	"msn": {}, "mail": {}, "gmx": {}, "yandex": {}, "zoho": {},
}

var (
	urlRe = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"]+`)

	// bareDomainRe matches a whole line that is just a domain, the way
	// cards often print "acme.com" without a scheme.
	bareDomainRe = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.[a-z]{2,}$`)

	postalCodeRe = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)

	wordRe = regexp.MustCompile(`[a-z0-9.+-]+`)
)

// classifyJobTitle picks the first line carrying a role word. The name
// line is skipped so "Director Jane Doe" OCR quirks don't steal the name.
func (e *Extractor) classifyJobTitle(lines []string, name string) string {
	for _, line := range lines {
		if line == name {
			continue
		}
		if strings.Contains(line, "@") || urlRe.MatchString(line) {
			continue
		}
		if containsWordFold(line, titleWords) {
			return strings.Clone(line)
		}
	}
	return NotFound
}

// classifyCompany looks for a line with a corporate designator; when none
// exists it falls back to the organization label of the email domain.
func (e *Extractor) classifyCompany(lines []string, rec FieldRecord) string {
	for _, line := range lines {
		if line == rec.Name || line == rec.JobTitle {
			continue
		}
		if strings.Contains(line, "@") {
			continue
		}
		if containsWordFold(line, companySuffixes) {
			return strings.Clone(line)
		}
	}
	if rec.Email != NotFound {
		if org := orgFromEmail(rec.Email); org != "" {
			return org
		}
	}
	return NotFound
}

// classifyAddress accepts a line that pairs digits with an address word,
// or that contains a US-style postal code.
func (e *Extractor) classifyAddress(lines []string) string {
	for _, line := range lines {
		if strings.Contains(line, "@") {
			continue
		}
		hasDigit := strings.ContainsAny(line, "0123456789")
		if hasDigit && containsWordFold(line, addressWords) {
			return strings.Clone(line)
		}
		if postalCodeRe.MatchString(line) && !phoneRe.MatchString(line) && len(strings.Fields(line)) >= 3 {
			return strings.Clone(line)
		}
	}
	return NotFound
}

// classifyWebsite finds the first URL-shaped substring, or a whole line
// that is a bare domain. The email address never qualifies: email spans
// are blanked out first so a www-style mail domain cannot leak through.
func (e *Extractor) classifyWebsite(text string, lines []string) string {
	masked := emailRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
	if m := urlRe.FindString(masked); m != "" {
		return strings.Clone(strings.TrimRight(m, ".,;"))
	}
	for _, line := range lines {
		if strings.Contains(line, "@") {
			continue
		}
		if bareDomainRe.MatchString(line) {
			return strings.Clone(line)
		}
	}
	return NotFound
}

// containsWordFold reports whether any of the words appears in s as a
// whole token (case-insensitive). Tokens are runs of [a-z0-9.+-], so
// "Corp" matches "Acme Corp" but not "Corporeal".
func containsWordFold(s string, words []string) bool {
	ls := strings.ToLower(s)
	tokens := wordRe.FindAllString(ls, -1)
	for _, w := range words {
		// multi-word entries ("vice president") use a substring check
		if strings.Contains(w, " ") {
			if strings.Contains(ls, w) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if strings.Trim(tok, ".") == strings.Trim(w, ".") {
				return true
			}
		}
	}
	return false
}

// orgFromEmail derives a company guess from the first label of the email
// domain, skipping free mail providers. "jane@acme.com" -> "Acme".
func orgFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := email[at+1:]
	label, _, _ := strings.Cut(domain, ".")
	label = strings.ToLower(label)
	if label == "" {
		return ""
	}
	if _, free := freeMailDomains[label]; free {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
