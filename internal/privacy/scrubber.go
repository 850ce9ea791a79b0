package privacy

import "regexp"

// Scrubber redacts personal health information from free text before it
// leaves the device in exported logs or data subject request bundles.
// Each category is replaced with a typed placeholder so the shape of
// the text stays reviewable.
type Scrubber struct {
	rules []scrubRule
}

type scrubRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewScrubber builds a Scrubber with the built-in PHI rules. Order
// matters: the more specific patterns run before the generic ones so a
// "+91" phone is not half eaten by the bare 10-digit rule.
func NewScrubber() *Scrubber {
	return &Scrubber{rules: []scrubRule{
		{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
		{regexp.MustCompile(`\+?91[\s-]?[6-9][\d\s-]{8,12}\d`), "[PHONE]"},
		{regexp.MustCompile(`\b[6-9]\d{9}\b`), "[PHONE]"},
		{regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), "[AADHAAR]"},
		{regexp.MustCompile(`(?i)\bMRN\s*:?\s*[A-Za-z0-9-]+`), "[MRN]"},
		{regexp.MustCompile(`(?i)\bpatient\s*id\s*:?\s*[A-Za-z0-9-]+`), "[PATIENT_ID]"},
		{regexp.MustCompile(`(?i)\bencounter\s*id\s*:?\s*[A-Za-z0-9-]+`), "[ENCOUNTER_ID]"},
		{regexp.MustCompile(`(?i)\b(?:DOB|birth)\s*:?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`), "[DOB]"},
	}}
}

// Scrub returns text with every PHI match replaced by its placeholder.
func (s *Scrubber) Scrub(text string) string {
	out := text
	for _, rule := range s.rules {
		out = rule.pattern.ReplaceAllString(out, rule.replacement)
	}
	return out
}

// ContainsPHI reports whether any PHI rule matches the text. Used by
// export paths to refuse rather than silently ship unscrubbed content.
func (s *Scrubber) ContainsPHI(text string) bool {
	for _, rule := range s.rules {
		if rule.pattern.MatchString(text) {
			return true
		}
	}
	return false
}
