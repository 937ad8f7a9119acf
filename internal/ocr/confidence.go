package ocr

import "regexp"

var (
	confEmailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	confPhoneRe = regexp.MustCompile(`(?m)^\s*(?:(?:\+|00)[\s.-]{0,3})?(?:\d[\s.-]{0,3}){7,15}\s*$`)
	confURLRe   = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
)

// heuristicConfidence scores recognized text by how card-like it looks.
// Contact artifacts (email, phone line, URL) each add weight; enough raw
// content adds a little more.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if confEmailRe.MatchString(txt) {
		score += 0.25
	}
	if confPhoneRe.MatchString(txt) {
		score += 0.25
	}
	if confURLRe.MatchString(txt) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
