package classify

import (
	"regexp"
	"strings"
)

// InjectionResult reports prompt-injection patterns found in clause text.
// Risk is "none", "medium" (1-2 matches) or "high" (3 or more).
type InjectionResult struct {
	Risk    string   `json:"risk"`
	Matches []string `json:"matches,omitempty"`
}

var injectionPatterns = []*regexp.Regexp{
	// instruction override
	regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	// prompt extraction
	regexp.MustCompile(`(?i)(reveal|show|print|output|display|repeat)\s+(your\s+)?(system\s+)?(prompt|instructions?)`),
	// verdict steering aimed at the classifier
	regexp.MustCompile(`(?i)(classify|label|rate|mark)\s+(this|the following)\s+(clause|text|section)\s+as\s+(standard|green|low)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(DAN|evil|unrestricted|unfiltered|jailbroken)`),
	regexp.MustCompile(`(?i)enter\s+(DAN|developer|god|sudo|admin)\s+mode`),
	// chat template delimiters
	regexp.MustCompile(`(?i)<\|?(system|endof(text|turn)|im_start|im_end)\|?>`),
	regexp.MustCompile(`(?i)\[INST\]|\[/INST\]|\[SYS(TEM)?\]`),
}

// ScanInjection looks for prompt-injection patterns. Flagged clauses are
// still classified; the result travels with the clause so a reviewer can
// weigh the verdict.
func ScanInjection(text string) *InjectionResult {
	res := &InjectionResult{Risk: "none"}
	for _, pat := range injectionPatterns {
		for _, m := range pat.FindAllString(text, 3) {
			res.Matches = append(res.Matches, strings.TrimSpace(m))
		}
	}
	switch {
	case len(res.Matches) >= 3:
		res.Risk = "high"
	case len(res.Matches) >= 1:
		res.Risk = "medium"
	}
	return res
}
