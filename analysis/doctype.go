package analysis

import "strings"

// DefaultDocumentType is reported when no indicator matches.
const DefaultDocumentType = "Legal Document"

var documentTypes = []struct {
	name       string
	indicators []string
}{
	{"Employment Contract", []string{"employee", "employer", "salary", "termination", "job", "work"}},
	{"Rental Agreement", []string{"tenant", "landlord", "rent", "lease", "property", "premises"}},
	{"Service Agreement", []string{"service", "provider", "client", "deliverables", "scope", "payment"}},
	{"Partnership Agreement", []string{"partner", "partnership", "profit", "loss", "equity", "business"}},
	{"Purchase Agreement", []string{"buyer", "seller", "purchase", "sale", "goods", "delivery"}},
	{"License Agreement", []string{"license", "licensor", "licensee", "intellectual property", "rights"}},
	{"Non-Disclosure Agreement", []string{"confidential", "non-disclosure", "nda", "proprietary", "secret"}},
	{"Terms of Service", []string{"terms", "service", "user", "website", "platform", "account"}},
	{"Privacy Policy", []string{"privacy", "data", "information", "collect", "personal", "cookies"}},
	{"Loan Agreement", []string{"loan", "lender", "borrower", "interest", "repayment", "collateral"}},
}

// DetectDocumentType guesses the kind of document from indicator words.
// The type with the most distinct indicators present wins; ties go to the
// type listed first.
func DetectDocumentType(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := DefaultDocumentType, 0
	for _, dt := range documentTypes {
		score := 0
		for _, ind := range dt.indicators {
			if strings.Contains(lower, ind) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = dt.name, score
		}
	}
	return best
}
