package intel

import (
	"regexp"
	"strings"

	"github.com/elliotchance/pie/v2"
)

var (
	rePhone   = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{2,5}\)?[-.\s]?)?\d{5,10}(?:[-.\s]?\d{1,5})?`)
	reUpi     = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z]{2,}`)
	reEmail   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	reURL     = regexp.MustCompile(`https?://[^\s,'"<>]+`)
	reAccount = regexp.MustCompile(`\b\d{9,18}\b`)
	reDigit   = regexp.MustCompile(`\D`)
)

// Known UPI payment handles, to tell UPI IDs apart from email addresses.
var upiHandles = map[string]struct{}{
	"ybl": {}, "paytm": {}, "oksbi": {}, "okaxis": {}, "okicici": {},
	"okhdfcbank": {}, "upi": {}, "apl": {}, "freecharge": {}, "ibl": {},
	"sbi": {}, "axisbank": {}, "icici": {}, "hdfcbank": {}, "kotak": {},
	"boi": {}, "pnb": {}, "bob": {}, "cnrb": {}, "unionbank": {}, "idbi": {},
	"rbl": {}, "indus": {}, "federal": {}, "kvb": {}, "idfcfirst": {},
	"dbs": {}, "hsbc": {}, "scb": {}, "citi": {}, "axl": {},
	"jupiteraxis": {}, "fam": {}, "slice": {}, "niyoicici": {}, "ikwik": {},
	"abfspay": {}, "waaxis": {}, "wahdfcbank": {}, "wasbi": {}, "waicici": {},
	"postbank": {}, "aubank": {}, "equitas": {}, "ujjivan": {}, "bandhan": {},
	"fino": {}, "airtel": {}, "jio": {}, "phonepe": {}, "gpay": {},
	"amazonpay": {}, "whatsapp": {}, "mobikwik": {},
}

// Extract scans raw scammer text for intelligence entities. It is the
// regex safety net behind the model's own extraction: anything the model
// misses in the transcript still gets picked up here.
func Extract(texts []string) Intelligence {
	combined := strings.Join(texts, "\n")

	var result Intelligence

	for _, url := range reURL.FindAllString(combined, -1) {
		result.PhishingLinks = appendUnique(result.PhishingLinks, strings.TrimRight(url, ".,;:!?)>]"))
	}

	for _, addr := range reEmail.FindAllString(combined, -1) {
		result.EmailAddresses = appendUnique(result.EmailAddresses, addr)
	}

	for _, addr := range reUpi.FindAllString(combined, -1) {
		if !isLikelyUpi(addr) {
			continue
		}

		// skip truncated prefixes of already captured emails
		truncated := pie.Any(result.EmailAddresses, func(email string) bool {
			return strings.HasPrefix(email, addr) && len(email) > len(addr)
		})
		if !truncated {
			result.UpiIDs = appendUnique(result.UpiIDs, addr)
		}
	}

	phoneDigits := make(map[string]struct{})

	for _, match := range rePhone.FindAllString(combined, -1) {
		candidate := strings.TrimSpace(match)
		if plausiblePhone(candidate) {
			result.PhoneNumbers = appendUnique(result.PhoneNumbers, candidate)
			phoneDigits[digitsOnly(candidate)] = struct{}{}
		}
	}

	// account candidates that already matched as a phone are dropped
	for _, candidate := range reAccount.FindAllString(combined, -1) {
		if _, isPhone := phoneDigits[candidate]; isPhone {
			continue
		}
		if plausibleAccount(candidate) {
			result.BankAccounts = appendUnique(result.BankAccounts, candidate)
		}
	}

	return result
}

// Normalize drops model-reported values that fail plausibility checks, so
// hallucinated entities never reach the accumulated state or the callback.
func Normalize(raw Intelligence) Intelligence {
	return Intelligence{
		BankAccounts:       dedupe(pie.Filter(raw.BankAccounts, plausibleAccount)),
		UpiIDs:             dedupe(pie.Filter(trimAll(raw.UpiIDs), isLikelyUpi)),
		PhishingLinks:      dedupe(pie.Filter(trimAll(raw.PhishingLinks), nonEmpty)),
		PhoneNumbers:       dedupe(pie.Filter(trimAll(raw.PhoneNumbers), plausiblePhone)),
		EmailAddresses:     dedupe(pie.Filter(trimAll(raw.EmailAddresses), reEmail.MatchString)),
		SuspiciousKeywords: dedupe(pie.Filter(trimAll(raw.SuspiciousKeywords), nonEmpty)),
	}
}

func isLikelyUpi(addr string) bool {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return false
	}

	handle := strings.ToLower(parts[1])
	if strings.Contains(handle, ".") {
		return false
	}

	if _, known := upiHandles[handle]; known {
		return true
	}

	return len(handle) <= 6
}

func plausiblePhone(text string) bool {
	n := len(digitsOnly(text))
	return n >= 7 && n <= 15
}

func plausibleAccount(text string) bool {
	digits := digitsOnly(text)
	return digits == strings.TrimSpace(text) && len(digits) >= 9 && len(digits) <= 18
}

func digitsOnly(text string) string {
	return reDigit.ReplaceAllString(text, "")
}

func nonEmpty(text string) bool {
	return text != ""
}

func trimAll(values []string) []string {
	return pie.Map(values, strings.TrimSpace)
}

func dedupe(values []string) []string {
	return union(values, nil)
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}

	return append(values, value)
}
