package intel

// Intelligence holds the structured entities extracted from scammer text.
// Lists are deduplicated and keep first-seen order.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UpiIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	EmailAddresses     []string `json:"emailAddresses"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge returns the set union of both values. The result never shrinks
// relative to either argument.
func Merge(a, b Intelligence) Intelligence {
	return Intelligence{
		BankAccounts:       union(a.BankAccounts, b.BankAccounts),
		UpiIDs:             union(a.UpiIDs, b.UpiIDs),
		PhishingLinks:      union(a.PhishingLinks, b.PhishingLinks),
		PhoneNumbers:       union(a.PhoneNumbers, b.PhoneNumbers),
		EmailAddresses:     union(a.EmailAddresses, b.EmailAddresses),
		SuspiciousKeywords: union(a.SuspiciousKeywords, b.SuspiciousKeywords),
	}
}

func (i Intelligence) Count() int {
	return len(i.BankAccounts) + len(i.UpiIDs) + len(i.PhishingLinks) +
		len(i.PhoneNumbers) + len(i.EmailAddresses) + len(i.SuspiciousKeywords)
}

func (i Intelligence) Empty() bool {
	return i.Count() == 0
}

func (i Intelligence) Clone() Intelligence {
	return Merge(i, Intelligence{})
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, value := range list {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			result = append(result, value)
		}
	}

	return result
}
