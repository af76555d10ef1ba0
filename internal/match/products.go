// Package match compares what a seller said on a call, and what they
// declared in the seller directory, against registered records.
package match

import "strings"

// ProductPair links a product mentioned on a call to the registered
// product it matched.
type ProductPair struct {
	Conversation string `json:"conversation"`
	Registered   string `json:"registered"`
}

// ProductMatch is the outcome of MatchProducts. Every conversation product
// lands in exactly one of the two lists.
type ProductMatch struct {
	Matches    []ProductPair `json:"matches"`
	NonMatches []string      `json:"non_matches"`
}

// MatchProducts pairs each conversation product with the first registered
// product where either name contains the other, ignoring case. Original
// casing is kept in the result. Empty names never match.
func MatchProducts(conversation, registered []string) ProductMatch {
	res := ProductMatch{Matches: []ProductPair{}, NonMatches: []string{}}

	lowered := make([]string, len(registered))
	for i, r := range registered {
		lowered[i] = strings.ToLower(r)
	}

	for _, c := range conversation {
		lc := strings.ToLower(c)
		hit := -1
		for i, lr := range lowered {
			if lc == "" || lr == "" {
				continue
			}
			if strings.Contains(lr, lc) || strings.Contains(lc, lr) {
				hit = i
				break
			}
		}
		if hit < 0 {
			res.NonMatches = append(res.NonMatches, c)
			continue
		}
		res.Matches = append(res.Matches, ProductPair{Conversation: c, Registered: registered[hit]})
	}
	return res
}
