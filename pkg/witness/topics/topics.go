// Package topics classifies parliamentary documents against a locked
// set of precedence rules, cheapest and most specific signal first, so
// that classification is deterministic and reproducible given the same
// document and the same rule set.
package topics

import (
	"sort"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// Confidence bands, ordered strongest to weakest.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Rule names, recorded on the Classification so a reviewer can see
// which precedence level fired.
const (
	RuleCommittee            = "committee_match"
	RuleExpenditureArea      = "expenditure_area_match"
	RulePrimaryKeyword       = "primary_keyword"
	RuleConditionalCommittee = "conditional_committee_keyword"
	RuleExtendedKeyword      = "extended_keyword_with_search_origin"
	RuleSearchOrigin         = "search_origin_marker"
	RuleUnclassified         = "unclassified"
)

// Classification is the outcome of classifying one document.
type Classification struct {
	Topic      string
	Confidence string
	Rule       string
	WeakMatch  bool
}

// Classifier holds the locked rule tables. Zero-value Classifier has no
// rules and classifies everything as unclassified.
type Classifier struct {
	// CommitteeTopics maps a document's exact ResponsibleCommittee to a
	// topic with high confidence.
	CommitteeTopics map[string]string
	// ExpenditureAreaTopics maps ExpenditureArea to a topic with high
	// confidence.
	ExpenditureAreaTopics map[string]string
	// PrimaryKeywords maps topic -> keywords that, alone, are a medium
	// confidence signal.
	PrimaryKeywords map[string][]string
	// ConditionalCommittees maps a committee to a candidate topic that
	// only confirms when a PrimaryKeywords hit for that topic also
	// exists, at medium confidence.
	ConditionalCommittees map[string]string
	// ExtendedKeywords maps topic -> keywords that are too generic to
	// trust alone: they only classify a document when SearchOrigin is
	// also true, i.e. the document was already surfaced by this
	// system's own targeted search for the topic, a distinct
	// corroborating signal from the text match itself.
	ExtendedKeywords map[string][]string
}

// Classify applies the rules in locked precedence order and returns
// the first that fires.
func (c Classifier) Classify(doc *sourcefmt.ParliamentDocument) Classification {
	if topic, ok := c.CommitteeTopics[doc.ResponsibleCommittee]; ok {
		return Classification{Topic: topic, Confidence: ConfidenceHigh, Rule: RuleCommittee}
	}

	if topic, ok := c.ExpenditureAreaTopics[doc.ExpenditureArea]; ok {
		return Classification{Topic: topic, Confidence: ConfidenceHigh, Rule: RuleExpenditureArea}
	}

	if candidate, ok := c.ConditionalCommittees[doc.ResponsibleCommittee]; ok {
		if hasKeywordForTopic(c.PrimaryKeywords, candidate, doc.Keywords) {
			return Classification{Topic: candidate, Confidence: ConfidenceMedium, Rule: RuleConditionalCommittee}
		}
	}

	if topic, ok := firstKeywordMatch(c.PrimaryKeywords, doc.Keywords); ok {
		return Classification{Topic: topic, Confidence: ConfidenceMedium, Rule: RulePrimaryKeyword}
	}

	if doc.SearchOrigin {
		if topic, ok := firstKeywordMatch(c.ExtendedKeywords, doc.Keywords); ok {
			return Classification{Topic: topic, Confidence: ConfidenceLow, Rule: RuleExtendedKeyword, WeakMatch: true}
		}

		return Classification{Topic: "unclassified", Confidence: ConfidenceLow, Rule: RuleSearchOrigin, WeakMatch: true}
	}

	return Classification{Topic: "unclassified", Confidence: ConfidenceLow, Rule: RuleUnclassified, WeakMatch: true}
}

// firstKeywordMatch scans table's topics in sorted key order and
// returns the first topic whose keyword list intersects docKeywords.
func firstKeywordMatch(table map[string][]string, docKeywords []string) (string, bool) {
	for _, topic := range sortedKeys(table) {
		if hasKeywordForTopic(table, topic, docKeywords) {
			return topic, true
		}
	}

	return "", false
}

func hasKeywordForTopic(table map[string][]string, topic string, docKeywords []string) bool {
	want := table[topic]
	if len(want) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(want))
	for _, k := range want {
		set[k] = struct{}{}
	}

	for _, k := range docKeywords {
		if _, ok := set[k]; ok {
			return true
		}
	}

	return false
}

func sortedKeys(table map[string][]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
