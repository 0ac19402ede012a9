// Package linker connects parliamentary speeches to the decision nodes
// (documents, motions, statutes) they address, using an ordered set of
// rules from most to least certain. A statement links to a given node
// through at most one rule — the strongest one that fires — and the
// resulting link_id is a deterministic function of the statement,
// node, and rule, so relinking the same corpus always reproduces the
// same link set.
package linker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// Rule names, in locked precedence order (strongest first).
const (
	RuleExplicitReference   = "explicit_reference"
	RuleDocumentIDPattern   = "document_id_pattern"
	RuleShortIdentifier     = "short_identifier_pattern"
	RuleKeywordCooccurrence = "keyword_cooccurrence"
)

// DecisionNode is one linkable unit: a document, motion, or statute.
type DecisionNode struct {
	ID         string
	DocumentID string
	ShortID    string
	Keywords   []string
}

// Link is one statement-to-decision link.
type Link struct {
	LinkID         string `json:"link_id"`
	StatementID    string `json:"statement_id"`
	DecisionNodeID string `json:"decision_node_id"`
	Rule           string `json:"rule"`
}

// Linker holds the locked pattern and cap configuration.
type Linker struct {
	// DocumentIDPattern extracts candidate document ids from free text.
	DocumentIDPattern *regexp.Regexp
	// ShortIDPattern extracts candidate short identifiers (e.g. bill
	// shorthand) from free text.
	ShortIDPattern *regexp.Regexp
	// StatuteNumberPattern recognizes bare statute numbers in text, but
	// is never used to create a link: a bare number is too ambiguous a
	// signal on its own, so this field exists only so callers can
	// surface "statute number seen but not linked" diagnostics.
	StatuteNumberPattern *regexp.Regexp
	Stopwords            map[string]struct{}
	MinKeywordLength     int
	MinSharedTokens      int
	MaxLinksPerStatement int
}

// LinkStatement applies the rule set to one speech against the full
// candidate node set and returns its links, capped at
// MaxLinksPerStatement and ordered by rule precedence (strongest first),
// then by DecisionNodeID, for determinism.
func (l Linker) LinkStatement(speech *sourcefmt.Speech, nodes []DecisionNode) []Link {
	referenced := make(map[string]struct{}, len(speech.ReferencedDocs))
	for _, id := range speech.ReferencedDocs {
		referenced[id] = struct{}{}
	}

	type candidate struct {
		node DecisionNode
		rule string
	}

	var candidates []candidate

	for _, node := range nodes {
		if rule, ok := l.bestRule(speech.Text, referenced, node); ok {
			candidates = append(candidates, candidate{node: node, rule: rule})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].node.ID < candidates[j].node.ID })

	// Higher-precedence rules must survive truncation ahead of weaker
	// ones, so stable-sort by rule rank before capping.
	sort.SliceStable(candidates, func(i, j int) bool { return ruleRank(candidates[i].rule) < ruleRank(candidates[j].rule) })

	if l.MaxLinksPerStatement > 0 && len(candidates) > l.MaxLinksPerStatement {
		candidates = candidates[:l.MaxLinksPerStatement]
	}

	links := make([]Link, 0, len(candidates))
	for _, c := range candidates {
		links = append(links, Link{
			LinkID:         linkID(speech.StatementID, c.node.ID, c.rule),
			StatementID:    speech.StatementID,
			DecisionNodeID: c.node.ID,
			Rule:           c.rule,
		})
	}

	return links
}

func ruleRank(rule string) int {
	switch rule {
	case RuleExplicitReference:
		return 0
	case RuleDocumentIDPattern:
		return 1
	case RuleShortIdentifier:
		return 2
	default:
		return 3
	}
}

// bestRule returns the strongest rule that links node to this
// statement, if any.
func (l Linker) bestRule(text string, referenced map[string]struct{}, node DecisionNode) (string, bool) {
	if node.DocumentID != "" {
		if _, ok := referenced[node.DocumentID]; ok {
			return RuleExplicitReference, true
		}
	}

	if l.DocumentIDPattern != nil && node.DocumentID != "" {
		for _, m := range l.DocumentIDPattern.FindAllString(text, -1) {
			if m == node.DocumentID {
				return RuleDocumentIDPattern, true
			}
		}
	}

	if l.ShortIDPattern != nil && node.ShortID != "" {
		for _, m := range l.ShortIDPattern.FindAllString(text, -1) {
			if m == node.ShortID {
				return RuleShortIdentifier, true
			}
		}
	}

	if l.keywordOverlap(text, node.Keywords) {
		return RuleKeywordCooccurrence, true
	}

	return "", false
}

// keywordOverlap reports whether text shares at least MinSharedTokens
// keywords with the node's keyword list, after dropping stopwords and
// tokens shorter than MinKeywordLength. A MinSharedTokens of zero is
// treated as one: some overlap is always required.
func (l Linker) keywordOverlap(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	tokens := tokenize(text)
	tokenSet := make(map[string]struct{}, len(tokens))

	for _, tok := range tokens {
		if len(tok) < l.MinKeywordLength {
			continue
		}

		if _, stop := l.Stopwords[tok]; stop {
			continue
		}

		tokenSet[tok] = struct{}{}
	}

	required := l.MinSharedTokens
	if required < 1 {
		required = 1
	}

	shared := 0

	for _, kw := range keywords {
		if _, ok := tokenSet[strings.ToLower(kw)]; ok {
			shared++
		}
	}

	return shared >= required
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// linkID deterministically derives a link's id from the triple that
// defines it, truncated to 16 hex chars (64 bits) — enough to make
// accidental collision implausible while keeping ids short.
func linkID(statementID, nodeID, rule string) string {
	sum := sha256.Sum256([]byte(statementID + "|" + nodeID + "|" + rule))

	return hex.EncodeToString(sum[:])[:16]
}
