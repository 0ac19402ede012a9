package topics

import (
	"testing"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
	"github.com/stretchr/testify/assert"
)

func testClassifier() Classifier {
	return Classifier{
		CommitteeTopics:       map[string]string{"Energy Committee": "energy_market"},
		ExpenditureAreaTopics: map[string]string{"Area 21": "energy_market"},
		PrimaryKeywords:       map[string][]string{"energy_market": {"electricity", "grid tariff"}},
		ConditionalCommittees: map[string]string{"Finance Committee": "energy_market"},
		ExtendedKeywords:      map[string][]string{"energy_market": {"power"}},
	}
}

func TestClassifyCommitteeTakesPrecedence(t *testing.T) {
	c := testClassifier()
	doc := &sourcefmt.ParliamentDocument{ResponsibleCommittee: "Energy Committee", Keywords: []string{"power"}}

	got := c.Classify(doc)
	assert.Equal(t, "energy_market", got.Topic)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
	assert.Equal(t, RuleCommittee, got.Rule)
}

func TestClassifyPrimaryKeyword(t *testing.T) {
	c := testClassifier()
	doc := &sourcefmt.ParliamentDocument{Keywords: []string{"grid tariff"}}

	got := c.Classify(doc)
	assert.Equal(t, "energy_market", got.Topic)
	assert.Equal(t, ConfidenceMedium, got.Confidence)
	assert.Equal(t, RulePrimaryKeyword, got.Rule)
}

func TestClassifyConditionalCommitteeRequiresKeyword(t *testing.T) {
	c := testClassifier()

	withKeyword := &sourcefmt.ParliamentDocument{ResponsibleCommittee: "Finance Committee", Keywords: []string{"electricity"}}
	got := c.Classify(withKeyword)
	assert.Equal(t, RuleConditionalCommittee, got.Rule)

	withoutKeyword := &sourcefmt.ParliamentDocument{ResponsibleCommittee: "Finance Committee", Keywords: []string{"unrelated"}}
	got2 := c.Classify(withoutKeyword)
	assert.Equal(t, "unclassified", got2.Topic)
}

func TestClassifyExtendedKeywordRequiresSearchOrigin(t *testing.T) {
	c := testClassifier()

	withOrigin := &sourcefmt.ParliamentDocument{SearchOrigin: true, Keywords: []string{"power"}}
	got := c.Classify(withOrigin)
	assert.Equal(t, "energy_market", got.Topic)
	assert.True(t, got.WeakMatch)
	assert.Equal(t, RuleExtendedKeyword, got.Rule)

	withoutOrigin := &sourcefmt.ParliamentDocument{SearchOrigin: false, Keywords: []string{"power"}}
	got2 := c.Classify(withoutOrigin)
	assert.Equal(t, "unclassified", got2.Topic)
}

func TestClassifyUnclassifiedFallback(t *testing.T) {
	c := testClassifier()
	doc := &sourcefmt.ParliamentDocument{}

	got := c.Classify(doc)
	assert.Equal(t, "unclassified", got.Topic)
	assert.True(t, got.WeakMatch)
}
