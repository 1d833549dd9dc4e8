package pipeline

import (
	"strings"
	"time"

	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/rules"
)

// Score component bounds and the priority label thresholds.
const (
	rarityCap = 35

	priorityCriticalMin = 75
	priorityHighMin     = 55
	priorityMediumMin   = 35
)

// Scorer computes the 0-100 priority score for filtered items. It is a
// pure function of the item and the rule set; the same item always
// scores the same on the same day.
type Scorer struct {
	rules *rules.Rules
}

// NewScorer creates a Scorer over the given rule set.
func NewScorer(r *rules.Rules) *Scorer {
	return &Scorer{rules: r}
}

// ScoreItem builds a GoodsRecord from a filtered item, attaching the
// three score components, their sum, and the derived priority label.
func (s *Scorer) ScoreItem(item models.FilteredItem) models.GoodsRecord {
	fresh := s.scoreFreshness(item.Date)
	rarity := s.scoreRarity(item.Content)
	reliability := s.scoreReliability(item)
	total := fresh + rarity + reliability

	return models.GoodsRecord{
		Title:            item.Title,
		Content:          item.Content,
		Author:           item.Author,
		Date:             item.Date,
		SourceURL:        item.SourceURL,
		SourceKind:       item.SourceKind,
		Category:         item.Category,
		TrustTier:        item.TrustTier,
		ImageURL:         item.ImageURL,
		FreshnessScore:   fresh,
		RarityScore:      rarity,
		ReliabilityScore: reliability,
		TotalScore:       total,
		PriorityLabel:    PriorityLabel(total),
		CreatedAt:        time.Now(),
	}
}

// scoreFreshness grades the item's age: 0-40 points, dropping in steps
// at one week, one month, three months, and six months. An unknown date
// scores a flat 5.
func (s *Scorer) scoreFreshness(dateStr string) int {
	t, ok := parseItemDate(dateStr)
	if !ok {
		return 5
	}
	age := int(time.Since(t).Hours() / 24)
	switch {
	case age <= 7:
		return 40
	case age <= 30:
		return 30
	case age <= 90:
		return 20
	case age <= 180:
		return 10
	}
	return 3
}

// scoreRarity awards 5 points per distinct high-rarity keyword and 2
// per distinct medium-rarity keyword found in the content, capped at
// 35. Repeats of the same keyword never count twice.
func (s *Scorer) scoreRarity(content string) int {
	lower := strings.ToLower(content)
	score := 0
	for _, kw := range s.rules.RarityHighKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 5
		}
	}
	for _, kw := range s.rules.RarityMedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 2
		}
	}
	if score > rarityCap {
		return rarityCap
	}
	return score
}

// scoreReliability grades the source: 25/15/5 for feed items by domain
// allowlist, 20/8 for social items by account name.
func (s *Scorer) scoreReliability(item models.FilteredItem) int {
	switch item.SourceKind {
	case models.SourceFeed:
		lower := strings.ToLower(item.SourceURL)
		for _, d := range s.rules.TrustHighDomains {
			if strings.Contains(lower, d) {
				return 25
			}
		}
		for _, d := range s.rules.TrustMedDomains {
			if strings.Contains(lower, d) {
				return 15
			}
		}
		return 5
	case models.SourceSocial:
		if containsAny(strings.ToLower(item.Author), s.rules.OfficialAccountTerms) {
			return 20
		}
		return 8
	}
	return 5
}

// PriorityLabel maps a total score onto the four-level urgency tag.
func PriorityLabel(total int) string {
	switch {
	case total >= priorityCriticalMin:
		return models.PriorityCritical
	case total >= priorityHighMin:
		return models.PriorityHigh
	case total >= priorityMediumMin:
		return models.PriorityMedium
	}
	return models.PriorityLow
}
