package service

import (
	"math"
	"strings"
	"time"

	"github.com/spec-kit/matchmaking-service/internal/domain"
)

// Factor weights for the compatibility score.
const (
	weightAge       = 20
	weightReligion  = 25
	weightEducation = 20
	weightLocation  = 15
	weightCaste     = 20
	// baseFactorWeight normalises the score to a percentage per factor considered.
	baseFactorWeight = 20
)

// Compatibility scores a member against someone's partner preferences.
type Compatibility struct {
	Score      int      `json:"score"`
	Percentage int      `json:"percentage"`
	Factors    int      `json:"factors"`
	Matched    []string `json:"matched"`
}

// ScoreCompatibility returns nil when prefs set no comparable factor.
func ScoreCompatibility(prefs *domain.PartnerPreferences, target domain.Account, now time.Time) *Compatibility {
	if prefs == nil {
		return nil
	}
	c := &Compatibility{Matched: []string{}}
	consider := func(name string, weight int, match bool) {
		c.Factors++
		if match {
			c.Score += weight
			c.Matched = append(c.Matched, name)
		}
	}

	if prefs.MinAge != nil || prefs.MaxAge != nil {
		age := domain.AgeAt(target.BirthDate, now)
		ok := (prefs.MinAge == nil || age >= *prefs.MinAge) && (prefs.MaxAge == nil || age <= *prefs.MaxAge)
		consider("age", weightAge, ok)
	}
	if prefs.Religion != "" {
		consider("religion", weightReligion, strings.EqualFold(prefs.Religion, target.Religion))
	}
	if prefs.Education != "" {
		consider("education", weightEducation, strings.EqualFold(prefs.Education, target.Education))
	}
	if prefs.Location != "" {
		loc := strings.ToLower(prefs.Location)
		ok := strings.Contains(strings.ToLower(target.City), loc) || strings.Contains(strings.ToLower(target.Province), loc)
		consider("location", weightLocation, ok)
	}
	if prefs.Caste != "" {
		consider("caste", weightCaste, strings.EqualFold(prefs.Caste, target.Caste))
	}

	if c.Factors == 0 {
		return nil
	}
	pct := int(math.Round(float64(c.Score) / float64(c.Factors*baseFactorWeight) * 100))
	if pct > 100 {
		pct = 100
	}
	c.Percentage = pct
	return c
}
