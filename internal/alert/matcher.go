// Package alert turns raw per-frame detections into debounced, rate-limited
// alerts according to configurable rules.
package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
)

// Rule describes when detections of one class should raise an alert.
type Rule struct {
	ID            string        // Unique identifier for the rule
	Name          string        // Human-readable name
	Label         string        // Detector class label the rule watches
	MinConfidence float64       // Minimum detection confidence
	MinFrames     int           // Consecutive frames required before alerting
	Cooldown      time.Duration // Minimum gap between alerts from this rule
}

// Alert is a rule firing on a concrete detection.
type Alert struct {
	RuleID     string             `json:"rule_id"`
	RuleName   string             `json:"rule_name"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Detection  detector.Detection `json:"detection"`
	At         time.Time          `json:"at"`
}

// Matcher tracks detections across frames and emits alerts for satisfied rules.
type Matcher struct {
	rules     []*Rule
	hits      map[string]int
	lastFired map[string]time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewMatcher creates a new Matcher instance with no rules.
func NewMatcher() *Matcher {
	return &Matcher{
		rules:     make([]*Rule, 0),
		hits:      make(map[string]int),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// AddRule adds an alert rule to the matcher.
func (m *Matcher) AddRule(r *Rule) {
	if r == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
}

// RemoveRule removes a rule by its ID.
func (m *Matcher) RemoveRule(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			delete(m.hits, id)
			delete(m.lastFired, id)
			return
		}
	}
}

// Rules returns the currently registered rules.
func (m *Matcher) Rules() []*Rule {
	m.mu.Lock()
	defer m.mu.Unlock()

	rules := make([]*Rule, len(m.rules))
	copy(rules, m.rules)
	return rules
}

// SetRules replaces all registered rules and clears tracking state.
func (m *Matcher) SetRules(rules []*Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			m.rules = append(m.rules, r)
		}
	}
	m.hits = make(map[string]int)
	m.lastFired = make(map[string]time.Time)
}

// Observe feeds one frame's detections into the matcher and returns the
// alerts raised by this frame, sorted by confidence in descending order.
//
// A rule fires when its label was seen with sufficient confidence in
// MinFrames consecutive observations and the rule's cooldown has lapsed.
// The consecutive counter resets on every frame where the rule's label is
// absent, and after the rule fires to prevent repeated triggers.
func (m *Matcher) Observe(detections []detector.Detection) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	var alerts []Alert
	for _, rule := range m.rules {
		best, ok := bestFor(rule, detections)
		if !ok {
			m.hits[rule.ID] = 0
			continue
		}

		m.hits[rule.ID]++

		minFrames := rule.MinFrames
		if minFrames < 1 {
			minFrames = 1
		}
		if m.hits[rule.ID] < minFrames {
			continue
		}

		if last, fired := m.lastFired[rule.ID]; fired && now.Sub(last) < rule.Cooldown {
			continue
		}

		alerts = append(alerts, Alert{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			Label:      rule.Label,
			Confidence: best.Confidence,
			Detection:  best,
			At:         now,
		})

		m.lastFired[rule.ID] = now
		m.hits[rule.ID] = 0
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Confidence > alerts[j].Confidence
	})

	return alerts
}

// Reset clears all consecutive-frame counters, e.g. when the pipeline drops
// back to idle mode.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = make(map[string]int)
}

// bestFor returns the highest-confidence detection satisfying the rule.
func bestFor(rule *Rule, detections []detector.Detection) (detector.Detection, bool) {
	var best detector.Detection
	found := false

	for _, det := range detections {
		if det.Label != rule.Label || det.Confidence < rule.MinConfidence {
			continue
		}
		if !found || det.Confidence > best.Confidence {
			best = det
			found = true
		}
	}

	return best, found
}

// DefaultRules returns the rules seeded on first run: fire and smoke alert
// quickly, humans are reported with a longer cooldown.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:            "default-fire",
			Name:          "Fire",
			Label:         detector.LabelFire,
			MinConfidence: 0.5,
			MinFrames:     3,
			Cooldown:      30 * time.Second,
		},
		{
			ID:            "default-smoke",
			Name:          "Smoke",
			Label:         detector.LabelSmoke,
			MinConfidence: 0.45,
			MinFrames:     3,
			Cooldown:      30 * time.Second,
		},
		{
			ID:            "default-human",
			Name:          "Human",
			Label:         detector.LabelHuman,
			MinConfidence: 0.5,
			MinFrames:     3,
			Cooldown:      60 * time.Second,
		},
	}
}
