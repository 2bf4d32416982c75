// Package triage maps a set of reported symptoms to a likely condition and the
// specialty that should see the patient. It is a fixed rule table, not a model.
package triage

import (
	"sort"
	"strings"
)

// TableVersion identifies the rule table below. Bump it whenever an entry changes.
const TableVersion = "2024.1"

// MatchKind tells how a Result was produced.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchPartial  MatchKind = "partial"
	MatchFallback MatchKind = "fallback"
)

type Result struct {
	Condition  string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	Specialty  string    `json:"specialty"`
	Match      MatchKind `json:"match"`
}

type rule struct {
	key        string
	symptoms   []string
	condition  string
	confidence float64
	specialty  string
}

func newRule(key, condition string, confidence float64, specialty string) rule {
	return rule{
		key:        key,
		symptoms:   strings.Split(key, ","),
		condition:  condition,
		confidence: confidence,
		specialty:  specialty,
	}
}

// Order matters: partial-match ties resolve to the earliest rule.
// "fever,cough", "sore throat,fever" and "rash,itching" are not in sorted
// order, so they are only reachable through partial matching, where a full
// overlap still selects them.
var rules = []rule{
	newRule("fever,cough", "Flu", 0.85, "General Physician"),
	newRule("headache,nausea", "Migraine", 0.75, "Neurologist"),
	newRule("chest pain,shortness of breath", "Heart Disease", 0.9, "Cardiologist"),
	newRule("fever,headache", "Dengue", 0.8, "General Physician"),
	newRule("sore throat,fever", "Strep Throat", 0.7, "ENT Specialist"),
	newRule("fatigue,muscle pain", "COVID-19", 0.88, "General Physician"),
	newRule("abdominal pain,nausea", "Gastritis", 0.7, "Gastroenterologist"),
	newRule("joint pain,swelling", "Arthritis", 0.75, "Rheumatologist"),
	newRule("rash,itching", "Allergy", 0.65, "Dermatologist"),
	newRule("back pain", "Muscle Strain", 0.6, "Orthopedist"),
}

var byKey = func() map[string]rule {
	m := make(map[string]rule, len(rules))
	for _, r := range rules {
		m[r.key] = r
	}
	return m
}()

// Fallback is returned when no rule shares a symptom with the input.
var Fallback = Result{
	Condition:  "Unknown Disease",
	Confidence: 0.5,
	Specialty:  "General Physician",
	Match:      MatchFallback,
}

// Advise looks the symptoms up in the rule table. The input is trimmed and
// lowercased; blank entries are ignored. An exact hit on the sorted, joined
// key wins outright. Otherwise each rule is scored by the share of its
// symptoms present in the input and the first strictly highest score wins.
func Advise(symptoms []string) Result {
	normalized := normalize(symptoms)

	sorted := append([]string(nil), normalized...)
	sort.Strings(sorted)
	if r, ok := byKey[strings.Join(sorted, ",")]; ok {
		return r.result(MatchExact)
	}

	present := make(map[string]struct{}, len(normalized))
	for _, s := range normalized {
		present[s] = struct{}{}
	}

	var (
		best      *rule
		bestScore float64
	)
	for i := range rules {
		score := rules[i].score(present)
		if score > bestScore {
			best = &rules[i]
			bestScore = score
		}
	}

	if best == nil {
		return Fallback
	}
	return best.result(MatchPartial)
}

// ParseSymptoms splits the free-text "fever, cough" style input of the chat box.
func ParseSymptoms(input string) []string {
	return normalize(strings.Split(input, ","))
}

func normalize(symptoms []string) []string {
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *rule) score(present map[string]struct{}) float64 {
	hits := 0
	for _, s := range r.symptoms {
		if _, ok := present[s]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(r.symptoms))
}

func (r *rule) result(kind MatchKind) Result {
	return Result{
		Condition:  r.condition,
		Confidence: r.confidence,
		Specialty:  r.specialty,
		Match:      kind,
	}
}
