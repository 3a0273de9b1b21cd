package threat

import (
	"context"
	"strings"
)

// ruleFunc is a function that inspects a listing's name and pitch and
// returns zero or more Findings if its rule matches.
type ruleFunc func(name, pitch string) []Finding

// RuleBasedScorer is the default Scorer implementation. It runs a fixed set of
// pattern-matching rules against the listing text and accumulates a score.
type RuleBasedScorer struct {
	rules []ruleFunc
}

// NewRuleBasedScorer returns a RuleBasedScorer loaded with the default rule set.
func NewRuleBasedScorer() *RuleBasedScorer {
	s := &RuleBasedScorer{}
	s.rules = []ruleFunc{
		rulePromptInjection,
		rulePitchPhrases,
		ruleBaitPhrases,
		ruleNameKeywords,
	}
	return s
}

// Score implements Scorer.
func (s *RuleBasedScorer) Score(_ context.Context, name, pitch string) (*Report, error) {
	var findings []Finding
	for _, r := range s.rules {
		findings = append(findings, r(name, pitch)...)
	}

	total := 0
	for _, f := range findings {
		total += int(f.Confidence * 25)
	}
	if total > 100 {
		total = 100
	}

	if findings == nil {
		findings = []Finding{}
	}

	return &Report{
		Score:    total,
		Severity: severityLabel(total),
		Findings: findings,
		Rejected: total >= 85,
	}, nil
}

// ── Rules ─────────────────────────────────────────────────────────────────────

// promptInjectionPhrases are substrings that suggest the bot's output is
// crafted to hijack the buyer-side inspection agent rather than inform it.
// Offer payloads are rendered verbatim into that agent's prompt, so this is
// the market's equivalent of input sanitisation.
var promptInjectionPhrases = []string{
	"ignore previous instructions", "ignore the above", "disregard your instructions",
	"you are now", "system prompt", "purchase all offers", "must choose this offer",
	"call the decide tool with",
}

func rulePromptInjection(_, pitch string) []Finding {
	var findings []Finding
	lower := strings.ToLower(pitch)
	for _, phrase := range promptInjectionPhrases {
		if strings.Contains(lower, phrase) {
			findings = append(findings, Finding{
				Rule:        "prompt_injection",
				Description: "Listing text contains agent-steering phrase: " + phrase,
				Confidence:  0.9,
			})
		}
	}
	return findings
}

// suspiciousPitchPhrases are substrings in the pitch that suggest the bot
// is selling harmful capability rather than information.
var suspiciousPitchPhrases = []string{
	"exfiltrat", "bypass", "escalat", "exploit", "malware",
	"arbitrary shell", "arbitrary command", "remote code",
	"backdoor", "rootkit", "keylog", "stolen credential",
}

func rulePitchPhrases(_, pitch string) []Finding {
	var findings []Finding
	lower := strings.ToLower(pitch)
	for _, phrase := range suspiciousPitchPhrases {
		if strings.Contains(lower, phrase) {
			findings = append(findings, Finding{
				Rule:        "pitch_phrase",
				Description: "Listing text contains suspicious phrase: " + phrase,
				Confidence:  0.8,
			})
		}
	}
	return findings
}

// baitPhrases are classic too-good-to-be-true hooks in a priced info listing.
var baitPhrases = []string{
	"guaranteed profit", "risk free", "risk-free", "double your balance",
	"free money", "act now", "limited time only", "100% accurate",
}

func ruleBaitPhrases(_, pitch string) []Finding {
	var findings []Finding
	lower := strings.ToLower(pitch)
	for _, phrase := range baitPhrases {
		if strings.Contains(lower, phrase) {
			findings = append(findings, Finding{
				Rule:        "bait_phrase",
				Description: "Listing text contains bait phrase: " + phrase,
				Confidence:  0.5,
			})
		}
	}
	return findings
}

// suspiciousNameKeywords are terms in the bot display name that suggest the
// bot is impersonating the market operator or another privileged role.
var suspiciousNameKeywords = []string{
	"market admin", "market system", "official market", "moderator",
	"support team", "balance service", "escrow service",
}

func ruleNameKeywords(name, _ string) []Finding {
	var findings []Finding
	lower := strings.ToLower(name)
	for _, kw := range suspiciousNameKeywords {
		if strings.Contains(lower, kw) {
			findings = append(findings, Finding{
				Rule:        "name_keyword",
				Description: "Display name contains impersonation keyword: " + kw,
				Confidence:  0.6,
			})
		}
	}
	return findings
}
