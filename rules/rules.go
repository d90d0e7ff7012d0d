// Package rules holds the static moderation rule catalog and the text
// classifier that evaluates submissions against it.
//
// Rules are split into two layers: L1 rules name content that is
// prohibited outright and block a submission on the first match; L2
// rules name sensitive-but-allowed content and only attach labels.
// The catalog is built once at startup and never mutated.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/porchlight-social/guardrail/models"
)

// Rule is one pattern rule in the catalog. Patterns are evaluated in
// order and are case-insensitive.
type Rule struct {
	Key      string
	Label    string
	Layer    string
	Patterns []*regexp.Regexp
}

func (r *Rule) Ref() string {
	return fmt.Sprintf("%s/%s", r.Layer, r.Key)
}

// Match reports whether any of the rule's patterns match the text.
func (r *Rule) Match(text string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// RuleMatch identifies one matched rule within a Decision.
type RuleMatch struct {
	Key   string
	Label string
}

// Decision is the transient outcome of classifying one text. It is
// never persisted directly; the pipeline turns it into classification
// and audit rows.
type Decision struct {
	Blocked      bool
	Labels       []string
	MatchedRules []RuleMatch
	ReasonCode   string
	RuleRef      string
}

// Catalog is an immutable ordered set of compiled rules.
type Catalog struct {
	l1 []Rule
	l2 []Rule
}

// NewCatalog compiles the built-in rule tables. Panics on an invalid
// pattern, which can only happen from a bad edit to the tables.
func NewCatalog() *Catalog {
	return &Catalog{
		l1: compileRules(models.LayerOne, hardBlockRules),
		l2: compileRules(models.LayerTwo, softLabelRules),
	}
}

func compileRules(layer string, defs []ruleDef) []Rule {
	out := make([]Rule, 0, len(defs))
	for _, def := range defs {
		r := Rule{
			Key:   def.key,
			Label: def.label,
			Layer: layer,
		}
		for _, pat := range def.patterns {
			r.Patterns = append(r.Patterns, regexp.MustCompile("(?i)"+pat))
		}
		out = append(out, r)
	}
	return out
}

// Rules returns the rules of the given layer, in evaluation order. The
// returned slice must not be modified.
func (c *Catalog) Rules(layer string) []Rule {
	switch layer {
	case models.LayerOne:
		return c.l1
	case models.LayerTwo:
		return c.l2
	}
	return nil
}

// Classify evaluates text against the catalog.
//
// L1 rules run first, in registration order; the first match blocks and
// pre-empts all further evaluation, including every L2 rule. Otherwise
// all L2 rules run and every matching label accumulates. Empty or
// whitespace-only text matches nothing. Classification is deterministic
// and has no side effects.
func (c *Catalog) Classify(text string) Decision {
	if strings.TrimSpace(text) == "" {
		return Decision{}
	}

	for i := range c.l1 {
		r := &c.l1[i]
		if r.Match(text) {
			return Decision{
				Blocked:      true,
				Labels:       []string{r.Label},
				MatchedRules: []RuleMatch{{Key: r.Key, Label: r.Label}},
				ReasonCode:   r.Key,
				RuleRef:      r.Ref(),
			}
		}
	}

	var dec Decision
	seen := make(map[string]bool)
	for i := range c.l2 {
		r := &c.l2[i]
		if !r.Match(text) {
			continue
		}
		dec.MatchedRules = append(dec.MatchedRules, RuleMatch{Key: r.Key, Label: r.Label})
		if !seen[r.Label] {
			seen[r.Label] = true
			dec.Labels = append(dec.Labels, r.Label)
		}
		// first L2 match drives the reason fields, for logging only
		if dec.ReasonCode == "" {
			dec.ReasonCode = r.Key
			dec.RuleRef = r.Ref()
		}
	}
	return dec
}
