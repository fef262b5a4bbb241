// Package normalizer implements the record cleaning pass: per-field rules,
// mixed-format date parsing, cross-field chronology checks, deduplication
// and imputation.
package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"recnorm/internal/config"
	"recnorm/internal/models"

	"golang.org/x/net/html"
)

// Default missing markers used when the config lists none. Matching is
// case-insensitive against the raw token before any rule mutates it.
var defaultMissingMarkers = []string{"na", "n/a", "-", "--", "?", "null", "none", "missing"}

// smallNumbers maps spelled-out numerics the intwords rule accepts.
var smallNumbers = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20,
}

type vocabulary struct {
	lookup       map[string]string
	allow        map[string]bool
	allowNumeric bool
}

// FieldNormalizer applies one configured rule to one raw value. Rules are
// pure: the same raw token always yields the same value.
type FieldNormalizer struct {
	vocabs      map[string]*vocabulary
	markers     map[string]bool
	dates       *DateParser
	yearsRe     *regexp.Regexp
	digitsRe    *regexp.Regexp
	truncatedRe *regexp.Regexp
}

// NewFieldNormalizer builds the rule engine from the pipeline config.
func NewFieldNormalizer(cfg *config.PipelineConfig) (*FieldNormalizer, error) {
	markers := make(map[string]bool)

	source := cfg.MissingMarkers
	if len(source) == 0 {
		source = defaultMissingMarkers
	}

	for _, m := range source {
		markers[strings.ToLower(strings.TrimSpace(m))] = true
	}

	vocabs := make(map[string]*vocabulary, len(cfg.Vocabularies))

	for name, vc := range cfg.Vocabularies {
		v := &vocabulary{
			lookup:       make(map[string]string),
			allow:        make(map[string]bool, len(vc.Allow)),
			allowNumeric: vc.AllowNumeric,
		}

		for canonical, synonyms := range vc.Labels {
			v.lookup[foldToken(canonical)] = canonical
			for _, syn := range synonyms {
				folded := foldToken(syn)
				if existing, ok := v.lookup[folded]; ok && existing != canonical {
					return nil, fmt.Errorf("vocabulary %q: synonym %q maps to both %q and %q",
						name, syn, existing, canonical)
				}

				v.lookup[folded] = canonical
			}
		}

		for _, a := range vc.Allow {
			v.allow[foldToken(a)] = true
		}

		vocabs[name] = v
	}

	return &FieldNormalizer{
		vocabs:      vocabs,
		markers:     markers,
		dates:       NewDateParser(),
		yearsRe:     regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\b`),
		digitsRe:    regexp.MustCompile(`-?\d+`),
		truncatedRe: regexp.MustCompile(`\s*(?:\[\+\d+\s+chars\]|\.{3}|…)\s*$`),
	}, nil
}

// Apply runs the rule for one field. present is false when the field was
// absent from the source row. The missing-marker check runs on the raw
// token before any folding, so markers survive intact into the
// placeholder-missing state.
func (n *FieldNormalizer) Apply(rule *config.FieldRule, raw string, present bool) models.Value {
	if !present || strings.TrimSpace(raw) == "" {
		return models.MissingValue()
	}

	if n.markers[strings.ToLower(strings.TrimSpace(raw))] {
		return models.PlaceholderValue(raw)
	}

	switch rule.Rule {
	case config.RuleText:
		return models.TextValue(strings.ToLower(collapseWhitespace(raw)))
	case config.RuleFreeText:
		return n.applyFreeText(raw)
	case config.RuleIntWords:
		return n.applyIntWords(rule, raw)
	case config.RuleExtract:
		return n.applyExtract(rule, raw)
	case config.RuleURL:
		return n.applyURL(rule, raw)
	case config.RuleVocab:
		return n.applyVocab(rule, raw)
	case config.RuleDate:
		return n.applyDate(raw)
	default:
		// Validate() rejects unknown rules at load; pass through unchanged.
		return models.TextValue(raw)
	}
}

// applyFreeText strips markup and truncation markers from free text.
func (n *FieldNormalizer) applyFreeText(raw string) models.Value {
	text := raw

	if strings.ContainsAny(raw, "<>") {
		if stripped, err := stripMarkup(raw); err == nil {
			text = stripped
		}
	}

	text = n.truncatedRe.ReplaceAllString(text, "")

	return models.TextValue(collapseWhitespace(text))
}

// applyIntWords parses a loosely typed numeric: digits, spelled-out small
// numbers, or "N years" patterns. Unparseable input falls back to the
// configured default.
func (n *FieldNormalizer) applyIntWords(rule *config.FieldRule, raw string) models.Value {
	token := strings.ToLower(strings.TrimSpace(raw))

	if m := n.yearsRe.FindStringSubmatch(token); m != nil {
		return models.TextValue(m[1])
	}

	if v, err := strconv.ParseFloat(token, 64); err == nil {
		return models.TextValue(strconv.Itoa(int(v)))
	}

	if v, ok := smallNumbers[token]; ok {
		return models.TextValue(strconv.Itoa(v))
	}

	if m := n.digitsRe.FindString(token); m != "" {
		return models.TextValue(m)
	}

	if rule.Default != nil {
		return models.TextValue(strconv.Itoa(*rule.Default))
	}

	return models.InvalidValue(raw)
}

// applyExtract pulls one sub-value out of a "key=value;key=value" raw field.
func (n *FieldNormalizer) applyExtract(rule *config.FieldRule, raw string) models.Value {
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if strings.TrimSpace(k) == rule.Key {
			v = strings.TrimSpace(v)
			if v == "" {
				return models.MissingValue()
			}

			return models.TextValue(v)
		}
	}

	return models.MissingValue()
}

// applyURL accepts http/https URLs and substitutes the configured
// placeholder for anything else.
func (n *FieldNormalizer) applyURL(rule *config.FieldRule, raw string) models.Value {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
		return models.TextValue(token)
	}

	if rule.Placeholder != "" {
		return models.TextValue(rule.Placeholder)
	}

	return models.InvalidValue(raw)
}

// applyVocab folds synonyms onto canonical labels. Tokens outside the
// vocabulary and the allowlist are invalid, never silently kept.
func (n *FieldNormalizer) applyVocab(rule *config.FieldRule, raw string) models.Value {
	vocab, ok := n.vocabs[rule.Vocabulary]
	if !ok {
		return models.InvalidValue(raw)
	}

	folded := foldToken(raw)
	if folded == "" {
		return models.InvalidValue(raw)
	}

	if canonical, ok := vocab.lookup[folded]; ok {
		return models.TextValue(canonical)
	}

	if vocab.allow[folded] {
		return models.TextValue(folded)
	}

	if vocab.allowNumeric {
		if _, err := strconv.Atoi(folded); err == nil {
			return models.TextValue(folded)
		}
	}

	return models.InvalidValue(raw)
}

func (n *FieldNormalizer) applyDate(raw string) models.Value {
	if t, ok := n.dates.Parse(raw); ok {
		return models.DateValue(t)
	}

	return models.InvalidValue(raw)
}

// foldToken lowercases and strips everything but letters and digits, so
// "H.B.P" and "HBP" fold to the same key.
func foldToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder

	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// collapseWhitespace trims and squeezes runs of whitespace to one space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup extracts the text content of an HTML fragment.
func stripMarkup(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return sb.String(), nil
}
