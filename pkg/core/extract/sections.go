// Package extract pulls structured content out of EDGAR filing documents:
// narrative sections from 10-K HTML, holdings records from 13F XML.
//
// HTML handling uses github.com/PuerkitoBio/goquery for script/style
// removal before tag flattening.
package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SectionDef describes one extractable narrative section: a start marker
// and an optional next marker ending it. With no next marker (or no match
// for it) the section runs to end of document.
type SectionDef struct {
	Key   string
	Start *regexp.Regexp
	Next  *regexp.Regexp
}

// sectionDefs are the five 10-K sections this engine extracts, in
// document order. Patterns match against flattened plain text.
var sectionDefs = []SectionDef{
	{
		Key:   "business",
		Start: regexp.MustCompile(`(?i)item\s*1\s*\.\s*business`),
		Next:  regexp.MustCompile(`(?i)item\s*1A`),
	},
	{
		Key:   "risk_factors",
		Start: regexp.MustCompile(`(?i)item\s*1A\s*\.?\s*risk\s+factors`),
		Next:  regexp.MustCompile(`(?i)item\s*1B|item\s*2\s*\.`),
	},
	{
		Key:   "legal_proceedings",
		Start: regexp.MustCompile(`(?i)item\s*3\s*\.?\s*legal\s+proceedings`),
		Next:  regexp.MustCompile(`(?i)item\s*4`),
	},
	{
		Key:   "mda",
		Start: regexp.MustCompile(`(?i)item\s*7\s*\.?\s*management.?s\s+discussion`),
		Next:  regexp.MustCompile(`(?i)item\s*7A|item\s*8`),
	},
	{
		Key:   "financial_statements",
		Start: regexp.MustCompile(`(?i)item\s*8\s*\.?\s*financial\s+statements`),
		Next:  regexp.MustCompile(`(?i)item\s*9`),
	},
}

// SectionKeys lists the extractable section keys in document order.
func SectionKeys() []string {
	keys := make([]string, len(sectionDefs))
	for i, def := range sectionDefs {
		keys[i] = def.Key
	}
	return keys
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	longRunRe     = regexp.MustCompile(`\s{3,}`)
)

// FlattenHTML reduces a filing document to plain text: script and style
// subtrees are dropped entirely, every remaining tag becomes a space so
// adjacent elements don't concatenate, entities are decoded, and
// whitespace runs collapse to single spaces.
func FlattenHTML(htmlContent string) string {
	cleaned := htmlContent
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent)); err == nil {
		doc.Find("script, style, [hidden]").Remove()
		if body, err := doc.Find("body").Html(); err == nil && body != "" {
			cleaned = body
		} else if full, err := doc.Html(); err == nil {
			cleaned = full
		}
	} else {
		// Unparseable markup: drop script/style blocks by regex instead.
		cleaned = scriptStyleRe.ReplaceAllString(cleaned, " ")
	}

	cleaned = tagRe.ReplaceAllString(cleaned, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// ExtractSections flattens the document and slices out each defined
// section. include narrows the result to the named keys; empty means all.
// A section whose start marker never matches is omitted, never an error.
//
// Boundary rule: a section starts at the first match of its start marker
// and ends at the first match of its next marker searched in the text
// after the start match, so adjacent sections meet with no gap or
// overlap.
func ExtractSections(htmlContent string, include []string) map[string]string {
	text := FlattenHTML(htmlContent)

	wanted := make(map[string]bool, len(include))
	for _, key := range include {
		wanted[key] = true
	}

	sections := make(map[string]string)
	for _, def := range sectionDefs {
		if len(wanted) > 0 && !wanted[def.Key] {
			continue
		}

		start := def.Start.FindStringIndex(text)
		if start == nil {
			continue
		}

		end := len(text)
		if def.Next != nil {
			if next := def.Next.FindStringIndex(text[start[1]:]); next != nil {
				end = start[1] + next[0]
			}
		}

		snippet := strings.TrimSpace(longRunRe.ReplaceAllString(text[start[0]:end], " "))
		if snippet != "" {
			sections[def.Key] = snippet
		}
	}
	return sections
}
