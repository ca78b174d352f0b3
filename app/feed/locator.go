package feed

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// entryNumberPatterns are tried in order against each candidate; the
// structural forms come before the loose word match. Separators also accept
// Unicode spaces such as NBSP.
var entryNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/entry[\s\p{Zs}]*(\d{1,6})`),            // .../entry567 or /entry 567
	regexp.MustCompile(`(?i)Entry[\s\p{Zs}]*#[\s\p{Zs}]*(\d{1,6})`), // Entry #567
	regexp.MustCompile(`(?i)#entry[\s\p{Zs}]*(\d{1,6})`),            // #entry567
	regexp.MustCompile(`(?i)\bentry[\s\p{Zs}]*(\d{1,6})\b`),         // entry567 or entry 567 anywhere
}

// ExtractEntryNumber recovers the docket entry number from the entry id,
// title and link hrefs, checked in that order.
func ExtractEntryNumber(entry *etree.Element) (string, bool) {
	for _, text := range entryCandidates(entry) {
		if number, ok := matchEntryNumber(text); ok {
			return number, true
		}
	}
	return "", false
}

func entryCandidates(entry *etree.Element) []string {
	var candidates []string

	if id := atomChild(entry, "id"); id != nil && id.Text() != "" {
		candidates = append(candidates, id.Text())
	}

	if title := atomChild(entry, "title"); title != nil && title.Text() != "" {
		candidates = append(candidates, title.Text())
	}

	for _, link := range atomChildren(entry, "link") {
		if href := attrValue(link, "href"); href != "" {
			candidates = append(candidates, href)
		}
	}

	return candidates
}

func matchEntryNumber(text string) (string, bool) {
	for _, pattern := range entryNumberPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// hasEntryAnchor reports whether href already points at an entry anchor.
func hasEntryAnchor(href string) bool {
	return strings.Contains(href, "#entry")
}
