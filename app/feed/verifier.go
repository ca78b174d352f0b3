package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/mmcdole/gofeed/atom"
)

// Verifier reads a serialized feed back and checks the properties
// normalization is supposed to establish.
type Verifier struct {
	atomParser *atom.Parser
	selfURL    string
}

func NewVerifier(selfURL string) *Verifier {
	return &Verifier{
		atomParser: &atom.Parser{},
		selfURL:    selfURL,
	}
}

// Run checks data as read back by the element tree, which sees prefixed and
// default-namespace Atom alike. The Atom parser only has to accept the
// document; its title is used when present.
func (v *Verifier) Run(data []byte) (*Summary, error) {
	parsed, err := v.atomParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read back normalized feed: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read back normalized feed: %w", err)
	}
	root := doc.Root()

	summary := &Summary{
		Title: strings.TrimSpace(parsed.Title),
		Size:  len(data),
	}
	if summary.Title == "" {
		summary.Title = strings.TrimSpace(childText(root, "title"))
	}

	var problems []error

	updatedElements := atomChildren(root, "updated")
	if len(updatedElements) > 1 {
		problems = append(problems, fmt.Errorf("expected one feed updated timestamp, found %d", len(updatedElements)))
	}
	if len(updatedElements) > 0 {
		summary.Updated = strings.TrimSpace(updatedElements[0].Text())
	}

	newest := ""
	for i, entry := range doc.Entries() {
		summary.Entries++

		updated := strings.TrimSpace(childText(entry, "updated"))
		if updated == "" {
			problems = append(problems, fmt.Errorf("entry %d (%s) has no updated timestamp", i, strings.TrimSpace(childText(entry, "id"))))
		}
		if updated > newest {
			newest = updated
		}

		for _, link := range atomChildren(entry, "link") {
			rel, ok := attr(link, "rel")
			if (!ok || rel == RelAlternate) && hasEntryAnchor(attrValue(link, "href")) {
				summary.AnchoredEntries++
				break
			}
		}
	}

	if summary.Updated == "" {
		problems = append(problems, errors.New("feed has no updated timestamp"))
	} else if newest != "" && summary.Updated != newest {
		problems = append(problems, fmt.Errorf("feed updated %q does not match newest entry %q", summary.Updated, newest))
	}

	selfLinks := 0
	for _, link := range atomChildren(root, "link") {
		if attrValue(link, "rel") == RelSelf {
			selfLinks++
			summary.SelfLink = attrValue(link, "href")
		}
	}
	if v.selfURL != "" {
		if selfLinks != 1 {
			problems = append(problems, fmt.Errorf("expected one self link, found %d", selfLinks))
		} else if summary.SelfLink != v.selfURL {
			problems = append(problems, fmt.Errorf("self link %q does not match %q", summary.SelfLink, v.selfURL))
		}
	}

	if len(problems) > 0 {
		return summary, fmt.Errorf("normalized feed failed verification: %w", errors.Join(problems...))
	}

	return summary, nil
}

func childText(parent *etree.Element, local string) string {
	if child := atomChild(parent, local); child != nil {
		return child.Text()
	}
	return ""
}
