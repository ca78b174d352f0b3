package feed

import (
	"log/slog"
	"strings"
	"time"

	"github.com/beevik/etree"
)

type Normalizer struct {
	docketURL string
	selfURL   string
	now       func() time.Time
}

func NewNormalizer(docketURL, selfURL string) *Normalizer {
	return &Normalizer{
		docketURL: docketURL,
		selfURL:   selfURL,
		now:       time.Now,
	}
}

// Run rewrites doc in place: self link, per-entry updated timestamps,
// enclosure types and docket page links, then the feed-level updated time.
func (n *Normalizer) Run(doc *Document) Stats {
	root := doc.Root()
	var stats Stats

	if n.selfURL != "" {
		n.setSelfLink(root)
	}

	newest := ""
	for _, entry := range doc.Entries() {
		stats.Entries++

		updated, backfilled := n.ensureUpdated(entry)
		if backfilled {
			stats.UpdatedBackfilled++
		}
		if updated > newest {
			newest = updated
		}

		stats.EnclosuresCleaned += n.cleanEnclosures(entry)

		number, found := ExtractEntryNumber(entry)
		if found {
			stats.EntryNumbers++
		}

		if n.keepExistingLink(entry) {
			stats.LinksKept++
			continue
		}

		n.setAlternateLink(entry, n.preferredHref(number, found))
		stats.LinksRewritten++
	}

	if newest == "" {
		newest = n.timestamp()
	}
	n.setFeedUpdated(root, newest)

	slog.Debug("Feed normalized",
		"entries", stats.Entries,
		"updated_backfilled", stats.UpdatedBackfilled,
		"enclosures_cleaned", stats.EnclosuresCleaned,
		"links_rewritten", stats.LinksRewritten,
		"links_kept", stats.LinksKept,
		"feed_updated", newest)

	return stats
}

// setSelfLink replaces any feed-level self links with one pointing at the
// configured URL, placed right after the feed title.
func (n *Normalizer) setSelfLink(root *etree.Element) {
	for _, link := range atomChildren(root, "link") {
		if attrValue(link, "rel") == RelSelf {
			root.RemoveChild(link)
		}
	}

	self := newAtomElement(root, "link")
	self.CreateAttr("href", n.selfURL)
	self.CreateAttr("rel", RelSelf)
	self.CreateAttr("type", AtomMediaType)

	index := 0
	if title := atomChild(root, "title"); title != nil {
		index = title.Index() + 1
	}
	root.InsertChildAt(index, self)
}

// ensureUpdated returns the entry's updated timestamp, creating it from the
// published timestamp or the current time when it is missing or empty.
func (n *Normalizer) ensureUpdated(entry *etree.Element) (string, bool) {
	updated := atomChild(entry, "updated")
	if updated != nil {
		if text := strings.TrimSpace(updated.Text()); text != "" {
			return text, false
		}
	} else {
		updated = newAtomElement(entry, "updated")
		entry.AddChild(updated)
	}

	value := ""
	if published := atomChild(entry, "published"); published != nil {
		value = strings.TrimSpace(published.Text())
	}
	if value == "" {
		value = n.timestamp()
	}

	updated.SetText(value)
	return value, true
}

// cleanEnclosures drops the literal "None" media type upstream emits for
// enclosures without a known type.
func (n *Normalizer) cleanEnclosures(entry *etree.Element) int {
	cleaned := 0
	for _, link := range atomChildren(entry, "link") {
		if attrValue(link, "rel") != RelEnclosure {
			continue
		}
		if mediaType, ok := attr(link, "type"); ok && mediaType == "None" {
			link.RemoveAttr("type")
			cleaned++
		}
	}
	return cleaned
}

func (n *Normalizer) preferredHref(number string, found bool) string {
	if !found {
		return n.docketURL
	}
	return n.docketURL + "#entry" + number
}

// keepExistingLink reports whether a non-enclosure link already carries an
// entry anchor. Such links are trusted as-is, even when the anchor differs
// from the number recovered for the entry.
func (n *Normalizer) keepExistingLink(entry *etree.Element) bool {
	for _, link := range atomChildren(entry, "link") {
		if !hasEntryAnchor(attrValue(link, "href")) {
			continue
		}
		rel, ok := attr(link, "rel")
		if !ok || rel == RelAlternate || rel == RelSelf {
			return true
		}
	}
	return false
}

func (n *Normalizer) setAlternateLink(entry *etree.Element, href string) {
	var alternate *etree.Element
	for _, link := range atomChildren(entry, "link") {
		if rel, ok := attr(link, "rel"); !ok || rel == RelAlternate {
			alternate = link
			break
		}
	}

	if alternate == nil {
		alternate = newAtomElement(entry, "link")
		entry.AddChild(alternate)
	}

	alternate.CreateAttr("href", href)
	alternate.CreateAttr("rel", RelAlternate)
}

// setFeedUpdated leaves exactly one feed-level updated element.
func (n *Normalizer) setFeedUpdated(root *etree.Element, value string) {
	existing := atomChildren(root, "updated")
	if len(existing) == 0 {
		updated := newAtomElement(root, "updated")
		updated.SetText(value)
		root.AddChild(updated)
		return
	}

	existing[0].SetText(value)
	for _, extra := range existing[1:] {
		root.RemoveChild(extra)
	}
}

func (n *Normalizer) timestamp() string {
	return FormatTimestamp(n.now())
}
