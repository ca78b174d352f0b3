package feed

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
)

const testDocketURL = "https://www.courtlistener.com/docket/68024915/alter-v-openai-inc/"

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestNormalizer(selfURL string) *Normalizer {
	n := NewNormalizer(testDocketURL, selfURL)
	n.now = func() time.Time { return fixedNow }
	return n
}

func mustParse(t *testing.T, data string) *Document {
	t.Helper()

	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return doc
}

func alternateHref(t *testing.T, entry *etree.Element) string {
	t.Helper()

	for _, link := range atomChildren(entry, "link") {
		if rel, ok := attr(link, "rel"); !ok || rel == RelAlternate {
			return link.SelectAttrValue("href", "")
		}
	}
	t.Fatal("Expected entry to have an alternate link")
	return ""
}

func TestNormalizeUpdatedFromPublished(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry>
    <id>1</id>
    <published>2024-05-01T10:00:00Z</published>
  </entry>
</feed>`)

	stats := newTestNormalizer("").Run(doc)

	entry := doc.Entries()[0]
	if got := childText(entry, "updated"); got != "2024-05-01T10:00:00Z" {
		t.Errorf("Expected updated to equal published, got '%s'", got)
	}
	if stats.UpdatedBackfilled != 1 {
		t.Errorf("Expected 1 backfilled timestamp, got %d", stats.UpdatedBackfilled)
	}
}

func TestNormalizeUpdatedFromClock(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry><id>1</id></entry>
  <entry><id>2</id><updated>  </updated></entry>
</feed>`)

	NewNormalizer(testDocketURL, "").Run(doc)

	format := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
	for i, entry := range doc.Entries() {
		got := childText(entry, "updated")
		if !format.MatchString(got) {
			t.Errorf("Entry %d: expected UTC timestamp, got '%s'", i, got)
		}
		if len(atomChildren(entry, "updated")) != 1 {
			t.Errorf("Entry %d: expected exactly one updated element", i)
		}
	}
}

func TestNormalizeFeedUpdatedIsNewestEntry(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <updated>2000-01-01T00:00:00Z</updated>
  <entry><id>1</id><updated>2024-05-01T10:00:00Z</updated></entry>
  <entry><id>2</id><updated>2024-06-15T08:30:00Z</updated></entry>
  <entry><id>3</id><published>2024-02-01T00:00:00Z</published></entry>
  <updated>1999-01-01T00:00:00Z</updated>
</feed>`)

	newTestNormalizer("").Run(doc)

	root := doc.Root()
	updated := atomChildren(root, "updated")
	if len(updated) != 1 {
		t.Fatalf("Expected exactly one feed-level updated, got %d", len(updated))
	}
	if got := updated[0].Text(); got != "2024-06-15T08:30:00Z" {
		t.Errorf("Expected feed updated '2024-06-15T08:30:00Z', got '%s'", got)
	}
}

func TestNormalizeFeedUpdatedWithoutEntries(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom"><title>Docket</title></feed>`)

	newTestNormalizer("").Run(doc)

	if got := childText(doc.Root(), "updated"); got != "2025-03-04T05:06:07Z" {
		t.Errorf("Expected feed updated to be the current time, got '%s'", got)
	}
}

func TestNormalizeSelfLink(t *testing.T) {
	selfURL := "https://example.github.io/docket/feed.xml"
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <id>urn:docket</id>
  <title>Docket</title>
  <link href="https://www.courtlistener.com/docket/68024915/feed/" rel="self"/>
</feed>`)

	newTestNormalizer(selfURL).Run(doc)

	root := doc.Root()
	var selfLinks []*etree.Element
	for _, link := range atomChildren(root, "link") {
		if link.SelectAttrValue("rel", "") == RelSelf {
			selfLinks = append(selfLinks, link)
		}
	}

	if len(selfLinks) != 1 {
		t.Fatalf("Expected one self link, got %d", len(selfLinks))
	}
	self := selfLinks[0]
	if self.SelectAttrValue("href", "") != selfURL {
		t.Errorf("Expected self href '%s', got '%s'", selfURL, self.SelectAttrValue("href", ""))
	}
	if self.SelectAttrValue("type", "") != AtomMediaType {
		t.Errorf("Expected self type '%s', got '%s'", AtomMediaType, self.SelectAttrValue("type", ""))
	}

	title := atomChild(root, "title")
	if self.Index() != title.Index()+1 {
		t.Errorf("Expected self link right after title (title at %d, self at %d)", title.Index(), self.Index())
	}
}

func TestNormalizeSelfLinkWithoutTitle(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom"><id>urn:docket</id></feed>`)

	newTestNormalizer("https://example.com/feed.xml").Run(doc)

	first := doc.Root().ChildElements()[0]
	if !isAtom(first, "link") || first.SelectAttrValue("rel", "") != RelSelf {
		t.Errorf("Expected self link as first feed child, got <%s>", first.Tag)
	}
}

func TestNormalizeWithoutSelfURL(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <link href="https://www.courtlistener.com/docket/68024915/feed/" rel="self"/>
</feed>`)

	newTestNormalizer("").Run(doc)

	links := atomChildren(doc.Root(), "link")
	if len(links) != 1 || links[0].SelectAttrValue("href", "") != "https://www.courtlistener.com/docket/68024915/feed/" {
		t.Error("Expected upstream self link to be left alone when no self URL is configured")
	}
}

func TestNormalizeEnclosureTypes(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry>
    <id>1</id>
    <link href="https://storage.example.com/a.pdf" rel="enclosure" type="None"/>
    <link href="https://storage.example.com/b.pdf" rel="enclosure" type="application/pdf"/>
    <link href="https://example.com/other" rel="related" type="None"/>
  </entry>
</feed>`)

	stats := newTestNormalizer("").Run(doc)

	links := atomChildren(doc.Entries()[0], "link")
	if _, ok := attr(links[0], "type"); ok {
		t.Error("Expected type=\"None\" to be removed from enclosure")
	}
	if got := links[1].SelectAttrValue("type", ""); got != "application/pdf" {
		t.Errorf("Expected real enclosure type to be kept, got '%s'", got)
	}
	if got := links[2].SelectAttrValue("type", ""); got != "None" {
		t.Errorf("Expected non-enclosure link to be untouched, got '%s'", got)
	}
	if stats.EnclosuresCleaned != 1 {
		t.Errorf("Expected 1 cleaned enclosure, got %d", stats.EnclosuresCleaned)
	}
}

func TestNormalizeAlternateLinks(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry>
    <id>1</id>
    <title>Entry #12</title>
    <link href="https://www.courtlistener.com/recap/doc.pdf" rel="enclosure"/>
    <link href="https://www.courtlistener.com/recap/upstream/"/>
  </entry>
  <entry>
    <id>2</id>
    <title>Order</title>
  </entry>
  <entry>
    <id>3</id>
    <link href="https://storage.example.com/files/entry7" rel="enclosure"/>
  </entry>
</feed>`)

	stats := newTestNormalizer("").Run(doc)
	entries := doc.Entries()

	if got := alternateHref(t, entries[0]); got != testDocketURL+"#entry12" {
		t.Errorf("Expected rewritten link with anchor, got '%s'", got)
	}
	if len(atomChildren(entries[0], "link")) != 2 {
		t.Error("Expected existing unset-rel link to be reused, not duplicated")
	}

	if got := alternateHref(t, entries[1]); got != testDocketURL {
		t.Errorf("Expected bare docket URL without fragment, got '%s'", got)
	}

	if got := alternateHref(t, entries[2]); got != testDocketURL+"#entry7" {
		t.Errorf("Expected anchor from enclosure href, got '%s'", got)
	}

	if stats.LinksRewritten != 3 {
		t.Errorf("Expected 3 rewritten links, got %d", stats.LinksRewritten)
	}
}

func TestNormalizeKeepsExistingAnchor(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry>
    <id>1</id>
    <title>Entry #9</title>
    <link href="https://mirror.example.com/docket/#entry5" rel="alternate"/>
  </entry>
</feed>`)

	stats := newTestNormalizer("").Run(doc)

	if got := alternateHref(t, doc.Entries()[0]); got != "https://mirror.example.com/docket/#entry5" {
		t.Errorf("Expected existing anchored link to be kept, got '%s'", got)
	}
	if stats.LinksKept != 1 {
		t.Errorf("Expected 1 kept link, got %d", stats.LinksKept)
	}
}

func TestNormalizeIgnoresAnchoredEnclosure(t *testing.T) {
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry>
    <id>1</id>
    <link href="https://storage.example.com/doc.pdf#entry3" rel="enclosure"/>
  </entry>
</feed>`)

	newTestNormalizer("").Run(doc)

	if got := alternateHref(t, doc.Entries()[0]); got != testDocketURL+"#entry3" {
		t.Errorf("Expected new alternate link, got '%s'", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	selfURL := "https://example.com/feed.xml"
	doc := mustParse(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Docket</title>
  <entry><id>1</id><title>Entry #4</title><updated>2024-01-01T00:00:00Z</updated></entry>
  <entry><id>2</id><title>Notice</title><updated>2024-01-02T00:00:00Z</updated></entry>
</feed>`)

	normalizer := newTestNormalizer(selfURL)
	normalizer.Run(doc)
	first, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	again := mustParse(t, string(first))
	normalizer.Run(again)
	second, err := again.Bytes()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("Expected second normalization to be a no-op.\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if strings.Count(string(second), `rel="self"`) != 1 {
		t.Error("Expected exactly one self link after two runs")
	}
	if strings.Contains(string(second), "#entry4#entry4") {
		t.Error("Expected no double-appended fragment")
	}
}

func TestNormalizePrefixedNamespace(t *testing.T) {
	doc := mustParse(t, `<atom:feed xmlns:atom="http://www.w3.org/2005/Atom">
  <atom:title>Docket</atom:title>
  <atom:entry><atom:id>1</atom:id><atom:title>Entry #2</atom:title></atom:entry>
</atom:feed>`)

	newTestNormalizer("https://example.com/feed.xml").Run(doc)

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, `<atom:link href="https://example.com/feed.xml" rel="self" type="application/atom+xml"/>`) {
		t.Errorf("Expected prefixed self link, got:\n%s", out)
	}
	if !strings.Contains(out, `<atom:updated>2025-03-04T05:06:07Z</atom:updated>`) {
		t.Errorf("Expected prefixed updated element, got:\n%s", out)
	}
	if !strings.Contains(out, `<atom:link href="`+testDocketURL+`#entry2" rel="alternate"/>`) {
		t.Errorf("Expected prefixed alternate link, got:\n%s", out)
	}
}

func TestNormalizeTwoEntryFeed(t *testing.T) {
	doc := mustParse(t, `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Alter v. OpenAI</title>
  <entry>
    <id>https://www.courtlistener.com/docket/68024915/alter-v-openai-inc/entry/1</id>
    <title>Entry #6: Motion</title>
    <published>2024-03-10T12:00:00Z</published>
  </entry>
  <entry>
    <id>2</id>
    <title>Entry #5: Complaint</title>
    <updated>2024-03-01T09:00:00Z</updated>
    <link href="https://www.courtlistener.com/docket/68024915/alter-v-openai-inc/#entry5" rel="alternate"/>
  </entry>
</feed>`)

	newTestNormalizer("").Run(doc)
	entries := doc.Entries()

	if got := childText(entries[0], "updated"); got != "2024-03-10T12:00:00Z" {
		t.Errorf("Expected first entry updated from published, got '%s'", got)
	}
	if got := childText(doc.Root(), "updated"); got != "2024-03-10T12:00:00Z" {
		t.Errorf("Expected feed updated to be the newest entry, got '%s'", got)
	}
	if got := alternateHref(t, entries[1]); got != testDocketURL+"#entry5" {
		t.Errorf("Expected second entry link unchanged, got '%s'", got)
	}
	if len(atomChildren(entries[1], "link")) != 1 {
		t.Error("Expected no extra links on the second entry")
	}
}
