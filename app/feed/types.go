package feed

import (
	"time"
)

const (
	AtomNamespace = "http://www.w3.org/2005/Atom"
	AtomMediaType = "application/atom+xml"

	// TimestampLayout is fixed-width and zero-padded, so timestamps in this
	// layout order correctly under plain string comparison.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

const (
	RelAlternate = "alternate"
	RelEnclosure = "enclosure"
	RelSelf      = "self"
)

// Summary describes a normalized feed as read back by the Verifier.
type Summary struct {
	Title           string
	Updated         string
	SelfLink        string
	Entries         int
	AnchoredEntries int
	Size            int
}

// Stats counts the changes made by one normalization pass.
type Stats struct {
	Entries           int
	UpdatedBackfilled int
	EnclosuresCleaned int
	LinksRewritten    int
	LinksKept         int
	EntryNumbers      int
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
