package feed

import (
	"testing"
)

func parseEntry(t *testing.T, entryXML string) *Document {
	t.Helper()

	doc, err := Parse([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"><title>Docket</title>` + entryXML + `</feed>`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(doc.Entries()) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(doc.Entries()))
	}
	return doc
}

func TestExtractEntryNumber(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		expected string
		found    bool
	}{
		{
			name:     "title with hash",
			entry:    `<entry><title>Entry #12</title></entry>`,
			expected: "12",
			found:    true,
		},
		{
			name:     "link path segment",
			entry:    `<entry><link href="https://storage.courtlistener.com/recap/gov.uscourts.cand/entry7"/></entry>`,
			expected: "7",
			found:    true,
		},
		{
			name:     "id path segment",
			entry:    `<entry><id>https://www.courtlistener.com/docket/1/x/entry/55</id><title>Entry #3</title></entry>`,
			expected: "3",
			found:    true,
		},
		{
			name:     "fragment",
			entry:    `<entry><link href="https://www.courtlistener.com/docket/1/x/#entry42"/></entry>`,
			expected: "42",
			found:    true,
		},
		{
			name:     "loose word with space",
			entry:    `<entry><title>Docket entry 9 filed</title></entry>`,
			expected: "9",
			found:    true,
		},
		{
			name:     "non-breaking space separator",
			entry:    "<entry><title>Entry #\u00a012</title></entry>",
			expected: "12",
			found:    true,
		},
		{
			name:     "case insensitive",
			entry:    `<entry><title>ENTRY # 101</title></entry>`,
			expected: "101",
			found:    true,
		},
		{
			name:     "no match",
			entry:    `<entry><id>urn:uuid:1234</id><title>Order granting motion</title><link href="https://example.com/doc"/></entry>`,
			expected: "",
			found:    false,
		},
		{
			name:     "word boundary rejects longer numbers",
			entry:    `<entry><title>entry1234567</title></entry>`,
			expected: "",
			found:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseEntry(t, tt.entry)

			number, found := ExtractEntryNumber(doc.Entries()[0])
			if found != tt.found {
				t.Fatalf("Expected found=%v, got %v (number %q)", tt.found, found, number)
			}
			if number != tt.expected {
				t.Errorf("Expected entry number '%s', got '%s'", tt.expected, number)
			}
		})
	}
}

func TestExtractEntryNumberCandidateOrder(t *testing.T) {
	// The id is checked before the title, so its number wins even though the
	// title form has a higher pattern priority.
	doc := parseEntry(t, `<entry><id>tag:courtlistener.com,2024:entry 88</id><title>Entry #12</title></entry>`)

	number, found := ExtractEntryNumber(doc.Entries()[0])
	if !found || number != "88" {
		t.Errorf("Expected entry number '88', got '%s' (found=%v)", number, found)
	}
}

func TestExtractEntryNumberPatternPriority(t *testing.T) {
	// Within one candidate the path form beats the fragment form.
	number, found := matchEntryNumber("https://example.com/entry5#entry6")
	if !found || number != "5" {
		t.Errorf("Expected '5', got '%s' (found=%v)", number, found)
	}

	number, found = matchEntryNumber("Entry #14 see entry 15")
	if !found || number != "14" {
		t.Errorf("Expected '14', got '%s' (found=%v)", number, found)
	}
}
