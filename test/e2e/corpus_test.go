package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_OneDocumentPerTopic(t *testing.T) {
	c := BuildCorpus()
	if c.TotalDocs != len(policyTopics) || len(c.Documents) != len(policyTopics) {
		t.Errorf("expected %d documents, got %d", len(policyTopics), c.TotalDocs)
	}
	seen := make(map[string]bool)
	for _, d := range c.Documents {
		if seen[d.ID] {
			t.Errorf("duplicate id %s", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestBuildCorpus_QueryTestCasesExist(t *testing.T) {
	c := BuildCorpus()
	if c.TotalQueries == 0 {
		t.Fatal("expected at least one query test case")
	}
	for i, tc := range c.TestCases {
		if tc.Query == "" {
			t.Errorf("test case %d: empty query", i)
		}
		if len(tc.ExpectedDocIDs) == 0 {
			t.Errorf("test case %d: no expected doc IDs", i)
		}
	}
}

func TestBuildCorpus_ExpectedDocsContainQueryPhrase(t *testing.T) {
	c := BuildCorpus()
	docByID := make(map[string]PolicyDocument)
	for _, d := range c.Documents {
		docByID[d.ID] = d
	}
	for _, tc := range c.TestCases {
		for _, docID := range tc.ExpectedDocIDs {
			doc, ok := docByID[docID]
			if !ok {
				t.Errorf("query %q: unknown doc %s", tc.Query, docID)
				continue
			}
			if !strings.Contains(doc.Content, tc.Query) {
				t.Errorf("query %q: doc %s content does not contain the phrase", tc.Query, docID)
			}
		}
	}
}

func TestBuildCorpus_HighRiskCount(t *testing.T) {
	c := BuildCorpus()
	want := (len(policyTopics) + 2) / 3
	if got := c.HighRiskCount(); got != want {
		t.Errorf("HighRiskCount() = %d, want %d", got, want)
	}
	for _, d := range c.Documents {
		if d.Penalties != strings.Contains(d.Content, "penalties") {
			t.Errorf("%s: Penalties flag disagrees with content", d.ID)
		}
	}
}
