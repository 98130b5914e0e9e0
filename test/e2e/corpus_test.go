package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_UniqueIDsAndTexts(t *testing.T) {
	c := BuildCorpus()
	if len(c.Items) != len(corpusTexts) {
		t.Fatalf("expected %d items, got %d", len(corpusTexts), len(c.Items))
	}
	ids := make(map[string]bool)
	texts := make(map[string]bool)
	for _, it := range c.Items {
		if ids[it.ID] || texts[it.Text] {
			t.Errorf("duplicate item %q / %q", it.ID, it.Text)
		}
		ids[it.ID] = true
		texts[it.Text] = true
		if strings.TrimSpace(it.Type) == "" {
			t.Errorf("item %s has no type", it.ID)
		}
	}
}

func TestCorpus_AddParamsTimestampsIncrease(t *testing.T) {
	params := BuildCorpus().AddParams(1000)
	for i := 1; i < len(params); i++ {
		if params[i].Timestamp <= params[i-1].Timestamp {
			t.Fatalf("timestamps not increasing at %d", i)
		}
	}
	if err := params[0].Validate(); err != nil {
		t.Error(err)
	}
}

func TestKeywordVector(t *testing.T) {
	v := KeywordVector("Anxious, NERVOUS and tired!")
	if v[0] != 2 || v[2] != 1 {
		t.Errorf("unexpected vector %v", v)
	}
	if len(KeywordVector("")) != ConceptDimensions {
		t.Error("wrong length")
	}
}
