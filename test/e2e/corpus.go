// Package e2e provides end-to-end tests over a coaching corpus.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/coachmem/internal/models"
)

// CorpusItem is one stored coaching text.
type CorpusItem struct {
	ID   string
	Type string
	Text string
}

// Corpus holds items in chronological order.
type Corpus struct {
	Items []CorpusItem
}

var corpusTexts = []struct {
	typ  string
	text string
}{
	{models.TypeMessage, "I feel anxious before competition"},
	{models.TypeTactic, "Try slow breathing exercises"},
	{models.TypeMood, "Tired after a long week of training"},
	{models.TypeMessage, "My coach says I rush my warm up"},
	{models.TypeExercise, "Box breathing: inhale four, hold four, exhale four"},
	{models.TypeSummary, "Athlete reports poor sleep and low motivation this month"},
	{models.TypeTactic, "Visualize the first minute of the race in detail"},
	{models.TypeMessage, "I keep thinking about the last match I lost"},
	{models.TypeMood, "Calm and focused this morning"},
	{models.TypeExercise, "Progressive muscle relaxation before bed"},
	{models.TypeTactic, "Set one process goal per session"},
	{models.TypeMessage, "Nervous about the selection trials next week"},
	{models.TypeMood, "Frustrated with slow progress on my serve"},
	{models.TypeSummary, "Confidence improved after three consistent practices"},
	{models.TypeExercise, "Write down three things that went well today"},
	{models.TypeTactic, "Use a short cue word to reset after mistakes"},
	{models.TypeMessage, "I cannot sleep the night before games"},
	{models.TypeMood, "Motivated and excited for the weekend tournament"},
	{models.TypeExercise, "Ten minute body scan after practice"},
	{models.TypeSummary, "Pre-competition routine is now consistent"},
}

// BuildCorpus returns the coaching corpus with stable ids.
func BuildCorpus() *Corpus {
	items := make([]CorpusItem, len(corpusTexts))
	for i, c := range corpusTexts {
		items[i] = CorpusItem{ID: fmt.Sprintf("item-%02d", i), Type: c.typ, Text: c.text}
	}
	return &Corpus{Items: items}
}

// AddParams converts the corpus into add requests with increasing timestamps
// starting at base.
func (c *Corpus) AddParams(base int64) []models.AddParams {
	out := make([]models.AddParams, len(c.Items))
	for i, it := range c.Items {
		out[i] = models.AddParams{
			ID:        it.ID,
			Type:      it.Type,
			Text:      it.Text,
			Timestamp: base + int64(i),
			Meta:      map[string]interface{}{"source": "corpus"},
		}
	}
	return out
}

// conceptWords maps words to concept dimensions for the keyword embedder.
var conceptWords = map[string]int{
	"anxious": 0, "anxiety": 0, "nervous": 0, "worried": 0,
	"breathing": 1, "breathe": 1, "inhale": 1, "exhale": 1,
	"sleep": 2, "tired": 2, "bed": 2, "night": 2,
	"motivation": 3, "motivated": 3, "excited": 3,
	"competition": 4, "race": 4, "match": 4, "tournament": 4, "games": 4, "trials": 4,
	"confidence": 5, "focused": 5, "calm": 5,
	"relaxation": 6, "scan": 6,
	"goal": 7, "routine": 7, "process": 7,
}

// ConceptDimensions is the length of KeywordVector results.
const ConceptDimensions = 8

// KeywordVector counts concept words in text. It stands in for a real
// embedding model behind the remote endpoint.
func KeywordVector(text string) []float64 {
	out := make([]float64, ConceptDimensions)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if dim, ok := conceptWords[w]; ok {
			out[dim]++
		}
	}
	return out
}
