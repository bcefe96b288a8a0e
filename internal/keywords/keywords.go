// Package keywords turns free text (job descriptions, resumes) into the
// keyword sets consumed by the scoring engine.
package keywords

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Count is one keyword and the number of times it occurred.
type Count struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Set is the result of an extraction.
type Set struct {
	TechnicalSkills map[string]bool `json:"technical_skills"`
	SoftSkills      map[string]bool `json:"soft_skills"`
	// AllKeywords is ordered by descending count, then keyword.
	AllKeywords []Count `json:"all_keywords"`
}

// Empty reports whether nothing was extracted.
func (s *Set) Empty() bool {
	return s == nil || (len(s.TechnicalSkills) == 0 && len(s.SoftSkills) == 0 && len(s.AllKeywords) == 0)
}

// Keywords returns every distinct keyword in the set, skills included.
func (s *Set) Keywords() map[string]bool {
	out := make(map[string]bool)
	if s == nil {
		return out
	}
	for _, c := range s.AllKeywords {
		out[c.Keyword] = true
	}
	for k := range s.TechnicalSkills {
		out[k] = true
	}
	for k := range s.SoftSkills {
		out[k] = true
	}
	return out
}

// Extractor extracts keywords from text.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Set, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) (*Set, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string) (*Set, error) { return f(ctx, text) }

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
	"years": true, "experience": true, "strong": true, "including": true,
}

var technicalLexicon = toSet(
	"go", "golang", "python", "java", "javascript", "typescript", "c", "c++", "c#", ".net",
	"rust", "ruby", "php", "kotlin", "swift", "scala", "r", "sql", "nosql", "postgresql",
	"postgres", "mysql", "sqlite", "mongodb", "redis", "kafka", "rabbitmq", "docker",
	"kubernetes", "k8s", "terraform", "ansible", "aws", "gcp", "azure", "linux", "git",
	"graphql", "rest", "grpc", "react", "angular", "vue", "node.js", "nodejs", "django",
	"flask", "spring", "html", "css", "tensorflow", "pytorch", "pandas", "spark", "hadoop",
	"airflow", "jenkins", "microservices", "api", "apis", "elasticsearch", "ml", "ai", "nlp",
	"excel", "tableau", "figma", "selenium", "machine learning", "deep learning",
	"data analysis", "react native", "ci cd", "unit testing",
)

var softLexicon = toSet(
	"communication", "leadership", "teamwork", "collaboration", "adaptability",
	"creativity", "mentoring", "ownership", "organization", "presentation",
	"negotiation", "empathy", "initiative", "accountability",
	"problem solving", "critical thinking", "time management", "stakeholder management",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// LexiconExtractor recognizes technical and soft skills from fixed
// vocabularies and counts every other significant word.
type LexiconExtractor struct{}

// Extract never fails.
func (LexiconExtractor) Extract(_ context.Context, text string) (*Set, error) {
	return Extract(text), nil
}

// Extract runs the lexicon extractor on text. HTML markup is stripped first.
func Extract(text string) *Set {
	if strings.ContainsRune(text, '<') {
		text = CleanHTML(text)
	}

	set := &Set{TechnicalSkills: map[string]bool{}, SoftSkills: map[string]bool{}}
	counts := make(map[string]int)

	tokens := tokenize(text)
	for i, tok := range tokens {
		switch {
		case technicalLexicon[tok]:
			set.TechnicalSkills[tok] = true
			counts[tok]++
		case softLexicon[tok]:
			set.SoftSkills[tok] = true
			counts[tok]++
		case len([]rune(tok)) >= 3 && !stopWords[tok]:
			counts[tok]++
		}

		if i+1 < len(tokens) {
			pair := tok + " " + tokens[i+1]
			if technicalLexicon[pair] {
				set.TechnicalSkills[pair] = true
				counts[pair]++
			}
			if softLexicon[pair] {
				set.SoftSkills[pair] = true
				counts[pair]++
			}
		}
	}

	set.AllKeywords = make([]Count, 0, len(counts))
	for k, n := range counts {
		set.AllKeywords = append(set.AllKeywords, Count{Keyword: k, Count: n})
	}
	sort.Slice(set.AllKeywords, func(i, j int) bool {
		a, b := set.AllKeywords[i], set.AllKeywords[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Keyword < b.Keyword
	})
	return set
}

// tokenize lowercases text and splits it into words, keeping + # . inside
// words so that c++, c# and node.js survive.
func tokenize(text string) []string {
	var (
		out  []string
		word strings.Builder
	)
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if w != "" {
			out = append(out, w)
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}
