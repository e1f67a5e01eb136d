// Package drafting helps istruttori draft a determinazione with the legal
// references that apply to it.
package drafting

import (
	"slices"
	"strings"
)

// Reference is a provision cited in the preamble of a determinazione.
type Reference struct {
	Source   string
	Article  string
	Title    string
	keywords []string
}

// Label renders the reference the way it is cited in the act.
func (r Reference) Label() string {
	if r.Article == "" {
		return r.Source + " - " + r.Title
	}
	return r.Source + " - " + r.Article + ": " + r.Title
}

var references = []Reference{
	{
		Source:   "D.Lgs. 267/2000 (TUEL)",
		Article:  "Art. 107",
		Title:    "Funzioni e responsabilità della dirigenza",
		keywords: []string{"dirigente", "dirigenza", "competenza", "firma", "responsabilità"},
	},
	{
		Source:   "D.Lgs. 267/2000 (TUEL)",
		Article:  "Art. 151",
		Title:    "Principi in materia di contabilità",
		keywords: []string{"contabilità", "contabile", "bilancio", "visto", "copertura"},
	},
	{
		Source:   "D.Lgs. 267/2000 (TUEL)",
		Article:  "Art. 183",
		Title:    "Impegno di spesa",
		keywords: []string{"impegno", "spesa", "importo", "centro di spesa", "liquidazione"},
	},
	{
		Source:   "L. 241/1990",
		Title:    "Procedimento amministrativo e diritto di accesso",
		keywords: []string{"procedimento", "istruttoria", "accesso", "motivazione", "responsabile del procedimento"},
	},
	{
		Source:   "D.Lgs. 33/2013",
		Title:    "Trasparenza e pubblicazione atti",
		keywords: []string{"trasparenza", "pubblicazione", "albo", "pubblicare"},
	},
}

// Search returns every known reference, the ones matching query first.
// Matching is a case-insensitive keyword lookup; ties keep catalogue order.
func Search(query string) []Reference {
	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		ref   Reference
		score int
	}
	ranked := make([]scored, 0, len(references))
	for _, ref := range references {
		ranked = append(ranked, scored{ref: ref, score: score(ref, strings.ToLower(query), terms)})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return b.score - a.score
	})
	out := make([]Reference, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.ref)
	}
	return out
}

func score(ref Reference, query string, terms []string) int {
	if query == "" {
		return 0
	}
	n := 0
	for _, kw := range ref.keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(query, kw) {
				n += 2
			}
			continue
		}
		if slices.Contains(terms, kw) {
			n++
		}
	}
	return n
}

// RequiresPublication reports whether the act must be posted on the albo
// pretorio. Every determinazione dirigenziale is published regardless of
// amount or type.
func RequiresPublication(amount *float64, kind string) bool {
	return true
}
