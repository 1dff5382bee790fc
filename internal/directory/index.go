package directory

import (
	"strings"

	"wattwise/internal/util"
)

// Entry is one retail provider and the page where customers enroll.
type Entry struct {
	Provider  string `yaml:"provider"`
	SignupURL string `yaml:"signup_url"`
}

type Index struct {
	Entries         []Entry
	ByName          map[string][]int
	TokenToEntryIDs map[string]map[int]struct{}
	NormalizedByID  map[int]string
}

func BuildIndex(entries []Entry) *Index {
	idx := &Index{
		Entries:         entries,
		ByName:          map[string][]int{},
		TokenToEntryIDs: map[string]map[int]struct{}{},
		NormalizedByID:  map[int]string{},
	}

	for id, e := range entries {
		name := normalizeProvider(e.Provider)
		if name == "" {
			continue
		}
		idx.NormalizedByID[id] = name
		idx.ByName[name] = append(idx.ByName[name], id)

		for _, token := range util.Tokenize(name) {
			if _, ok := idx.TokenToEntryIDs[token]; !ok {
				idx.TokenToEntryIDs[token] = map[int]struct{}{}
			}
			idx.TokenToEntryIDs[token][id] = struct{}{}
		}
	}

	return idx
}

var corporateSuffixes = map[string]struct{}{
	"LLC": {}, "LP": {}, "INC": {}, "CO": {}, "CORP": {}, "LTD": {}, "COMPANY": {},
}

// normalizeProvider upper-cases the name and drops trailing corporate
// suffixes, so "Gexa Energy, L.P." and "Gexa Energy" share a key.
func normalizeProvider(name string) string {
	fields := strings.Fields(util.NormalizeName(name))
	for len(fields) > 1 {
		if _, ok := corporateSuffixes[fields[len(fields)-1]]; !ok {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
