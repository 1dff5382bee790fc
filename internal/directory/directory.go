package directory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"wattwise/internal/util"
)

// MinSimilarity is the Dice score a fuzzy provider match must reach.
const MinSimilarity = 0.85

var defaultEntries = []Entry{
	{Provider: "TXU Energy", SignupURL: "https://www.txu.com/enrollment"},
	{Provider: "Reliant Energy", SignupURL: "https://www.reliant.com/en/public/residential/electricity-plans.jsp"},
	{Provider: "Gexa Energy", SignupURL: "https://www.gexaenergy.com/electricity-plans"},
	{Provider: "Green Mountain Energy", SignupURL: "https://www.greenmountainenergy.com/plans"},
	{Provider: "Green Mountain", SignupURL: "https://www.greenmountainenergy.com/plans"},
	{Provider: "Constellation", SignupURL: "https://www.constellation.com/solutions/for-your-home/electricity-plans.html"},
	{Provider: "4Change Energy", SignupURL: "https://www.4changeenergy.com/plans"},
	{Provider: "Frontier Utilities", SignupURL: "https://www.frontierutilities.com/plans"},
	{Provider: "Chariot Energy", SignupURL: "https://chariotenergy.com/plans"},
	{Provider: "Pulse Power", SignupURL: "https://pulsepower.com/plans"},
	{Provider: "Rhythm Energy", SignupURL: "https://www.gotrhythm.com/electricity-plans"},
	{Provider: "Express Energy", SignupURL: "https://www.myexpressenergy.com"},
	{Provider: "Discount Power", SignupURL: "https://www.discountpowertx.com"},
	{Provider: "Veteran Energy", SignupURL: "https://www.veteranenergy.us/plans"},
	{Provider: "TriEagle Energy", SignupURL: "https://www.trieagleenergy.com/plans"},
	{Provider: "Cirro Energy", SignupURL: "https://www.cirroenergy.com/plans"},
}

// Directory resolves a provider name as printed in the plan export to its
// enrollment page.
type Directory struct {
	index *Index
}

func New(entries []Entry) *Directory {
	return &Directory{index: BuildIndex(entries)}
}

// Default returns the built-in provider table.
func Default() *Directory {
	return New(defaultEntries)
}

// Load reads provider entries from a YAML list. An empty path yields Default.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider directory: %w", err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("parse provider directory: %w", err)
	}
	return New(entries), nil
}

func (d *Directory) Len() int {
	if d == nil || d.index == nil {
		return 0
	}
	return len(d.index.Entries)
}

// SignupURL returns the enrollment page for provider. Exact matches on the
// normalized name win; otherwise the best candidate sharing a token is taken
// when its Dice similarity reaches MinSimilarity.
func (d *Directory) SignupURL(provider string) (string, bool) {
	if d == nil || d.index == nil {
		return "", false
	}
	name := normalizeProvider(provider)
	if name == "" {
		return "", false
	}
	if ids := d.index.ByName[name]; len(ids) > 0 {
		return d.index.Entries[ids[0]].SignupURL, true
	}

	type candidate struct {
		id    int
		score float64
	}
	seen := map[int]struct{}{}
	var candidates []candidate
	for _, token := range util.Tokenize(name) {
		for id := range d.index.TokenToEntryIDs[token] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			score := util.DiceCoefficient(name, d.index.NormalizedByID[id])
			if score >= MinSimilarity {
				candidates = append(candidates, candidate{id: id, score: score})
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	return d.index.Entries[candidates[0].id].SignupURL, true
}
