package grid

import (
	"strings"

	"github.com/Rana718/Portal/internal/types"
	"github.com/sahilm/fuzzy"
)

type optionScore struct {
	index   int
	exact   int
	substr  int
	fuzzy   int
	matched bool
}

func (a optionScore) better(b optionScore) bool {
	if a.exact != b.exact {
		return a.exact > b.exact
	}
	if a.substr != b.substr {
		return a.substr > b.substr
	}
	if a.fuzzy != b.fuzzy {
		return a.fuzzy > b.fuzzy
	}
	return a.index < b.index
}

// ResolveOption reconstructs which combobox option a row currently shows from its
// display tokens. An exact id match wins; otherwise options are ranked by exact label
// matches, then substring matches, then fuzzy score, then their order.
func ResolveOption(tokens []string, options []types.ComboboxOption) (string, bool) {
	clean := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if s := strings.TrimSpace(t); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 || len(options) == 0 {
		return "", false
	}

	for _, t := range clean {
		for _, o := range options {
			if o.ID == t {
				return o.ID, true
			}
		}
	}

	var best *optionScore
	for i, o := range options {
		s := scoreOption(i, o, clean)
		if !s.matched {
			continue
		}
		if best == nil || s.better(*best) {
			sc := s
			best = &sc
		}
	}
	if best == nil {
		return "", false
	}
	return options[best.index].ID, true
}

func scoreOption(i int, o types.ComboboxOption, tokens []string) optionScore {
	labels := make([]string, 0, len(o.Show)+len(o.Hidden))
	for _, l := range append(append([]string{}, o.Show...), o.Hidden...) {
		if s := strings.TrimSpace(l); s != "" {
			labels = append(labels, s)
		}
	}

	s := optionScore{index: i}
	if len(labels) == 0 {
		return s
	}

	for _, t := range tokens {
		lt := strings.ToLower(t)
		exact, sub := false, false
		for _, l := range labels {
			ll := strings.ToLower(l)
			if ll == lt {
				exact = true
				break
			}
			if strings.Contains(ll, lt) || strings.Contains(lt, ll) {
				sub = true
			}
		}
		switch {
		case exact:
			s.exact++
			s.matched = true
		case sub:
			s.substr++
			s.matched = true
		}

		if matches := fuzzy.Find(t, labels); len(matches) > 0 {
			s.fuzzy += matches[0].Score
			s.matched = true
		}
	}
	return s
}
