package genre

import "strings"

// Taxonomy categories. Raw genre tags normalize into exactly one of these.
const (
	Korean     = "KOREAN"
	HipHop     = "HIPHOP/RAP"
	RnB        = "R&B/SOUL"
	Metal      = "METAL"
	Rock       = "ROCK"
	Indie      = "INDIE/ALT"
	Latin      = "LATIN"
	Reggae     = "REGGAE"
	Japan      = "JAPAN"
	Soundtrack = "SOUNDTRACK/ANIME"
	Pop        = "POP"
	Etc        = "ETC"
)

type rule struct {
	category   string
	prefixes   []string
	substrings []string
}

// Rules are evaluated in order and the first match wins. The "k-" prefix
// rule comes before the generic "pop" substring so that "k-pop" lands in
// KOREAN rather than POP.
var rules = []rule{
	{Korean, []string{"k-"}, []string{"korean"}},
	{HipHop, nil, []string{"hip hop", "hip-hop", "hiphop", "rap", "drill"}},
	{RnB, nil, []string{"r&b", "rnb", "soul"}},
	{Metal, nil, []string{"metal"}},
	{Rock, nil, []string{"rock", "punk", "grunge"}},
	{Indie, nil, []string{"indie", "alt", "shoegaze"}},
	{Latin, nil, []string{"latin", "reggaeton", "salsa"}},
	{Reggae, nil, []string{"reggae", "ska", "dub"}},
	{Japan, []string{"j-"}, []string{"japan"}},
	{Soundtrack, nil, []string{"soundtrack", "anime", "ost", "score"}},
	{Pop, nil, []string{"pop"}},
}

// Normalize maps a raw genre tag into the taxonomy. It reports false only
// for blank input; any non-blank tag that matches no rule falls into Etc.
func Normalize(tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "", false
	}
	for _, rule := range rules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(tag, prefix) {
				return rule.category, true
			}
		}
		for _, substring := range rule.substrings {
			if strings.Contains(tag, substring) {
				return rule.category, true
			}
		}
	}
	return Etc, true
}
