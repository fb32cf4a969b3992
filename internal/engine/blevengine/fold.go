package blevengine

import (
	stdunicode "unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName is the registered name of the diacritic folding token filter.
const FoldName = "fold_diacritics"

func init() {
	registry.RegisterTokenFilter(FoldName, foldFilterConstructor)
}

func foldFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &FoldFilter{}, nil
}

// FoldFilter removes combining marks from tokens, so "café" and "cafe" match.
type FoldFilter struct{}

// Filter folds every token in place.
func (f *FoldFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		token.Term = Fold(token.Term)
	}
	return input
}

// Fold returns term with combining marks removed. Terms that fail to
// transform are returned unchanged.
func Fold(term []byte) []byte {
	// transform.Chain is stateful, one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(stdunicode.Mn)), norm.NFC)
	folded, _, err := transform.Bytes(t, term)
	if err != nil {
		return term
	}
	return folded
}
