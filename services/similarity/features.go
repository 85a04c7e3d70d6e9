package similarity

import (
	"strings"

	"streamrec/models"
)

// BuildFeatureText flattens a content item's textual metadata into the
// document used for vectorization. Title and genres carry double weight by
// appearing twice; cast, director and description appear once. Missing
// fields contribute an empty string so the output shape is stable.
//
// Pure function: same item always produces the same text.
func BuildFeatureText(c models.Content) string {
	title := strings.ToLower(c.Name)
	genres := strings.ToLower(strings.Join(c.Genres, " "))
	cast := strings.ToLower(strings.Join(c.Cast, " "))
	director := strings.ToLower(c.Director)
	description := strings.ToLower(c.Description)

	return strings.Join([]string{title, title, genres, genres, cast, director, description}, " ")
}

// buildFeatureCorpus maps a catalog slice to feature documents, index-aligned
// with the input.
func buildFeatureCorpus(items []models.Content) []string {
	features := make([]string, len(items))
	for i, item := range items {
		features[i] = BuildFeatureText(item)
	}
	return features
}
