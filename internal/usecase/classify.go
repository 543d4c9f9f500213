package usecase

import (
	"regexp"
	"strings"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
)

// touhouKeywords is the corpus keyword set. A video is auto-classified as a
// match when any tag contains any keyword as a substring.
var touhouKeywords = []string{
	"东方Project", "东方project", "东方PROJECT",
	"東方Project", "東方project", "東方PROJECT",
	"Touhou", "東方", "车万", "ZUN", "Zun", "zun",
}

// discoveryTagPattern matches the platform's internal discovery-marker tags,
// which are stripped before classification and persistence.
var discoveryTagPattern = regexp.MustCompile(`^\$发现《.+?》\^$`)

// FilterTags removes internal discovery-marker tags, preserving order.
func FilterTags(tags []string) []string {
	filtered := make([]string, 0, len(tags))
	for _, tag := range tags {
		if discoveryTagPattern.MatchString(tag) {
			continue
		}
		filtered = append(filtered, tag)
	}
	return filtered
}

// Classify derives the automatic classification from an already-filtered tag
// list. It never returns a confirmed status.
func Classify(tags []string) model.TouhouStatus {
	for _, tag := range tags {
		for _, keyword := range touhouKeywords {
			if strings.Contains(tag, keyword) {
				return model.StatusAutoMatch
			}
		}
	}
	return model.StatusAutoNoMatch
}
