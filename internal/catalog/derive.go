package catalog

import (
	"sort"
	"strings"

	"github.com/swasher/productus/internal/domain"
)

// filterAndSort derives the display view of a photo list: tag and folder
// predicates applied as an intersection, then newest first. Empty tag or
// folder means that predicate is unset.
func filterAndSort(photos []domain.Photo, tag, folder string) []domain.Photo {
	filtered := make([]domain.Photo, 0, len(photos))
	for _, photo := range photos {
		if tag != "" && !photo.HasTag(tag) {
			continue
		}
		if folder != "" && photo.Folder != folder {
			continue
		}
		filtered = append(filtered, photo)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})

	return filtered
}

// searchCorpus scans the in-memory corpus for a case-insensitive substring
// match on name, comment, or any tag. A blank query matches nothing: the
// search screen shows results only once the user has typed something.
func searchCorpus(photos []domain.Photo, query string) []domain.Photo {
	if strings.TrimSpace(query) == "" {
		return []domain.Photo{}
	}

	needle := strings.ToLower(query)

	results := []domain.Photo{}
	for _, photo := range photos {
		if matchesQuery(photo, needle) {
			results = append(results, photo)
		}
	}

	return results
}

func matchesQuery(photo domain.Photo, needle string) bool {
	if strings.Contains(strings.ToLower(photo.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(photo.Comment), needle) {
		return true
	}
	for _, tag := range photo.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// cleanTags trims whitespace and drops blank entries, preserving order.
func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
	}
	return cleaned
}
