// Package ownership answers which short URLs belong to which user.
package ownership

import (
	"sort"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

// Filter returns the subset of urls owned by userID.
// An empty userID owns nothing.
func Filter(userID string, urls models.URLMap) models.URLMap {
	result := models.URLMap{}
	if userID == "" {
		return result
	}

	for short, record := range urls {
		if record.UserID == userID {
			result[short] = record
		}
	}

	return result
}

// Owns reports whether the record belongs to userID.
func Owns(userID string, record models.URLRecord) bool {
	return userID != "" && record.UserID == userID
}

// SortedShorts returns the short codes of urls in ascending order.
func SortedShorts(urls models.URLMap) []string {
	if len(urls) == 0 {
		return []string{}
	}

	shorts := funk.Keys(urls).([]string)
	sort.Strings(shorts)

	return shorts
}

// Sorted returns the records of urls ordered by short code.
func Sorted(urls models.URLMap) []models.URLRecord {
	shorts := SortedShorts(urls)
	result := make([]models.URLRecord, 0, len(shorts))
	for _, short := range shorts {
		result = append(result, urls[short])
	}

	return result
}
