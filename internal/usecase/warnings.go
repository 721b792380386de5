package usecase

import (
	"fmt"
	"strings"

	"github.com/elecmate/backend/internal/domain"
)

// CollectWarnings returns one "Could not find" message per item that has no
// candidates, whether the search came back empty or failed.
func CollectWarnings(results []domain.ItemCandidates) []string {
	warnings := []string{}
	for _, r := range results {
		if len(r.Candidates) > 0 {
			continue
		}
		warnings = append(warnings, notFoundWarning(r.Item))
	}
	return warnings
}

// CountFound returns how many items have at least one candidate
func CountFound(results []domain.ItemCandidates) int {
	found := 0
	for _, r := range results {
		if len(r.Candidates) > 0 {
			found++
		}
	}
	return found
}

func notFoundWarning(item domain.RequestedItem) string {
	return strings.TrimSpace(fmt.Sprintf("Could not find: %s %s", item.Product, item.Specs))
}
