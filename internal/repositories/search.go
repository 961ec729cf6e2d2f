package repositories

import (
	"strings"

	"golang.org/x/text/cases"

	"caritauyuk.id/catalog/internal/domain"
)

// MatchSearch keeps the rows whose title or description contains needle, compared with
// Unicode case folding. Order is preserved and rows is reused. A blank needle keeps everything.
func MatchSearch(rows []domain.Content, needle string) []domain.Content {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return rows
	}
	folder := cases.Fold()
	needle = folder.String(needle)
	matched := rows[:0]
	for _, row := range rows {
		if strings.Contains(folder.String(row.Title), needle) || strings.Contains(folder.String(row.Description), needle) {
			matched = append(matched, row)
		}
	}
	return matched
}
