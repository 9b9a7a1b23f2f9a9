package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MonthLayout est le format de la clé de partition ("2024-03").
const MonthLayout = "2006-01"

// Post est la seule entité persistée : un texte identifié, horodaté et immuable.
type Post struct {
	ID      string
	Created time.Time
	Month   string // Clé de partition dérivée de Created
	Text    string
}

// NewPost crée un post valide à partir du texte fourni.
// L'identité et la date sont générées ICI, jamais par l'appelant.
func NewPost(text string, now time.Time) (*Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewError(KindBadRequest, "cannot create empty post")
	}

	created := now.UTC()
	return &Post{
		ID:      uuid.NewString(),
		Created: created,
		Month:   MonthOf(created),
		Text:    text,
	}, nil
}

// MonthOf retourne la partition (UTC) d'un instant.
func MonthOf(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// Months liste les partitions de la plus récente à la plus ancienne,
// en partant du mois de now : [M, M-1, ..., M-(n-1)].
func Months(now time.Time, n int) []string {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]string, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, first.AddDate(0, -i, 0).Format(MonthLayout))
	}
	return months
}
