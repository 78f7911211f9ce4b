package dynamodb

import (
	"sort"
	"time"

	"relay/domain"
)

func parseItemTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, value)
}

func sortNotesNewestFirst(notes []*domain.Note) {
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}
