package projections

import "context"

// TrainerListItem is one entry of the trainer picker.
type TrainerListItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// QueryGetTrainerList lists trainers ordered as the store returns them.
// POST: Returns an empty, non-nil slice when there are no trainers
func QueryGetTrainerList(ctx context.Context, store TrainerStore) ([]TrainerListItem, error) {
	trainers, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]TrainerListItem, 0, len(trainers))
	for _, t := range trainers {
		items = append(items, TrainerListItem{ID: t.ID, Name: t.Name})
	}
	return items, nil
}
