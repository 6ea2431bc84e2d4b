package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/trainer"
)

// TrainerStoreForSeed defines the store interface needed by SeedTrainers.
type TrainerStoreForSeed interface {
	Create(ctx context.Context, t trainer.Trainer) (trainer.Trainer, error)
	GetByName(ctx context.Context, name string) (trainer.Trainer, error)
}

// SeedTrainersDeps holds dependencies for SeedTrainers.
type SeedTrainersDeps struct {
	TrainerStore TrainerStoreForSeed
}

// ExecuteSeedTrainers creates each of trainer.DefaultNames that does not exist yet.
// POST: Returns how many trainers were created; running it twice creates nothing the second time
func ExecuteSeedTrainers(ctx context.Context, deps SeedTrainersDeps, now time.Time) (int, error) {
	created := 0
	for _, name := range trainer.DefaultNames {
		_, err := deps.TrainerStore.GetByName(ctx, name)
		if err == nil {
			continue
		}
		if !member.IsNotFound(err) {
			return created, err
		}
		t := trainer.Trainer{Name: name, CreatedAt: now}
		if err := t.Validate(); err != nil {
			return created, err
		}
		if _, err := deps.TrainerStore.Create(ctx, t); err != nil {
			return created, err
		}
		created++
		slog.Info("seed_event", "event", "trainer_created", "name", name)
	}
	return created, nil
}
