package notify

import (
	"context"
	"errors"

	"github.com/linemk/plugmarket-bot/internal/domain/models"
)

// Notifier получатель событий заказа
type Notifier interface {
	Notify(ctx context.Context, event models.Event) error
}

// Fanout отдаёт событие каждому получателю; отказ одного не мешает остальным
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event models.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
