package notify

import (
	"context"
	"errors"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Multi рассылает во все каналы. Ошибка одного канала не мешает остальным.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errList []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Nop: оператор не настроен.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
