package ai

import (
	"context"
	"errors"
)

// ErrDisabled: ключ провайдера не задан, ИИ выключен.
var ErrDisabled = errors.New("ai: disabled")

// AI отвечает текстом на пару промптов. Про сессии и каналы ничего не знает.
type AI interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Disabled отвечает ErrDisabled на любой запрос.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}
