package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error: ошибка с контекстом: сообщение, пары ключ-значение и исходная причина.
type Error struct {
	msg   string
	args  map[string]any
	cause error
}

func New(msg string) *Error {
	return &Error{msg: msg, args: map[string]any{}}
}

// Arg добавляет к ошибке значение для лога.
func (e *Error) Arg(key string, value any) *Error {
	e.args[key] = value
	return e
}

// Wrap запоминает причину. nil игнорируется.
func (e *Error) Wrap(err error) *Error {
	if err != nil {
		e.cause = err
	}
	return e
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.msg)

	if len(e.args) > 0 {
		keys := make([]string, 0, len(e.args))
		for k := range e.args {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.args[k])
		}
		b.WriteString("]")
	}

	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}

	return b.String()
}

// Args возвращает аргументы всей цепочки Error, внешние перекрывают внутренние.
func Args(err error) map[string]any {
	out := map[string]any{}
	var chain []*Error
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		chain = append(chain, e)
		err = e.cause
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].args {
			out[k] = v
		}
	}
	return out
}
