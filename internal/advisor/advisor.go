// Package advisor получает рекомендацию от внешнего советника и откатывается
// на детерминированную политику, если советник недоступен или ответил неверно.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artemshloyda/rtconvert/internal/policy"
)

var (
	// ErrTimeout - советник не ответил за отведённое время.
	ErrTimeout = errors.New("советник: таймаут")

	// ErrMalformedResponse - ответ не соответствует контракту.
	ErrMalformedResponse = errors.New("советник: некорректный ответ")

	// ErrUnavailable - советник не настроен или вызов завершился ошибкой.
	ErrUnavailable = errors.New("советник недоступен")
)

// Error описывает ошибку советника.
type Error struct {
	// Kind - ErrTimeout, ErrMalformedResponse или ErrUnavailable.
	Kind error

	// Field - поле ответа, нарушившее контракт (для ErrMalformedResponse).
	Field string

	// Err - исходная ошибка.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " (поле %s)", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is сравнивает ошибку с её видом.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformed(field string, err error) *Error {
	return &Error{Kind: ErrMalformedResponse, Field: field, Err: err}
}

// Request - запрос к советнику.
type Request struct {
	FileName string      `json:"fileName"`
	FileType string      `json:"fileType"`
	FileSize int64       `json:"fileSize"`
	Goal     policy.Goal `json:"optimizationGoal"`
}

// Advisor рекомендует параметры конвертации.
// Реализация делает не более одного внешнего вызова на запрос и не повторяет его.
type Advisor interface {
	Recommend(ctx context.Context, req Request) (policy.Recommendation, error)
}

// Func позволяет использовать функцию как Advisor.
type Func func(ctx context.Context, req Request) (policy.Recommendation, error)

// Recommend вызывает f.
func (f Func) Recommend(ctx context.Context, req Request) (policy.Recommendation, error) {
	return f(ctx, req)
}

// Source - откуда взята рекомендация.
type Source string

const (
	SourceAdvisor Source = "advisor"
	SourcePolicy  Source = "policy"
)

// Outcome - итог разрешения рекомендации.
type Outcome struct {
	Recommendation policy.Recommendation
	Source         Source

	// Note - информационное сообщение для пользователя при откате на политику.
	Note string

	// Err - ошибка советника, из-за которой произошёл откат.
	Err error
}

// Resolve спрашивает советника и при любой ошибке возвращает рекомендацию политики.
// Никогда не завершается ошибкой. in.Goal должен быть получен через policy.ParseGoal.
// Ожидание ответа ограничено timeout (DefaultTimeout, если timeout <= 0), а ответ
// проверяется по контракту независимо от реализации советника.
func Resolve(ctx context.Context, adv Advisor, req Request, in policy.Input, timeout time.Duration) Outcome {
	if adv == nil {
		return Outcome{
			Recommendation: policy.MustRecommend(in),
			Source:         SourcePolicy,
			Note:           "советник не настроен, использованы правила",
		}
	}

	rec, err := ask(ctx, adv, req, timeout)
	if err == nil {
		err = CheckRecommendation(rec)
	}
	if err == nil {
		return Outcome{Recommendation: rec, Source: SourceAdvisor}
	}

	return Outcome{
		Recommendation: policy.MustRecommend(in),
		Source:         SourcePolicy,
		Note:           fallbackNote(err),
		Err:            err,
	}
}

type answer struct {
	rec policy.Recommendation
	err error
}

// ask вызывает советника и ждёт ответа не дольше timeout.
// Советник, не реагирующий на отмену контекста, продолжает работу в фоне.
func ask(ctx context.Context, adv Advisor, req Request, timeout time.Duration) (policy.Recommendation, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan answer, 1)
	go func() {
		rec, err := adv.Recommend(ctx, req)
		ch <- answer{rec: rec, err: err}
	}()

	var a answer
	select {
	case a = <-ch:
	case <-ctx.Done():
		a.err = ctx.Err()
	}
	if a.err == nil {
		return a.rec, nil
	}

	var advErr *Error
	switch {
	case errors.As(a.err, &advErr):
		return policy.Recommendation{}, a.err
	case errors.Is(a.err, context.DeadlineExceeded):
		return policy.Recommendation{}, &Error{Kind: ErrTimeout, Err: a.err}
	default:
		return policy.Recommendation{}, &Error{Kind: ErrUnavailable, Err: a.err}
	}
}

func fallbackNote(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "советник не ответил вовремя, использованы правила"
	case errors.Is(err, ErrMalformedResponse):
		return "советник вернул некорректный ответ, использованы правила"
	default:
		return "советник недоступен, использованы правила"
	}
}
