package middleware

import "net/http"

// Middleware оборачивает http.Handler
type Middleware func(http.Handler) http.Handler

// Chain собирает конвейер: первая стадия становится внешней.
// Chain(h, a, b) эквивалентно a(b(h)).
func Chain(h http.Handler, stages ...Middleware) http.Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}
