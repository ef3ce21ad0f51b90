// Package policy описывает статическую таблицу маршрутов, которая решает,
// требует ли запрос аутентификации.
package policy

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// Visibility решение классификатора для запроса
type Visibility int

const (
	// Protected маршрут требует валидный bearer токен
	Protected Visibility = iota
	// Public маршрут доступен без токена
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "protected"
}

// subtreeSuffix помечает pattern как поддерево: "/swagger-ui/**"
const subtreeSuffix = "/**"

var (
	// ErrInvalidPattern pattern is empty, relative or uses "**" outside the trailing position
	ErrInvalidPattern = errors.New("invalid route pattern")
	// ErrDuplicateRule two rules share the same method and pattern
	ErrDuplicateRule = errors.New("duplicate route rule")
)

// Rule запись таблицы маршрутов. Пустой Method означает любой метод.
type Rule struct {
	Method     string
	Pattern    string
	Visibility Visibility
}

// DefaultRules возвращает таблицу маршрутов сервиса.
// Последнее правило "/**" гарантирует решение для любого запроса.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Pattern: "/authenticate", Visibility: Public},
		{Method: http.MethodPost, Pattern: "/user/register", Visibility: Public},
		{Method: http.MethodGet, Pattern: "/health", Visibility: Public},
		{Pattern: "/swagger-ui/**", Visibility: Public},
		{Pattern: "/swagger-ui.html", Visibility: Public},
		{Pattern: "/v3/api-docs/**", Visibility: Public},
		{Pattern: "/**", Visibility: Protected},
	}
}

type compiledRule struct {
	method     string
	base       string
	subtree    bool
	visibility Visibility
}

// matches проверяет метод и путь. Путь уже нормализован.
func (r compiledRule) matches(method, p string) bool {
	if r.method != "" && r.method != method {
		return false
	}
	if !r.subtree {
		return p == r.base
	}
	// "/**" покрывает все пути
	if r.base == "" {
		return true
	}
	return p == r.base || strings.HasPrefix(p, r.base+"/")
}

// moreSpecific сравнивает два подходящих правила:
// длиннее литеральный префикс, затем точный путь, затем привязка к методу
func (r compiledRule) moreSpecific(other compiledRule) bool {
	if len(r.base) != len(other.base) {
		return len(r.base) > len(other.base)
	}
	if r.subtree != other.subtree {
		return !r.subtree
	}
	return r.method != "" && other.method == ""
}

// Classifier неизменяемая таблица маршрутов
type Classifier struct {
	rules []compiledRule
}

// NewClassifier проверяет и компилирует правила.
// Повторяющиеся пары (method, pattern) отклоняются.
func NewClassifier(rules []Rule) (*Classifier, error) {
	seen := make(map[string]struct{}, len(rules))
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		cr, err := compile(rule)
		if err != nil {
			return nil, err
		}

		key := cr.method + " " + rule.Pattern
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRule, displayMethod(cr.method), rule.Pattern)
		}
		seen[key] = struct{}{}

		compiled = append(compiled, cr)
	}

	return &Classifier{rules: compiled}, nil
}

// MustDefault создает классификатор из DefaultRules. Паникует, если правила некорректны.
func MustDefault() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify возвращает решение для запроса.
// Если ни одно правило не подошло, запрос считается защищенным.
func (c *Classifier) Classify(method, requestPath string) Visibility {
	p := normalize(requestPath)
	method = strings.ToUpper(method)

	var (
		best  compiledRule
		found bool
	)
	for _, rule := range c.rules {
		if !rule.matches(method, p) {
			continue
		}
		if !found || rule.moreSpecific(best) {
			best = rule
			found = true
		}
	}

	if !found {
		return Protected
	}
	return best.visibility
}

// IsPublic сокращение для классификации http запроса
func (c *Classifier) IsPublic(r *http.Request) bool {
	return c.Classify(r.Method, r.URL.Path) == Public
}

func compile(rule Rule) (compiledRule, error) {
	p := rule.Pattern
	if p == "" || !strings.HasPrefix(p, "/") {
		return compiledRule{}, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
	}

	subtree := strings.HasSuffix(p, subtreeSuffix)
	base := p
	if subtree {
		base = strings.TrimSuffix(p, subtreeSuffix)
	}
	if strings.Contains(base, "*") {
		return compiledRule{}, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
	}
	if base != "" && normalize(base) != base {
		return compiledRule{}, fmt.Errorf("%w: %q is not a clean path", ErrInvalidPattern, p)
	}

	return compiledRule{
		method:     strings.ToUpper(rule.Method),
		base:       base,
		subtree:    subtree,
		visibility: rule.Visibility,
	}, nil
}

// normalize приводит путь к каноническому виду, чтобы "/swagger-ui/../student/1"
// классифицировался как "/student/1"
func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func displayMethod(m string) string {
	if m == "" {
		return "*"
	}
	return m
}
