package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine parses receipt templates with the formatting helpers below
type TemplateEngine struct {
	funcMap template.FuncMap
}

// NewTemplateEngine creates a TemplateEngine
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{funcMap: template.FuncMap{
		"money":    formatMoney,
		"datetime": formatDateTime,
		"date":     formatDate,
		"truncate": truncate,
		"title":    titleCase,
		"upper":    strings.ToUpper,
		"label":    label,
		"positive": func(d decimal.Decimal) bool { return d.IsPositive() },
		"percent":  func(rate decimal.Decimal) string { return rate.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%" },
	}}
}

// Parse compiles a named template
func (e *TemplateEngine) Parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(text)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplate, "failed to parse template "+name, err)
	}
	return tmpl, nil
}

// Execute renders tmpl with data
func (e *TemplateEngine) Execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, NewRenderError(ErrCodeTemplate, "failed to execute template "+tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// formatMoney renders 1234.5 as "1,234.50", prefixed with the currency code when given
func formatMoney(d decimal.Decimal, currency ...string) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := sign + b.String() + "." + frac
	if len(currency) > 0 && currency[0] != "" {
		return currency[0] + " " + out
	}
	return out
}

// formatDateTime renders t in loc, or UTC when loc is nil
func formatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// truncate shortens s to max runes, ending in an ellipsis when cut
func truncate(max int, s string) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// label turns snake_case codes such as mobile_money into "Mobile Money"
func label(v any) string {
	return titleCase(strings.ReplaceAll(fmt.Sprint(v), "_", " "))
}
