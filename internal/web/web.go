package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/clinic-portal/portal-service/internal/models"
)

// Page templates are bundled into the binary. Each page pulls in the shared
// "header" and "footer" blocks defined in layout.html.
//
//go:embed templates/*
var pageTemplates embed.FS

var kindLabels = map[string]string{
	// resources and content
	"video":       "Video",
	"article":     "Artículo",
	"text_image":  "Texto con imagen",
	"exercise":    "Ejercicio",
	"infographic": "Infografía",
	// inquiries
	"suggestion": "Sugerencia",
	"question":   "Pregunta",
	"problem":    "Problema",
	"other":      "Otro",
	// threads
	"open":     "Abierto",
	"closed":   "Cerrado",
	"featured": "Destacado",
	// orders
	"recent":  "Más recientes",
	"popular": "Más populares",
	"oldest":  "Más antiguos",
}

var bandLabels = map[models.DiagnosisBand]string{
	models.BandAdequate:    "Bienestar adecuado",
	models.BandMild:        "Malestar leve",
	models.BandModerate:    "Malestar moderado",
	models.BandSignificant: "Malestar significativo",
}

// Templates parses every page with the portal's helper functions.
func Templates() (*template.Template, error) {
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},
		"dateInput": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"media": func(key *string) string {
			if key == nil || *key == "" {
				return ""
			}
			return "/media/" + *key
		},
		"label": func(v any) string {
			key := fmt.Sprint(v)
			if l, ok := kindLabels[key]; ok {
				return l
			}
			return key
		},
		"band": func(b models.DiagnosisBand) string {
			return bandLabels[b]
		},
		"roleLabel": func(r models.Role) string {
			return r.Label()
		},
		"author": func(u models.User, anonymous bool) string {
			if anonymous {
				return "Anónimo"
			}
			return u.FullName()
		},
		"excerpt": func(s string, n int) string {
			r := []rune(strings.TrimSpace(s))
			if len(r) <= n {
				return string(r)
			}
			return string(r[:n]) + "…"
		},
		"add":   func(a, b int) int { return a + b },
		"pages": pageCount,
		"seq":   seq,
	}

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(pageTemplates, "templates/*")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return tmpl, nil
}

func pageCount(total int64, size int) int {
	if size <= 0 {
		return 1
	}
	n := int((total + int64(size) - 1) / int64(size))
	if n < 1 {
		return 1
	}
	return n
}

// seq yields 1..n for pagination links.
func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
