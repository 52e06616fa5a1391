// Package theme assigns a coarse topical label to gazette titles.
package theme

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default is returned when no keyword matches.
const Default = "Other"

// Theme pairs a label with the keywords that select it.
type Theme struct {
	Name     string   `yaml:"theme"`
	Keywords []string `yaml:"keywords"`
}

// Classifier matches titles against an ordered theme table. The first theme
// with a matching keyword wins.
type Classifier struct {
	themes []Theme
}

// New builds a Classifier over themes. Keywords are lower-cased; empty ones
// are dropped since they would match every title.
func New(themes []Theme) *Classifier {
	table := make([]Theme, 0, len(themes))
	for _, th := range themes {
		kws := make([]string, 0, len(th.Keywords))
		for _, kw := range th.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		table = append(table, Theme{Name: th.Name, Keywords: kws})
	}
	return &Classifier{themes: table}
}

// Classify returns the label of the first theme whose keyword occurs in title.
func (c *Classifier) Classify(title string) string {
	t := strings.ToLower(title)
	for _, th := range c.themes {
		for _, kw := range th.Keywords {
			if strings.Contains(t, kw) {
				return th.Name
			}
		}
	}
	return Default
}

// Themes returns a copy of the table in match order.
func (c *Classifier) Themes() []Theme {
	out := make([]Theme, len(c.themes))
	for i, th := range c.themes {
		out[i] = Theme{Name: th.Name, Keywords: append([]string(nil), th.Keywords...)}
	}
	return out
}

// DefaultThemes is the stock table for BOE titles.
func DefaultThemes() []Theme {
	return []Theme{
		{Name: "Sanidad", Keywords: []string{"covid", "coronavirus", "sars-cov-2", "salud", "sanidad", "mascarilla", "vacuna", "vacunación"}},
		{Name: "Economía/Empresa", Keywords: []string{"impuesto", "tribut", "iva", "irpf", "subvención", "ayuda", "financiación", "ico", "contratación"}},
		{Name: "Trabajo/Laboral", Keywords: []string{"erte", "desempleo", "prestación", "laboral", "trabajo", "seguridad social", "convenio", "empleo"}},
		{Name: "Educación/Universidad", Keywords: []string{"educación", "universidad", "escolar", "alumno", "docente", "beca"}},
		{Name: "Tráfico/Movilidad/Carreteras", Keywords: []string{"tráfico", "dgt", "carretera", "autovía", "autopista", "peaje", "movilidad", "transporte", "vehículo"}},
		{Name: "Vivienda/Urbanismo", Keywords: []string{"vivienda", "alquiler", "hipoteca", "urbanismo", "rehabilitación", "arrendamiento"}},
		{Name: "Energía/Medio ambiente", Keywords: []string{"energía", "eléctrica", "renovable", "clima", "emisiones", "ambiental", "residuos"}},
		{Name: "Justicia/Procedimientos", Keywords: []string{"procedimiento", "plazo", "judicial", "tribunal", "juzgado", "sanción"}},
	}
}

// LoadFile reads a YAML list of {theme, keywords} entries. File order is
// match order.
func LoadFile(path string) ([]Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme file %s: %w", path, err)
	}
	var themes []Theme
	if err := yaml.Unmarshal(raw, &themes); err != nil {
		return nil, fmt.Errorf("parse theme file %s: %w", path, err)
	}
	for i, th := range themes {
		if strings.TrimSpace(th.Name) == "" {
			return nil, fmt.Errorf("theme file %s: entry %d has no theme name", path, i)
		}
	}
	return themes, nil
}
