package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/boe-sumario-crawler/internal/textnorm"
)

// chromeSelectors are layout regions of boe.es pages that never hold
// document text.
const chromeSelectors = "nav, header, footer, .pie, .breadcrumbs, #barra_cabecera, #barra_portada, .enlaces, .reproductor"

// mainSelectors are tried in order to locate the document body.
var mainSelectors = []string{"#text", ".texto", "#contenido", "article", ".contenido"}

const blockSelectors = "p, li, blockquote, h4, h5, h6"

// FromPage extracts plain text from a rendered BOE page (txt.php?id=...).
// Page chrome is removed first. A leading <h1> equal to knownTitle, ignoring
// case, is dropped as well since the title is already part of the record.
func FromPage(doc []byte, knownTitle string) (string, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse document html: %w", err)
	}

	page.Find(chromeSelectors).Remove()

	if title := strings.TrimSpace(knownTitle); title != "" {
		h1 := page.Find("h1").First()
		if h1.Length() > 0 && strings.EqualFold(textnorm.CollapseFields(h1.Text()), title) {
			h1.Remove()
		}
	}

	var parts []string
	mainContent(page).Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		if txt := textnorm.CollapseFields(s.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	return textnorm.Normalize(strings.Join(parts, "\n")), nil
}

func mainContent(page *goquery.Document) *goquery.Selection {
	for _, sel := range mainSelectors {
		if s := page.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	if body := page.Find("body").First(); body.Length() > 0 {
		return body
	}
	return page.Selection
}
