// Package sumario parses the BOE daily summary (sumario) XML into flat items.
package sumario

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

var (
	// ErrMalformed is returned when the document is not a sumario: bad XML,
	// or well-formed XML without a data/sumario block.
	ErrMalformed = errors.New("malformed sumario document")
	// ErrNoSummary marks a well-formed document lacking data/sumario. It is
	// always wrapped together with ErrMalformed.
	ErrNoSummary = errors.New("no data/sumario block")
)

// Parse walks diario > seccion > departamento > [epigrafe >] item and returns
// one item per leaf, in document order. Items are returned unconditionally;
// filtering of empty titles is left to the caller. A well-formed document
// without a data/sumario block, such as an HTML error page served with 200,
// fails with ErrMalformed and ErrNoSummary.
func Parse(doc []byte) ([]gazette.Item, error) {
	root, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var summary *xmlquery.Node
	if data := xmlquery.FindOne(root, "//data"); data != nil {
		summary = xmlquery.FindOne(data, ".//sumario")
	}
	if summary == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrNoSummary)
	}

	var out []gazette.Item
	for _, issue := range xmlquery.Find(summary, ".//diario") {
		base := gazette.Item{IssueNumber: issue.SelectAttr("numero")}
		for _, section := range xmlquery.Find(issue, "seccion") {
			base.SectionCode = section.SelectAttr("codigo")
			base.SectionName = section.SelectAttr("nombre")
			for _, dept := range xmlquery.Find(section, "departamento") {
				base.DeptCode = dept.SelectAttr("codigo")
				base.DeptName = dept.SelectAttr("nombre")
				out = appendDepartment(out, dept, base)
			}
		}
	}
	return out, nil
}

// appendDepartment emits items under epigraphs and items attached directly to
// the department, interleaved as they appear.
func appendDepartment(out []gazette.Item, dept *xmlquery.Node, base gazette.Item) []gazette.Item {
	for child := dept.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch child.Data {
		case "epigrafe":
			withEpigraph := base
			withEpigraph.EpigraphName = child.SelectAttr("nombre")
			for _, item := range xmlquery.Find(child, "item") {
				out = append(out, itemFromNode(item, withEpigraph))
			}
		case "item":
			out = append(out, itemFromNode(child, base))
		}
	}
	return out
}

func itemFromNode(node *xmlquery.Node, base gazette.Item) gazette.Item {
	it := base
	it.ID = childText(node, "identificador")
	it.Title = childText(node, "titulo")
	it.HTMLURL = childText(node, "url_html")
	it.XMLURL = childText(node, "url_xml")
	it.PDFURL = childText(node, "url_pdf")
	if pdf := xmlquery.FindOne(node, "url_pdf"); pdf != nil {
		it.PDFBytes = pdf.SelectAttr("szBytes")
		it.PDFKBytes = pdf.SelectAttr("szKBytes")
		it.PageStart = pdf.SelectAttr("pagina_inicial")
		it.PageEnd = pdf.SelectAttr("pagina_final")
	}
	return it
}

func childText(node *xmlquery.Node, name string) string {
	child := xmlquery.FindOne(node, name)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.InnerText())
}
