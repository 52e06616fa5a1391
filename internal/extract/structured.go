package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/JakeFAU/boe-sumario-crawler/internal/textnorm"
)

// structuralNodes carry a heading attribute and paragraph children.
var structuralNodes = map[string]bool{
	"articulo": true,
	"capitulo": true,
	"titulo":   true,
	"seccion":  true,
	"apartado": true,
	"epigrafe": true,
	"parrafo":  true,
}

// FromStructured extracts plain text from a BOE document XML
// (xml.php?id=...). Text comes from every <texto> node, then from every
// structural node as its titulo/nombre attribute followed by its <p>/<li>
// descendants. When both passes come up empty, every <p>/<li> in the
// content root is used instead.
func FromStructured(doc []byte) (string, error) {
	top, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse document xml: %w", err)
	}
	root := contentRoot(top)

	var parts []string
	walkElements(root, func(n *xmlquery.Node) {
		if n.Data == "texto" {
			parts = appendText(parts, joinedText(n))
		}
	})
	walkElements(root, func(n *xmlquery.Node) {
		if !structuralNodes[n.Data] {
			return
		}
		head := n.SelectAttr("titulo")
		if head == "" {
			head = n.SelectAttr("nombre")
		}
		parts = appendText(parts, strings.TrimSpace(head))
		walkElements(n, func(p *xmlquery.Node) {
			if isParagraph(p) {
				parts = appendText(parts, joinedText(p))
			}
		})
	})

	if len(parts) == 0 {
		walkElements(root, func(p *xmlquery.Node) {
			if isParagraph(p) {
				parts = appendText(parts, joinedText(p))
			}
		})
	}
	return textnorm.Normalize(strings.Join(parts, "\n")), nil
}

// contentRoot prefers <disposicion>, then <documento>, then the whole tree.
func contentRoot(top *xmlquery.Node) *xmlquery.Node {
	for _, name := range []string{"disposicion", "documento"} {
		if n := xmlquery.FindOne(top, "//"+name); n != nil {
			return n
		}
	}
	return top
}

// walkElements visits the element descendants of n in document order,
// excluding n itself.
func walkElements(n *xmlquery.Node, visit func(*xmlquery.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			visit(c)
		}
		walkElements(c, visit)
	}
}

func isParagraph(n *xmlquery.Node) bool {
	return n.Data == "p" || n.Data == "li"
}

// joinedText joins the trimmed, non-empty text nodes under n with spaces.
func joinedText(n *xmlquery.Node) string {
	var pieces []string
	var walk func(*xmlquery.Node)
	walk = func(node *xmlquery.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				if s := strings.TrimSpace(c.Data); s != "" {
					pieces = append(pieces, s)
				}
			case xmlquery.ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.Join(pieces, " ")
}

func appendText(parts []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return parts
	}
	return append(parts, s)
}
