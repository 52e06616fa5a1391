// Package gazette defines the bulletin item record shared across the pipeline.
package gazette

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in emitted records.
const DateLayout = "2006-01-02"

// Item is one gazette entry announced in a daily summary.
//
// The parser fills the catalog fields, the orchestrator stamps the date and
// theme, and text extraction optionally fills Text. Items are not mutated
// after they are handed to a sink.
type Item struct {
	ID           string
	Date         time.Time
	IssueNumber  string
	SectionCode  string
	SectionName  string
	DeptCode     string
	DeptName     string
	EpigraphName string
	Title        string
	HTMLURL      string
	XMLURL       string
	PDFURL       string
	PDFBytes     string
	PDFKBytes    string
	PageStart    string
	PageEnd      string
	Theme        string
	Text         string
}

// Stamp sets the publication date of the item.
func (it *Item) Stamp(date time.Time) {
	it.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// Month returns the YYYY-MM bucket of the item date, or "" when unset.
func (it Item) Month() string {
	if it.Date.IsZero() {
		return ""
	}
	return it.Date.Format("2006-01")
}

// Quarter returns Q1..Q4 for the item date, or "" when unset.
func (it Item) Quarter() string {
	if it.Date.IsZero() {
		return ""
	}
	return QuarterOf(it.Date.Month())
}

// QuarterOf maps a calendar month to its quarter label.
func QuarterOf(m time.Month) string {
	return fmt.Sprintf("Q%d", (int(m)-1)/3+1)
}

// Record is the flat, stable-schema view of an Item handed to sinks.
// Every field is always present; missing values are empty strings.
type Record struct {
	ID           string `json:"identificador"`
	Date         string `json:"fecha"`
	IssueNumber  string `json:"diario_numero"`
	SectionCode  string `json:"seccion_codigo"`
	SectionName  string `json:"seccion_nombre"`
	DeptCode     string `json:"departamento_codigo"`
	DeptName     string `json:"departamento_nombre"`
	EpigraphName string `json:"epigrafe_nombre"`
	Title        string `json:"titulo"`
	HTMLURL      string `json:"url_html"`
	XMLURL       string `json:"url_xml"`
	PDFURL       string `json:"url_pdf"`
	PDFBytes     string `json:"sz_bytes"`
	PDFKBytes    string `json:"sz_kbytes"`
	PageStart    string `json:"pagina_inicial"`
	PageEnd      string `json:"pagina_final"`
	Theme        string `json:"tematica"`
	Text         string `json:"texto_limpio"`
	Month        string `json:"mes"`
	Quarter      string `json:"trimestre"`
}

// Record flattens the item for serialization.
func (it Item) Record() Record {
	date := ""
	if !it.Date.IsZero() {
		date = it.Date.Format(DateLayout)
	}
	return Record{
		ID:           it.ID,
		Date:         date,
		IssueNumber:  it.IssueNumber,
		SectionCode:  it.SectionCode,
		SectionName:  it.SectionName,
		DeptCode:     it.DeptCode,
		DeptName:     it.DeptName,
		EpigraphName: it.EpigraphName,
		Title:        it.Title,
		HTMLURL:      it.HTMLURL,
		XMLURL:       it.XMLURL,
		PDFURL:       it.PDFURL,
		PDFBytes:     it.PDFBytes,
		PDFKBytes:    it.PDFKBytes,
		PageStart:    it.PageStart,
		PageEnd:      it.PageEnd,
		Theme:        it.Theme,
		Text:         it.Text,
		Month:        it.Month(),
		Quarter:      it.Quarter(),
	}
}
