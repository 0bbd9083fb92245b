// ABOUTME: OPML parsing and writing for feed subscription interchange
// ABOUTME: Carries per-feed preference attributes; unknown attributes are tolerated on import

package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Document represents an OPML document with a title and a flat outline list.
type Document struct {
	Title    string
	Outlines []Outline
}

// Outline represents one feed subscription in the interchange document.
// The preference attributes are this application's extensions; importers of
// plain OPML simply never set them.
type Outline struct {
	Text              string
	Title             string
	Type              string
	XMLURL            string
	HTMLURL           string
	OpenInBrowser     bool
	BlockedWords      string
	ShowPreviewImages *bool
}

// XML structs for parsing and writing OPML files.
type opmlXML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Title string `xml:"title"`
}

type bodyXML struct {
	Outlines []outlineXML `xml:"outline"`
}

type outlineXML struct {
	Text              string       `xml:"text,attr"`
	Title             string       `xml:"title,attr,omitempty"`
	Type              string       `xml:"type,attr,omitempty"`
	XMLURL            string       `xml:"xmlUrl,attr,omitempty"`
	HTMLURL           string       `xml:"htmlUrl,attr,omitempty"`
	OpenInBrowser     string       `xml:"openInBrowser,attr,omitempty"`
	BlockedWords      string       `xml:"blockedWords,attr,omitempty"`
	ShowPreviewImages string       `xml:"showPreviewImages,attr,omitempty"`
	Children          []outlineXML `xml:"outline,omitempty"`
}

// NewDocument creates a new empty OPML document with the given title.
func NewDocument(title string) *Document {
	return &Document{Title: title}
}

// Parse reads OPML data from an io.Reader and returns a Document. Nested
// folder outlines are flattened; unknown attributes are ignored.
func Parse(r io.Reader) (*Document, error) {
	var opml opmlXML
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&opml); err != nil {
		return nil, fmt.Errorf("failed to decode OPML: %w", err)
	}

	doc := &Document{Title: opml.Head.Title}
	for _, outline := range opml.Body.Outlines {
		doc.Outlines = append(doc.Outlines, flattenOutline(outline)...)
	}
	return doc, nil
}

// ParseFile reads OPML data from a file and returns a Document.
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// flattenOutline collects the feed outlines below (and including) the given
// node. Folder structure is not preserved; only feed nodes matter here.
func flattenOutline(o outlineXML) []Outline {
	var out []Outline
	if o.XMLURL != "" {
		outline := Outline{
			Text:          o.Text,
			Title:         o.Title,
			Type:          o.Type,
			XMLURL:        o.XMLURL,
			HTMLURL:       o.HTMLURL,
			BlockedWords:  o.BlockedWords,
			OpenInBrowser: o.OpenInBrowser == "true",
		}
		if o.ShowPreviewImages != "" {
			if v, err := strconv.ParseBool(o.ShowPreviewImages); err == nil {
				outline.ShowPreviewImages = &v
			}
		}
		out = append(out, outline)
	}
	for _, child := range o.Children {
		out = append(out, flattenOutline(child)...)
	}
	return out
}

// AddOutline appends a feed outline to the document.
func (d *Document) AddOutline(o Outline) {
	d.Outlines = append(d.Outlines, o)
}

// HasFeed reports whether a feed with the given URL exists in the document.
func (d *Document) HasFeed(url string) bool {
	for _, o := range d.Outlines {
		if o.XMLURL == url {
			return true
		}
	}
	return false
}

// XML serializes the document, emitting all known preference attributes.
func (d *Document) XML() ([]byte, error) {
	doc := opmlXML{
		Version: "2.0",
		Head:    headXML{Title: d.Title},
	}

	for _, o := range d.Outlines {
		x := outlineXML{
			Text:         o.Text,
			Title:        o.Title,
			Type:         o.Type,
			XMLURL:       o.XMLURL,
			HTMLURL:      o.HTMLURL,
			BlockedWords: o.BlockedWords,
		}
		if x.Type == "" {
			x.Type = "rss"
		}
		if o.OpenInBrowser {
			x.OpenInBrowser = "true"
		}
		if o.ShowPreviewImages != nil {
			x.ShowPreviewImages = strconv.FormatBool(*o.ShowPreviewImages)
		}
		doc.Body.Outlines = append(doc.Body.Outlines, x)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OPML: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Write serializes the document to w.
func (d *Document) Write(w io.Writer) error {
	data, err := d.XML()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes the document to a file.
func (d *Document) Save(path string) error {
	data, err := d.XML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
