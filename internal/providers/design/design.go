package design

import "context"

// Document is the structured description handed to the design vendor:
// a heading, a subheading and one section per analysis field.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

type Section struct {
	Title   string
	Content string
}

// Provider creates a designed document and exports it as a PDF.
type Provider interface {
	CreateDesign(ctx context.Context, doc Document) (designID string, err error)
	ExportPDF(ctx context.Context, designID string) (pdfURL string, err error)
}
