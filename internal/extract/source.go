package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Source is a document to extract notes from: free text, one or more
// images, or both.
type Source struct {
	Name   string // file name or label, for logs
	Text   string
	Images [][]byte
}

// TextSource returns a source holding document text.
func TextSource(text string) Source {
	return Source{Name: "text", Text: text}
}

// ImageSource returns a source holding one or more images.
func ImageSource(images ...[]byte) Source {
	return Source{Name: "image", Images: images}
}

// Kind is "image" when the source carries images, "text" otherwise.
func (s Source) Kind() string {
	if len(s.Images) > 0 {
		return "image"
	}
	return "text"
}

// Empty reports whether the source has nothing to extract from.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.Text) == "" && len(s.Images) == 0
}

// LoadSource reads a document from disk.
//
// .txt and .md files are read as text, .html and .htm files are reduced to
// their visible text, .pdf files contribute their embedded images. Anything
// else is sniffed: images are sent as images, plain text as text.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read source: %w", err)
	}
	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		return Source{Name: name, Text: string(data)}, nil
	case ".html", ".htm":
		text, err := htmlText(data)
		if err != nil {
			return Source{}, fmt.Errorf("failed to parse HTML %s: %w", name, err)
		}
		return Source{Name: name, Text: text}, nil
	case ".pdf":
		images, err := pdfImages(data)
		if err != nil {
			return Source{}, fmt.Errorf("failed to read PDF %s: %w", name, err)
		}
		return Source{Name: name, Images: images}, nil
	}

	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return Source{Name: name, Images: [][]byte{data}}, nil
	case strings.HasPrefix(contentType, "text/html"):
		text, err := htmlText(data)
		if err != nil {
			return Source{}, fmt.Errorf("failed to parse HTML %s: %w", name, err)
		}
		return Source{Name: name, Text: text}, nil
	case strings.HasPrefix(contentType, "text/plain"):
		return Source{Name: name, Text: string(data)}, nil
	case contentType == "application/pdf":
		images, err := pdfImages(data)
		if err != nil {
			return Source{}, fmt.Errorf("failed to read PDF %s: %w", name, err)
		}
		return Source{Name: name, Images: images}, nil
	}
	return Source{}, fmt.Errorf("unsupported source %s (%s)", name, contentType)
}

// htmlText returns the visible text of an HTML document, one non-blank line
// per line of output.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, head").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	// Table cells run together in Text(); separate them.
	sel.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cell.AppendHtml(" ")
	})
	sel.Find("br, p, div, tr, li, h1, h2, h3, h4").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// pdfImages returns the images embedded in a PDF in page order. Scanned term
// sheets are one image per page.
func pdfImages(data []byte) ([][]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, err
	}

	var images [][]byte
	for _, page := range pages {
		objNrs := make([]int, 0, len(page))
		for objNr := range page {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			b, err := io.ReadAll(page[objNr])
			if err != nil {
				return nil, fmt.Errorf("failed to read image object %d: %w", objNr, err)
			}
			images = append(images, b)
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no embedded images")
	}
	return images, nil
}
