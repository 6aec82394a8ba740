package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Word and PowerPoint files are OOXML packages: a zip archive of XML parts.
// The document text lives in w:t (Word) and a:t (DrawingML) elements; w:p
// and a:p elements mark paragraph boundaries.

// extractWord reads word/document.xml and emits paragraph texts in document
// order, one per line.
func extractWord(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx failed: %w", err)
	}

	part := findPart(zr, "word/document.xml")
	if part == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}
	paragraphs, err := partParagraphs(part)
	if err != nil {
		return "", fmt.Errorf("parse docx failed: %w", err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// extractPresentation walks ppt/slides/slideN.xml in slide order, emitting a
// slide-number header and then the text of every text-bearing shape.
func extractPresentation(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx failed: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var sb strings.Builder
	for i, slide := range slides {
		paragraphs, err := partParagraphs(slide)
		if err != nil {
			return "", fmt.Errorf("parse slide %d failed: %w", i+1, err)
		}
		sb.WriteString(fmt.Sprintf("\n\nSlide %d:\n", i+1))
		for _, p := range paragraphs {
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// partParagraphs streams an OOXML part and collects text runs, breaking at
// paragraph end elements. Empty paragraphs are kept so blank lines survive.
func partParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	// Text outside any paragraph element, or a trailing unterminated one.
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs, nil
}

func slideNumber(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n := 0
	for _, r := range base {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
