package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDocx reads word/document.xml from the DOCX archive and returns
// one section per non-empty paragraph and one per table row, in document
// order. Table cells are joined with " | ".
func extractDocx(data []byte) (string, []Section, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	w := &docxWalker{}
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("parse document.xml: %w", err)
		}
		w.token(tok)
	}
	return w.title, w.sections, nil
}

// docxWalker accumulates paragraphs and table rows from the token stream.
// Nested tables are flattened into the enclosing cell.
type docxWalker struct {
	sections []Section
	title    string

	para      strings.Builder
	inPara    bool
	inText    bool
	style     string
	tableDep  int
	cell      strings.Builder
	cells     []string
	rowNumber int
}

func (w *docxWalker) token(tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		switch t.Name.Local {
		case "tbl":
			w.tableDep++
		case "tr":
			if w.tableDep == 1 {
				w.cells = w.cells[:0]
			}
		case "tc":
			if w.tableDep == 1 {
				w.cell.Reset()
			}
		case "p":
			w.inPara = true
			w.para.Reset()
			w.style = ""
		case "pStyle":
			if w.inPara {
				w.style = attrVal(t, "val")
			}
		case "t":
			w.inText = w.inPara
		case "tab":
			if w.inPara {
				w.para.WriteByte(' ')
			}
		case "br", "cr":
			if w.inPara {
				w.para.WriteByte('\n')
			}
		}

	case xml.CharData:
		if w.inText {
			w.para.Write(t)
		}

	case xml.EndElement:
		switch t.Name.Local {
		case "t":
			w.inText = false
		case "p":
			w.endParagraph()
		case "tc":
			if w.tableDep == 1 {
				w.cells = append(w.cells, strings.TrimSpace(w.cell.String()))
			}
		case "tr":
			if w.tableDep == 1 {
				w.endRow()
			}
		case "tbl":
			if w.tableDep > 0 {
				w.tableDep--
			}
		}
	}
}

func (w *docxWalker) endParagraph() {
	w.inPara = false
	text := strings.TrimSpace(w.para.String())
	if text == "" {
		return
	}
	if w.tableDep > 0 {
		if w.cell.Len() > 0 {
			w.cell.WriteByte(' ')
		}
		w.cell.WriteString(text)
		return
	}

	level := docxHeadingLevel(w.style)
	if level > 0 {
		if w.title == "" {
			w.title = text
		}
		w.sections = append(w.sections, Section{Title: text, Level: level, Text: text, Type: "heading"})
		return
	}
	w.sections = append(w.sections, Section{Text: text, Type: "paragraph"})
}

func (w *docxWalker) endRow() {
	var nonEmpty []string
	for _, c := range w.cells {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return
	}
	w.rowNumber++
	w.sections = append(w.sections, Section{
		Text:     strings.Join(nonEmpty, " | "),
		Type:     "table",
		Metadata: map[string]string{"row": fmt.Sprint(w.rowNumber)},
	})
}

func attrVal(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxHeadingLevel maps a paragraph style to a heading level:
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2, body styles → 0.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
