package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
)

// PPTXParser reads slide text from an Office Open XML presentation. Slides
// map one to one; the first slide is the title page and the second is the
// outline when it reads like one, as in PDF mode.
type PPTXParser struct {
	Options Options
}

func (p *PPTXParser) SupportedFormats() []string { return []string{"pptx"} }

func (p *PPTXParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PPTX: %v", ErrSourceUnreadable, err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	slideFiles := make(map[int]*zip.File)
	for _, f := range r.File {
		fileIndex[f.Name] = f
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			if num := extractSlideNumber(f.Name); num > 0 {
				slideFiles[num] = f
			}
		}
	}

	nums := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	pages := make([]string, 0, len(nums))
	for _, num := range nums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readZipFile(slideFiles[num])
		if err != nil {
			slog.Debug("pptx: slide unreadable", "slide", num, "error", err)
			pages = append(pages, "")
			continue
		}
		text := extractPPTXSlideText(data)
		for _, img := range pptxSlideImages(data, num, fileIndex) {
			text += "\n[IMAGEM: " + img + "]"
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	result := &ParseResult{
		Method:       "pptx",
		Title:        DefaultDocTitle,
		PageEstimate: PageEstimate{Pages: len(nums), Source: "native", Path: filePath},
	}
	if len(pages) == 0 {
		slog.Warn("pptx: no slides found", "path", filePath)
		return result, nil
	}
	result.Slides, result.Title, result.Author = slidesFromPages(pages, p.Options.withDefaults())
	result.Stats = Stats{Frames: len(pages), Survivors: len(result.Slides)}
	slog.Info("pptx: slides extracted", "path", filePath, "slides", len(result.Slides))
	return result, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// pptxSlideImages lists the media paths embedded in a slide through
// a:blip r:embed relationships.
func pptxSlideImages(slideXML []byte, slideNum int, fileIndex map[string]*zip.File) []string {
	rels := parsePPTXRels(fileIndex, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum))
	if rels == nil {
		return nil
	}

	var images []string
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local != "embed" {
				continue
			}
			target, ok := rels[attr.Value]
			if !ok {
				break
			}
			// targets are relative to ppt/slides/
			mediaPath := path.Clean("ppt/slides/" + target)
			if fileIndex[mediaPath] == nil {
				slog.Debug("pptx: image file not found in ZIP", "path", mediaPath, "rId", attr.Value)
				break
			}
			images = append(images, mediaPath)
			break
		}
	}
	return images
}

type pptxRelationships struct {
	XMLName xml.Name `xml:"Relationships"`
	Rels    []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// parsePPTXRels reads a .rels part and returns an rId -> target map.
func parsePPTXRels(fileIndex map[string]*zip.File, relsPath string) map[string]string {
	relsFile := fileIndex[relsPath]
	if relsFile == nil {
		return nil
	}
	data, err := readZipFile(relsFile)
	if err != nil {
		return nil
	}
	var rels pptxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	result := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		result[rel.ID] = rel.Target
	}
	return result
}

// pptxSlide is the subset of slide XML that carries text.
type pptxSlide struct {
	CSld struct {
		SpTree struct {
			SPs []pptxSP `xml:"sp"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

type pptxSP struct {
	NvSpPr struct {
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *pptxTxBody `xml:"txBody"`
}

type pptxTxBody struct {
	Paras []pptxAPara `xml:"p"`
}

type pptxAPara struct {
	Runs []pptxARun `xml:"r"`
}

type pptxARun struct {
	Text string `xml:"t"`
}

// extractPPTXSlideText returns the title placeholder text first, then the
// remaining paragraphs in shape order.
func extractPPTXSlideText(data []byte) string {
	var slide pptxSlide
	if err := xml.Unmarshal(data, &slide); err != nil {
		return ""
	}

	var title, body []string
	for _, sp := range slide.CSld.SpTree.SPs {
		if sp.TxBody == nil {
			continue
		}
		isTitle := false
		if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
			isTitle = ph.Type == "title" || ph.Type == "ctrTitle"
		}
		for _, para := range sp.TxBody.Paras {
			var line strings.Builder
			for _, run := range para.Runs {
				line.WriteString(run.Text)
			}
			t := strings.TrimSpace(line.String())
			switch {
			case t == "":
			case isTitle:
				title = append(title, t)
			default:
				body = append(body, t)
			}
		}
	}
	lines := body
	if len(title) > 0 {
		lines = append([]string{strings.Join(title, " ")}, body...)
	}
	return strings.Join(lines, "\n")
}

func extractSlideNumber(name string) int {
	// "ppt/slides/slide1.xml"
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}
