// Package ooxml opens Word (.docx) and PowerPoint (.pptx) packages as document hosts.
// The pictures embedded in the package play the role of the selection: inline
// pictures for Word, shapes for PowerPoint. Replacements are kept in memory until
// the package is written back out.
//
// Usage:
//
//	pkg, err := ooxml.Open("deck.pptx")
//	orch, _ := pipeline.New(pkg.Host(), pipeline.Config{})
//	res := orch.Run(ctx, pipeline.Trigger{})
//	err = pkg.WriteFile("deck.inverted.pptx")
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
)

// Type is the package flavour.
type Type string

// Type constants
const (
	TypeDocx Type = "docx"
	TypePptx Type = "pptx"
)

// DefaultMaxSize bounds the uncompressed size of a package (512 MiB).
const DefaultMaxSize = 512 << 20

const contentTypesPart = "[Content_Types].xml"

type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

type replacement struct {
	data   []byte
	format images.ImageFormat
}

// Package is an opened OOXML package. It is safe for concurrent use.
type Package struct {
	mu sync.Mutex

	typ      Type
	parts    []*part
	index    map[string]*part
	media    []string
	selected []int
	replaced map[string]replacement
}

// Open reads a package from disk.
//
// Arguments:
// - name: Path to a .docx or .pptx file.
//
// Returns:
// - *Package: The opened package with every picture selected.
// - error: When the file is not a readable Word or PowerPoint package.
func Open(name string) (*Package, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	pkg, err := Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filepath.Base(name))
	}
	return pkg, nil
}

// Read parses a package held in memory.
func Read(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "open zip")
	}

	pkg := &Package{
		index:    make(map[string]*part, len(zr.File)),
		replaced: make(map[string]replacement),
	}
	var total uint64
	for _, f := range zr.File {
		total += f.UncompressedSize64
		if total > DefaultMaxSize {
			return nil, errors.Errorf("package expands beyond %d bytes", DefaultMaxSize)
		}
		data, err := readPart(f)
		if err != nil {
			return nil, err
		}
		p := &part{name: f.Name, method: f.Method, modified: f.Modified, data: data}
		pkg.parts = append(pkg.parts, p)
		pkg.index[f.Name] = p
	}

	switch {
	case pkg.index["word/document.xml"] != nil:
		pkg.typ = TypeDocx
	case pkg.index["ppt/presentation.xml"] != nil:
		pkg.typ = TypePptx
	default:
		return nil, errors.New("neither word/document.xml nor ppt/presentation.xml found in archive")
	}

	pkg.media = pkg.orderedMedia()
	pkg.selectAll()
	return pkg, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", f.Name)
	}
	return data, nil
}

// Type returns the package flavour.
func (p *Package) Type() Type { return p.typ }

// Media lists the picture parts in document order.
func (p *Package) Media() []string {
	return append([]string(nil), p.media...)
}

// Select marks the pictures at the given indices of Media as the selection.
// Without indices every picture is selected.
func (p *Package) Select(indices ...int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(indices) == 0 {
		p.selectAll()
		return nil
	}
	for _, i := range indices {
		if i < 0 || i >= len(p.media) {
			return errors.Errorf("picture index %d out of range [0, %d)", i, len(p.media))
		}
	}
	p.selected = append([]int(nil), indices...)
	return nil
}

func (p *Package) selectAll() {
	p.selected = make([]int, len(p.media))
	for i := range p.selected {
		p.selected[i] = i
	}
}

// Replaced reports how many pictures have been written back.
func (p *Package) Replaced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.replaced)
}

// image returns the current bytes of a media part.
func (p *Package) image(name string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.replaced[name]; ok {
		return r.data
	}
	if pt := p.index[name]; pt != nil {
		return pt.data
	}
	return nil
}

func (p *Package) replace(name string, data []byte) error {
	format, ok := images.Sniff(data)
	if !ok {
		return errors.Errorf("replacement for %s is not an image", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index[name] == nil {
		return errors.Errorf("no such picture %s", name)
	}
	p.replaced[name] = replacement{data: data, format: format}
	return nil
}

// orderedMedia lists media parts in the order the main parts reference them,
// followed by any unreferenced media.
func (p *Package) orderedMedia() []string {
	var mains []string
	if p.typ == TypeDocx {
		mains = []string{"word/document.xml"}
	} else {
		mains = p.slides()
	}

	seen := make(map[string]bool)
	var out []string
	for _, main := range mains {
		rels := p.relationships(main)
		for _, id := range p.embeds(main) {
			target, ok := rels[id]
			if !ok || seen[target] || !isMedia(target) || p.index[target] == nil {
				continue
			}
			seen[target] = true
			out = append(out, target)
		}
	}

	var rest []string
	for _, pt := range p.parts {
		if isMedia(pt.name) && !seen[pt.name] {
			rest = append(rest, pt.name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func isMedia(name string) bool {
	return strings.HasPrefix(name, "word/media/") || strings.HasPrefix(name, "ppt/media/")
}

// slides returns ppt/slides/slideN.xml sorted by N.
func (p *Package) slides() []string {
	var names []string
	for _, pt := range p.parts {
		if strings.HasPrefix(pt.name, "ppt/slides/slide") && strings.HasSuffix(pt.name, ".xml") {
			names = append(names, pt.name)
		}
	}
	num := func(s string) int {
		n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "ppt/slides/slide"), ".xml"))
		return n
	}
	sort.Slice(names, func(i, j int) bool { return num(names[i]) < num(names[j]) })
	return names
}

// relationships maps relationship ids of a part to resolved part names.
func (p *Package) relationships(name string) map[string]string {
	dir, file := path.Split(name)
	rels := p.index[dir+"_rels/"+file+".rels"]
	out := make(map[string]string)
	if rels == nil {
		return out
	}

	var doc struct {
		Relationships []struct {
			ID         string `xml:"Id,attr"`
			Target     string `xml:"Target,attr"`
			TargetMode string `xml:"TargetMode,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(rels.data, &doc); err != nil {
		return out
	}
	for _, r := range doc.Relationships {
		if strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join(dir, target)
		}
		out[r.ID] = target
	}
	return out
}

// embeds returns the relationship ids of r:embed attributes in document order.
func (p *Package) embeds(name string) []string {
	pt := p.index[name]
	if pt == nil {
		return nil
	}
	var ids []string
	decoder := xml.NewDecoder(bytes.NewReader(pt.data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "embed" && attr.Value != "" {
				ids = append(ids, attr.Value)
			}
		}
	}
	return ids
}
