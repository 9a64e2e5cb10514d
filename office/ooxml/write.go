package ooxml

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
)

// Write serializes the package with every replacement applied. A replaced picture
// whose format differs from its part extension is renamed, and the relationships
// and content types referencing it are updated to match.
func (p *Package) Write(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	renames := p.renames()
	contentTypes := p.contentTypes(renames)

	zw := zip.NewWriter(w)
	for _, pt := range p.parts {
		name, data := pt.name, pt.data
		if r, ok := p.replaced[name]; ok {
			data = r.data
		}
		if to, ok := renames[name]; ok {
			name = to
		}
		switch {
		case name == contentTypesPart:
			data = contentTypes
		case strings.HasSuffix(name, ".rels") && len(renames) > 0:
			data = rewriteTargets(data, renames)
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: pt.method, Modified: pt.modified})
		if err != nil {
			return errors.Wrapf(err, "create %s", name)
		}
		if _, err := fw.Write(data); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
	}
	return errors.Wrap(zw.Close(), "close zip")
}

// WriteFile writes the package to name through a temporary file in the same
// directory, so a failed write never leaves a truncated document behind.
func (p *Package) WriteFile(name string) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := p.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), name), "rename to %s", name)
}

// renames picks a new part name for every replacement whose extension no longer
// matches its content.
func (p *Package) renames() map[string]string {
	out := make(map[string]string)
	for name, r := range p.replaced {
		if extFormat(name) == r.format {
			continue
		}
		base := strings.TrimSuffix(name, path.Ext(name))
		ext := "." + string(r.format)
		to := base + ext
		for i := 1; p.index[to] != nil || taken(out, to); i++ {
			to = base + "_" + strconv.Itoa(i) + ext
		}
		out[name] = to
	}
	return out
}

func taken(renames map[string]string, name string) bool {
	for _, v := range renames {
		if v == name {
			return true
		}
	}
	return false
}

func extFormat(name string) images.ImageFormat {
	f, _ := images.ParseFormat(strings.TrimPrefix(path.Ext(name), "."))
	return f
}

// rewriteTargets points relationship targets at renamed parts. Targets are matched
// on their trailing "media/<file>" segment, which covers both "media/x" and
// "../media/x" forms.
func rewriteTargets(data []byte, renames map[string]string) []byte {
	for from, to := range renames {
		old := []byte("media/" + path.Base(from) + `"`)
		repl := []byte("media/" + path.Base(to) + `"`)
		data = bytes.ReplaceAll(data, old, repl)
	}
	return data
}

// contentTypes returns [Content_Types].xml with Override entries of renamed parts
// pointed at their new names and a Default entry for every extension introduced
// by a rename.
func (p *Package) contentTypes(renames map[string]string) []byte {
	pt := p.index[contentTypesPart]
	if pt == nil {
		return nil
	}
	data := pt.data
	for from, to := range renames {
		override := regexp.MustCompile(`<Override\s[^>]*PartName="/` + regexp.QuoteMeta(from) + `"[^>]*/>`)
		entry := `<Override PartName="/` + to + `" ContentType="` + extFormat(to).MIMEType() + `"/>`
		data = override.ReplaceAllLiteral(data, []byte(entry))
	}
	lower := strings.ToLower(string(data))
	var add strings.Builder
	for _, to := range renames {
		ext := strings.TrimPrefix(path.Ext(to), ".")
		marker := `extension="` + ext + `"`
		if strings.Contains(lower, marker) || strings.Contains(strings.ToLower(add.String()), marker) {
			continue
		}
		add.WriteString(`<Default Extension="` + ext + `" ContentType="` + images.ImageFormat(ext).MIMEType() + `"/>`)
	}
	if add.Len() == 0 {
		return data
	}
	i := bytes.LastIndex(data, []byte("</Types>"))
	if i < 0 {
		return data
	}
	out := make([]byte, 0, len(data)+add.Len())
	out = append(out, data[:i]...)
	out = append(out, add.String()...)
	return append(out, data[i:]...)
}
