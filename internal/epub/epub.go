// Package epub reads and rewrites EPUB containers at the zip level.
//
// Reading resolves META-INF/container.xml to the package document and
// exposes the spine's content documents in reading order. Writing
// copies every entry of the source container verbatim except the
// explicitly replaced ones, so untouched chapters survive byte for
// byte, and keeps the mimetype entry first and uncompressed as the
// format requires. The package document is patched textually when a
// stylesheet is added, never re-serialized.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
)

const (
	mimetypeEntry  = "mimetype"
	containerEntry = "META-INF/container.xml"
	epubMediaType  = "application/epub+zip"
	opfMediaType   = "application/oebps-package+xml"
	docMediaType   = "application/xhtml+xml"
)

// manifestClose finds the manifest end tag, namespace prefix included.
var manifestClose = regexp.MustCompile(`</(?:[A-Za-z][\w.-]*:)?manifest>`)

// containerXML mirrors container.xml far enough to find the package
// document.
type containerXML struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// packageXML mirrors the package document far enough to walk the
// manifest and spine.
type packageXML struct {
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Document is one spine-ordered content document.
type Document struct {
	ID   string
	Href string // as written in the manifest, relative to the package document
	Path string // resolved zip entry name
}

// Book is an opened EPUB container. It is not safe for concurrent
// mutation; concurrent ReadDocument calls are fine once staging stops.
type Book struct {
	path     string
	zr       *zip.ReadCloser
	files    map[string]*zip.File
	ids      map[string]bool
	opfPath  string
	docs     []Document
	replaced map[string][]byte
	cssID    string
	cssPath  string
	cssData  []byte
}

// Open reads the container structure of the EPUB at path.
func Open(path string) (*Book, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	b := &Book{
		path:     path,
		zr:       zr,
		files:    make(map[string]*zip.File, len(zr.File)),
		ids:      make(map[string]bool),
		replaced: make(map[string][]byte),
	}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}
	if err := b.parse(); err != nil {
		zr.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Close releases the source container.
func (b *Book) Close() error {
	return b.zr.Close()
}

// Path returns the location the book was opened from.
func (b *Book) Path() string {
	return b.path
}

func (b *Book) parse() error {
	data, err := b.readEntry(containerEntry)
	if err != nil {
		return err
	}
	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parsing %s: %w", containerEntry, err)
	}
	for _, rf := range c.Rootfiles {
		if rf.MediaType == opfMediaType {
			b.opfPath = rf.FullPath
			break
		}
	}
	if b.opfPath == "" && len(c.Rootfiles) > 0 {
		b.opfPath = c.Rootfiles[0].FullPath
	}
	if b.opfPath == "" {
		return fmt.Errorf("%s names no package document", containerEntry)
	}

	data, err = b.readEntry(b.opfPath)
	if err != nil {
		return err
	}
	var pkg packageXML
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return fmt.Errorf("parsing %s: %w", b.opfPath, err)
	}

	items := make(map[string]manifestItem, len(pkg.Manifest.Items))
	for _, it := range pkg.Manifest.Items {
		items[it.ID] = it
		b.ids[it.ID] = true
	}

	opfDir := path.Dir(b.opfPath)
	for _, ref := range pkg.Spine.Itemrefs {
		it, ok := items[ref.IDRef]
		if !ok || it.MediaType != docMediaType || hasProperty(it.Properties, "nav") {
			continue
		}
		href := it.Href
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		b.docs = append(b.docs, Document{
			ID:   it.ID,
			Href: it.Href,
			Path: path.Join(opfDir, href),
		})
	}
	return nil
}

func hasProperty(properties, want string) bool {
	for _, p := range strings.Fields(properties) {
		if p == want {
			return true
		}
	}
	return false
}

// Documents returns the spine's content documents in reading order,
// excluding the navigation document.
func (b *Book) Documents() []Document {
	return b.docs
}

// ReadDocument returns the current bytes of a content document,
// honoring a staged replacement.
func (b *Book) ReadDocument(d Document) ([]byte, error) {
	if data, ok := b.replaced[d.Path]; ok {
		return data, nil
	}
	return b.readEntry(d.Path)
}

func (b *Book) readEntry(name string) ([]byte, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("no %s entry", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Replace stages new content for a zip entry. The source container is
// never modified; WriteTo emits the staged bytes instead of the
// original entry.
func (b *Book) Replace(name string, content []byte) {
	b.replaced[name] = content
}

// AddStylesheet stages a CSS file stored next to the package document
// and registers it in the manifest on write. It returns the chosen zip
// path, which stays stable for StylesheetHref.
func (b *Book) AddStylesheet(name string, css []byte) string {
	dir := path.Join(path.Dir(b.opfPath), "styles")

	entry := path.Join(dir, name)
	for i := 2; ; i++ {
		if _, taken := b.files[entry]; !taken {
			break
		}
		entry = path.Join(dir, fmt.Sprintf("%d-%s", i, name))
	}

	id := "gloss-style"
	for i := 2; b.ids[id]; i++ {
		id = fmt.Sprintf("gloss-style-%d", i)
	}

	b.cssID = id
	b.cssPath = entry
	b.cssData = css
	return entry
}

// DropStylesheet removes a staged stylesheet, for runs that end up
// annotating nothing.
func (b *Book) DropStylesheet() {
	b.cssID = ""
	b.cssPath = ""
	b.cssData = nil
}

// StylesheetHref returns the relative href a document at docPath uses
// to link the staged stylesheet, or "" when none is staged.
func (b *Book) StylesheetHref(docPath string) string {
	if b.cssPath == "" {
		return ""
	}
	return relPath(path.Dir(docPath), b.cssPath)
}

// relPath builds a slash-separated path from directory from to target.
func relPath(from, target string) string {
	if from == "." {
		return target
	}
	fromParts := strings.Split(from, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(fromParts) && common < len(targetParts)-1 &&
		fromParts[common] == targetParts[common] {
		common++
	}

	parts := make([]string, 0, len(fromParts)-common+len(targetParts)-common)
	for range fromParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, targetParts[common:]...)
	return path.Join(parts...)
}

// WriteTo writes the rewritten container to outPath: mimetype first
// and stored, staged replacements re-compressed, everything else
// raw-copied from the source zip.
func (b *Book) WriteTo(outPath string) (err error) {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeEntry, Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, epubMediaType); err != nil {
		return err
	}

	opfData, err := b.patchedOPF()
	if err != nil {
		return err
	}

	for _, f := range b.zr.File {
		switch {
		case f.Name == mimetypeEntry:
			continue
		case f.Name == b.opfPath && opfData != nil:
			err = writeEntry(zw, f.Name, opfData)
		default:
			if data, staged := b.replaced[f.Name]; staged {
				err = writeEntry(zw, f.Name, data)
			} else {
				err = zw.Copy(f)
			}
		}
		if err != nil {
			return fmt.Errorf("writing entry %s: %w", f.Name, err)
		}
	}

	if b.cssPath != "" {
		if err := writeEntry(zw, b.cssPath, b.cssData); err != nil {
			return fmt.Errorf("writing entry %s: %w", b.cssPath, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", outPath, err)
	}
	return nil
}

// patchedOPF inserts the stylesheet manifest item before the manifest
// end tag, leaving every other byte of the package document alone.
func (b *Book) patchedOPF() ([]byte, error) {
	if b.cssPath == "" {
		return nil, nil
	}
	data, err := b.readEntry(b.opfPath)
	if err != nil {
		return nil, err
	}
	loc := manifestClose.FindIndex(data)
	if loc == nil {
		return nil, fmt.Errorf("%s has no manifest element", b.opfPath)
	}

	href := relPath(path.Dir(b.opfPath), b.cssPath)
	item := fmt.Sprintf("  <item id=%q href=%q media-type=\"text/css\"/>\n", b.cssID, href)

	patched := make([]byte, 0, len(data)+len(item))
	patched = append(patched, data[:loc[0]]...)
	patched = append(patched, item...)
	patched = append(patched, data[loc[0]:]...)
	return patched, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
