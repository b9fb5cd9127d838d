package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">urn:uuid:5b9a652a-4a14-4b79-991b-7766c9f6e11e</dc:identifier>
    <dc:title>Fixture Book</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const testNav = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Contents</title></head>
<body><nav epub:type="toc" xmlns:epub="http://www.idpf.org/2007/ops"><ol>
<li><a href="text/ch1.xhtml">One</a></li>
</ol></nav></body>
</html>`

const testChapter1 = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 1</title></head>
<body><p>The gazebo stood in the garden.</p></body>
</html>`

const testChapter2 = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 2</title></head>
<body><p>Rain fell on the harbor.</p></body>
</html>`

type fixtureEntry struct {
	name string
	data string
}

func defaultFixture() []fixtureEntry {
	return []fixtureEntry{
		{"META-INF/container.xml", testContainer},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/nav.xhtml", testNav},
		{"OEBPS/text/ch1.xhtml", testChapter1},
		{"OEBPS/text/ch2.xhtml", testChapter2},
		{"OEBPS/images/cover.png", "\x89PNG fake image bytes"},
	}
}

// writeFixture builds an EPUB on disk: mimetype first and stored,
// then the given entries in order.
func writeFixture(t *testing.T, entries []fixtureEntry) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}

	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("writing mimetype: %v", err)
	}
	if _, err := io.WriteString(w, "application/epub+zip"); err != nil {
		t.Fatalf("writing mimetype: %v", err)
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("creating entry %s: %v", e.name, err)
		}
		if _, err := io.WriteString(w, e.data); err != nil {
			t.Fatalf("writing entry %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing fixture: %v", err)
	}
	return p
}

func readZipEntry(t *testing.T, zipPath, name string) []byte {
	t.Helper()

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("opening %s: %v", zipPath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading entry %s: %v", name, err)
		}
		return data
	}
	t.Fatalf("%s has no entry %s", zipPath, name)
	return nil
}

func TestOpenDocuments(t *testing.T) {
	book, err := Open(writeFixture(t, defaultFixture()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	docs := book.Documents()
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2: %+v", len(docs), docs)
	}
	if docs[0].Path != "OEBPS/text/ch1.xhtml" || docs[1].Path != "OEBPS/text/ch2.xhtml" {
		t.Errorf("documents out of spine order: %+v", docs)
	}
	if docs[0].ID != "ch1" || docs[0].Href != "text/ch1.xhtml" {
		t.Errorf("first document = %+v", docs[0])
	}
	for _, d := range docs {
		if d.ID == "nav" {
			t.Error("navigation document should be excluded from Documents()")
		}
	}
}

func TestReadDocumentHonorsReplace(t *testing.T) {
	book, err := Open(writeFixture(t, defaultFixture()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	doc := book.Documents()[0]
	data, err := book.ReadDocument(doc)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if string(data) != testChapter1 {
		t.Errorf("ReadDocument returned wrong bytes:\n%s", data)
	}

	staged := []byte("<html><body>rewritten</body></html>")
	book.Replace(doc.Path, staged)
	data, err = book.ReadDocument(doc)
	if err != nil {
		t.Fatalf("ReadDocument after Replace: %v", err)
	}
	if !bytes.Equal(data, staged) {
		t.Errorf("ReadDocument did not return staged bytes: %s", data)
	}
}

func TestWriteTo(t *testing.T) {
	src := writeFixture(t, defaultFixture())
	book, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	staged := []byte(`<?xml version="1.0"?><html><body><p>new chapter one</p></body></html>`)
	book.Replace("OEBPS/text/ch1.xhtml", staged)
	css := []byte("ruby { color: gray }\n")
	book.AddStylesheet("gloss.css", css)

	out := filepath.Join(t.TempDir(), "book_annotated.epub")
	if err := book.WriteTo(out); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	defer zr.Close()

	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Errorf("first entry = %s, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype entry is compressed")
	}

	if got := readZipEntry(t, out, "OEBPS/text/ch1.xhtml"); !bytes.Equal(got, staged) {
		t.Errorf("replaced entry wrong:\n%s", got)
	}
	if got := readZipEntry(t, out, "OEBPS/text/ch2.xhtml"); string(got) != testChapter2 {
		t.Errorf("untouched entry not preserved byte for byte:\n%s", got)
	}
	if got := readZipEntry(t, out, "OEBPS/images/cover.png"); string(got) != "\x89PNG fake image bytes" {
		t.Errorf("binary entry not preserved")
	}
	if got := readZipEntry(t, out, "OEBPS/styles/gloss.css"); !bytes.Equal(got, css) {
		t.Errorf("stylesheet entry wrong:\n%s", got)
	}

	opf := string(readZipEntry(t, out, "OEBPS/content.opf"))
	want := `<item id="gloss-style" href="styles/gloss.css" media-type="text/css"/>`
	if !strings.Contains(opf, want) {
		t.Errorf("package document not patched with stylesheet item:\n%s", opf)
	}
	if strings.Index(opf, want) > strings.Index(opf, "</manifest>") {
		t.Errorf("stylesheet item landed outside the manifest:\n%s", opf)
	}

	// the rewritten container must still open as a book
	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	defer reopened.Close()
	if len(reopened.Documents()) != 2 {
		t.Errorf("reopened book has %d documents, want 2", len(reopened.Documents()))
	}
}

func TestWriteToWithoutChanges(t *testing.T) {
	src := writeFixture(t, defaultFixture())
	book, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	out := filepath.Join(t.TempDir(), "copy.epub")
	if err := book.WriteTo(out); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	for _, e := range defaultFixture() {
		if got := readZipEntry(t, out, e.name); string(got) != e.data {
			t.Errorf("entry %s changed on passthrough", e.name)
		}
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "OEBPS/styles/") {
			t.Errorf("passthrough output gained %s", f.Name)
		}
	}
}

func TestStylesheetHref(t *testing.T) {
	book, err := Open(writeFixture(t, defaultFixture()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	if href := book.StylesheetHref("OEBPS/text/ch1.xhtml"); href != "" {
		t.Errorf("StylesheetHref before staging = %q, want empty", href)
	}

	entry := book.AddStylesheet("gloss.css", []byte("x"))
	if entry != "OEBPS/styles/gloss.css" {
		t.Errorf("AddStylesheet entry = %q", entry)
	}

	tests := []struct {
		docPath  string
		expected string
	}{
		{docPath: "OEBPS/text/ch1.xhtml", expected: "../styles/gloss.css"},
		{docPath: "OEBPS/nav.xhtml", expected: "styles/gloss.css"},
		{docPath: "OEBPS/text/deep/ch9.xhtml", expected: "../../styles/gloss.css"},
	}
	for _, tt := range tests {
		if got := book.StylesheetHref(tt.docPath); got != tt.expected {
			t.Errorf("StylesheetHref(%q) = %q, want %q", tt.docPath, got, tt.expected)
		}
	}

	book.DropStylesheet()
	if href := book.StylesheetHref("OEBPS/text/ch1.xhtml"); href != "" {
		t.Errorf("StylesheetHref after drop = %q, want empty", href)
	}
}

func TestAddStylesheetAvoidsCollisions(t *testing.T) {
	entries := defaultFixture()
	entries = append(entries, fixtureEntry{"OEBPS/styles/gloss.css", "body {}"})
	opf := strings.Replace(testOPF,
		`<item id="cover"`,
		`<item id="gloss-style" href="existing.css" media-type="text/css"/>
    <item id="cover"`, 1)
	entries[1] = fixtureEntry{"OEBPS/content.opf", opf}

	book, err := Open(writeFixture(t, entries))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	entry := book.AddStylesheet("gloss.css", []byte("x"))
	if entry != "OEBPS/styles/2-gloss.css" {
		t.Errorf("colliding entry name not renamed: %q", entry)
	}
	if book.cssID != "gloss-style-2" {
		t.Errorf("colliding manifest id not renamed: %q", book.cssID)
	}
}

func TestRelPath(t *testing.T) {
	tests := []struct {
		from     string
		target   string
		expected string
	}{
		{from: ".", target: "content.opf", expected: "content.opf"},
		{from: "OEBPS", target: "OEBPS/styles/a.css", expected: "styles/a.css"},
		{from: "OEBPS/text", target: "OEBPS/styles/a.css", expected: "../styles/a.css"},
		{from: "OEBPS/a/b", target: "OEBPS/styles/a.css", expected: "../../styles/a.css"},
		{from: "OEBPS/text", target: "OEBPS/text/a.css", expected: "a.css"},
	}
	for _, tt := range tests {
		if got := relPath(tt.from, tt.target); got != tt.expected {
			t.Errorf("relPath(%q, %q) = %q, want %q", tt.from, tt.target, got, tt.expected)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "plain.epub")
		if err := os.WriteFile(p, []byte("not a zip archive"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(p); err == nil {
			t.Error("Open should reject a non-zip file")
		}
	})

	t.Run("missing container.xml", func(t *testing.T) {
		p := writeFixture(t, []fixtureEntry{{"OEBPS/content.opf", testOPF}})
		if _, err := Open(p); err == nil {
			t.Error("Open should reject a zip without container.xml")
		}
	})

	t.Run("container names a missing package document", func(t *testing.T) {
		p := writeFixture(t, []fixtureEntry{{"META-INF/container.xml", testContainer}})
		if _, err := Open(p); err == nil {
			t.Error("Open should reject a container without its package document")
		}
	})
}
