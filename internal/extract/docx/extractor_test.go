package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Travel Policy 2023</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Staff must </w:t></w:r><w:r><w:t>book early.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Grade</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Limit</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	content := buildDocx(t, map[string]string{"word/document.xml": documentXML})

	text, err := New().Extract(context.Background(), "policy.docx", content)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "Travel Policy 2023", lines[0])
	assert.Equal(t, "Staff must book early.", lines[1])
	assert.Contains(t, text, "Grade")
	assert.Contains(t, text, "Limit")
	assert.Contains(t, text, "A\tB")
}

func TestExtract_NotAZip(t *testing.T) {
	_, err := New().Extract(context.Background(), "legacy.doc", []byte("\xd0\xcf\x11\xe0 binary doc"))
	assert.Error(t, err)
}

func TestExtract_MissingDocumentPart(t *testing.T) {
	content := buildDocx(t, map[string]string{"docProps/core.xml": "<cp/>"})
	_, err := New().Extract(context.Background(), "x.docx", content)
	assert.ErrorIs(t, err, ErrNoDocumentPart)
}
