package export

import (
	"bytes"
	"io"
	"strings"
)

const MIMETypeCSV = "text/csv"

// Document is a generated file ready to be saved or downloaded
type Document struct {
	Filename string
	MIMEType string
	Content  []byte
}

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Content)
	return int64(n), err
}

func (d *Document) String() string {
	return string(d.Content)
}

// CSV joins header and rows with commas, one line per row, every line ending
// in a newline. Fields are written verbatim: a field holding a comma or a
// newline breaks the row.
func CSV(filename string, header []string, rows [][]string) *Document {
	var buf bytes.Buffer
	writeLine(&buf, header)
	for _, row := range rows {
		writeLine(&buf, row)
	}
	return &Document{
		Filename: filename,
		MIMEType: MIMETypeCSV,
		Content:  buf.Bytes(),
	}
}

func writeLine(buf *bytes.Buffer, fields []string) {
	buf.WriteString(strings.Join(fields, ","))
	buf.WriteByte('\n')
}
