package artifact

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/value"
)

// Report renders the collections of set as a Word document: a heading per
// collection followed by a table with one row per record. Columns are the
// union of the collection's field names in first-seen order.
func Report(set *collection.Set) (File, error) {
	doc := docx.New().WithDefaultTheme()
	for _, name := range set.Names() {
		recs := set.Records(name)
		doc.AddParagraph().AddText(name).Bold().Size("28")

		cols := Columns(recs)
		if len(cols) == 0 {
			doc.AddParagraph().AddText("(no records)").Italic()
			continue
		}

		tbl := doc.AddTable(len(recs)+1, len(cols), 0, nil)
		for j, col := range cols {
			tbl.TableRows[0].TableCells[j].AddParagraph().AddText(col).Bold()
		}
		for i, rec := range recs {
			row := tbl.TableRows[i+1]
			for j, col := range cols {
				text := ""
				if v, ok := rec.Get(col); ok {
					text = CellText(v)
				}
				row.TableCells[j].AddParagraph().AddText(text)
			}
		}
		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return File{}, fmt.Errorf("write docx: %w", err)
	}
	return File{Name: ReportName, ContentType: ContentTypeDocx, Data: buf.Bytes()}, nil
}

// Columns returns the field names used across recs, in first-seen order.
func Columns(recs []*value.Object) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range recs {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// CellText renders a field value for a table cell. Scalars print bare;
// anything nested prints as compact JSON.
func CellText(v value.Value) string {
	var out string
	value.Match(v,
		func(o *value.Object) { out = compact(o) },
		func(a *value.Array) { out = compact(a) },
		func(s value.Scalar) {
			switch x := s.Interface().(type) {
			case nil:
				out = "null"
			case string:
				out = x
			case bool:
				out = strconv.FormatBool(x)
			default:
				out = fmt.Sprint(x)
			}
		},
	)
	return out
}

func compact(v value.Value) string {
	b, err := value.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
