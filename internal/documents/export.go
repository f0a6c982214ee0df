package documents

import (
	"bufio"
	"encoding/csv"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"
)

const csvBufferSize = 32 * 1024

// WriteExpiringCSV streams the expiring list as CSV. Excel wants CRLF.
func WriteExpiringCSV(w io.Writer, docs []Document) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	if err := writer.Write([]string{"number", "title", "type", "owner", "owner_email", "expires_at", "days_left", "status"}); err != nil {
		return err
	}
	now := time.Now()
	for _, d := range docs {
		daysLeft := int(d.ExpiresAt.Sub(now).Hours() / 24)
		row := []string{
			d.Number,
			d.Title,
			d.Type,
			d.OwnerName,
			d.OwnerEmail,
			d.ExpiresAt.Format("2006-01-02"),
			strconv.Itoa(daysLeft),
			string(d.Status),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

var expiringReportTmpl = template.Must(template.New("expiring").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Expiring documents</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
th { background: #eee; }
</style></head><body>
<h1>Expiring documents</h1>
<p>Generated {{.GeneratedAt}}, {{len .Documents}} document(s)</p>
<table>
<tr><th>Number</th><th>Title</th><th>Type</th><th>Owner</th><th>Expires</th><th>Status</th></tr>
{{range .Documents}}<tr><td>{{.Number}}</td><td>{{.Title}}</td><td>{{.Type}}</td><td>{{.OwnerName}}</td><td>{{.ExpiresAt.Format "2006-01-02"}}</td><td>{{.Status}}</td></tr>
{{end}}</table>
</body></html>`))

// BuildExpiringHTML renders the expiring list as a printable HTML page for
// PDF conversion.
func BuildExpiringHTML(docs []Document, generatedAt time.Time) (string, error) {
	var sb strings.Builder
	err := expiringReportTmpl.Execute(&sb, struct {
		GeneratedAt string
		Documents   []Document
	}{
		GeneratedAt: generatedAt.Format(time.RFC1123),
		Documents:   docs,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
