package bills

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/backoffice/internal/vendors"
)

var printer = message.NewPrinter(language.English)

func formatMoney(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

func statusLabel(s Status) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
}

var billTemplate = template.Must(template.New("bill").Funcs(template.FuncMap{
	"money":  formatMoney,
	"status": statusLabel,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Bill.Code }}</title>
<style>
body { font-family: sans-serif; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { border-bottom: 1px solid #ddd; padding: 4px; text-align: left; }
td.num, th.num { text-align: right; }
</style>
</head>
<body>
<h1>Bill {{ .Bill.Code }}</h1>
<p>Vendor: {{ .Vendor.Name }} &lt;{{ .Vendor.Email }}&gt;</p>
<p>Date: {{ .Bill.BillDate.Format "2006-01-02" }}{{ with .Bill.DueDate }} &middot; Due: {{ .Format "2006-01-02" }}{{ end }}</p>
<p>Status: {{ status .Bill.Status }}</p>
<table>
<thead><tr><th>#</th><th>Description</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Tax %</th><th class="num">Total</th></tr></thead>
<tbody>
{{- range .Bill.Items }}
<tr><td>{{ .LineNo }}</td><td>{{ .Description }}</td><td class="num">{{ .Quantity.String }}</td><td class="num">{{ money .UnitPrice }}</td><td class="num">{{ .TaxPercent.String }}</td><td class="num">{{ money .LineTotal }}</td></tr>
{{- end }}
</tbody>
</table>
<table>
<tr><th>Subtotal</th><td class="num">{{ money .Bill.Subtotal }}</td></tr>
<tr><th>Tax</th><td class="num">{{ money .Bill.TaxAmount }}</td></tr>
<tr><th>Total</th><td class="num">{{ money .Bill.TotalAmount }}</td></tr>
<tr><th>Paid</th><td class="num">{{ money .Bill.PaidAmount }}</td></tr>
<tr><th>Balance</th><td class="num">{{ money .Bill.Balance }}</td></tr>
</table>
{{ with .Bill.Notes }}<p>{{ . }}</p>{{ end }}
</body>
</html>
`))

// RenderHTML produces the printable document from stored values only.
func RenderHTML(b Bill, v vendors.Vendor) (string, error) {
	var buf bytes.Buffer
	if err := billTemplate.Execute(&buf, struct {
		Bill   Bill
		Vendor vendors.Vendor
	}{b, v}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
