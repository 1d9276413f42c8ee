package report

import (
	"bytes"
	"html/template"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
	"github.com/shopspring/decimal"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"rupees": shared.FormatRupees,
	"plain": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; margin-bottom: 0; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; }
th { background: #f2f2f2; }
td.num, th.num { text-align: right; }
.totals td { border: none; }
.totals tr td:first-child { text-align: right; font-weight: bold; }
.badge { display: inline-block; padding: 2px 8px; border: 1px solid #888; border-radius: 3px; text-transform: uppercase; font-size: 10px; }
</style>
</head>
<body>
<h1>Invoice {{.Number}}</h1>
<p>
Customer: {{.CustomerName}}<br>
Branch: {{.BranchName}}<br>
Date: {{.CreatedAt.Format "02 Jan 2006"}}<br>
Status: <span class="badge">{{.Status}}</span>
Payment: <span class="badge">{{.PaymentStatus}}</span>
</p>
<table>
<tr><th>Description</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Weight (kg)</th><th class="num">Line Total</th></tr>
{{range .Items}}
<tr>
<td>{{.Description}}</td>
<td class="num">{{plain .Quantity}}</td>
<td class="num">{{rupees .UnitPrice}}</td>
<td class="num">{{plain .LineWeight}}</td>
<td class="num">{{rupees .LineTotal}}</td>
</tr>
{{end}}
</table>
<table class="totals">
<tr><td>Subtotal</td><td class="num">{{rupees .Subtotal}}</td></tr>
<tr><td>Weight Charge ({{plain .TotalWeight}} kg)</td><td class="num">{{rupees .WeightCharge}}</td></tr>
<tr><td>Tax</td><td class="num">{{rupees .TaxAmount}}</td></tr>
<tr><td>Discount</td><td class="num">{{rupees .DiscountAmount}}</td></tr>
<tr><td>Total</td><td class="num">{{.DisplayTotal}}</td></tr>
<tr><td>Paid</td><td class="num">{{rupees .PaidAmount}}</td></tr>
<tr><td>Balance Due</td><td class="num">{{.DisplayBalance}}</td></tr>
</table>
{{if .Payments}}
<table>
<tr><th>Receipt</th><th>Method</th><th>Date</th><th class="num">Amount</th><th>Verification</th></tr>
{{range .Payments}}
<tr>
<td>{{.ReceiptNumber}}</td>
<td>{{.Method}}</td>
<td>{{.PaymentDate.Format "02 Jan 2006"}}</td>
<td class="num">{{rupees .Amount}}</td>
<td>{{.VerificationStatus}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>`))

// RenderInvoiceHTML produces the printable invoice document.
func RenderInvoiceHTML(details *invoices.WithDetails) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, details); err != nil {
		return "", err
	}
	return buf.String(), nil
}
