package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"time"

	"preventivo/internal/models"
	"preventivo/internal/pricing"
)

// ContractData feeds the contract template.
type ContractData struct {
	Title     string
	Company   string
	Document  *models.Document
	Client    ClientInfo
	Breakdown *pricing.Breakdown
	Note      string
	Date      time.Time
}

// ClientInfo is the addressee block, extracted from the document's
// selectedClient data.
type ClientInfo struct {
	CompanyName string
	FiscalCode  string
	VATNumber   string
	Email       string
	Address     string
}

func money(v float64) string {
	// Two decimals, comma separator as used on the printed contracts.
	cents := int64(math.Round(v * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100)
}

var contractTmpl = template.Must(template.New("contract").Funcs(template.FuncMap{
	"money": money,
}).Parse(contractHTML))

// RenderContractHTML produces the self-contained HTML document handed to the
// renderer.
func RenderContractHTML(data ContractData) (string, error) {
	var buf bytes.Buffer
	if err := contractTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const contractHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4; margin: 0; }
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11px; color: #222; margin: 0; }
  .page { width: 210mm; min-height: 297mm; padding: 18mm 16mm; box-sizing: border-box; page-break-after: always; }
  h1 { font-size: 18px; margin: 0 0 2mm; }
  .head { display: flex; justify-content: space-between; border-bottom: 2px solid #333; padding-bottom: 4mm; margin-bottom: 6mm; }
  .client { white-space: pre-line; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 6mm; }
  th { text-align: left; border-bottom: 1px solid #999; padding: 2mm 1mm; font-size: 10px; text-transform: uppercase; }
  td { padding: 1.5mm 1mm; border-bottom: 1px solid #eee; }
  td.num, th.num { text-align: right; white-space: nowrap; }
  .totals td { border: none; padding: 1mm; }
  .totals .grand { font-weight: bold; font-size: 13px; border-top: 2px solid #333; }
  .note { margin-top: 8mm; white-space: pre-line; }
</style>
</head>
<body>
<div class="page" id="content">
  <div class="head">
    <div>
      <h1>{{.Title}}</h1>
      <div>{{.Company}}</div>
      <div>{{.Date.Format "02/01/2006"}}</div>
    </div>
    <div class="client">
      <strong>{{.Client.CompanyName}}</strong>
      {{if .Client.FiscalCode}}CF: {{.Client.FiscalCode}}{{end}}
      {{if .Client.VATNumber}}P.IVA: {{.Client.VATNumber}}{{end}}
      {{.Client.Address}}
      {{.Client.Email}}
    </div>
  </div>

  <table>
    <thead>
      <tr><th>Item</th><th class="num">Price</th><th class="num">Discount</th><th class="num">Qty</th><th class="num">Total</th></tr>
    </thead>
    <tbody>
      {{range .Breakdown.Records}}
      <tr>
        <td>{{.Name}}</td>
        <td class="num">{{money .OriginalPrice}}</td>
        <td class="num">{{.Discount}}%</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">{{money .DiscountedPrice}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  <table class="totals">
    <tr><td>Subtotal</td><td class="num">{{money .Breakdown.TotalAll}}</td></tr>
    <tr><td>Subtotal after line discounts</td><td class="num">{{money .Breakdown.TotalAllDiscounted}}</td></tr>
    {{if .Document.Discount}}<tr><td>Additional discount</td><td class="num">-{{money .Document.Discount}}</td></tr>{{end}}
    <tr><td>Taxable amount</td><td class="num">{{money .Breakdown.TotalWithDiscount}}</td></tr>
    <tr class="grand"><td>Total (VAT 22%)</td><td class="num">{{money .Breakdown.TotalAllWithTaxes}}</td></tr>
  </table>

  {{if .Note}}<div class="note">{{.Note}}</div>{{end}}
</div>
<script>
  // Split overflowing content into A4 pages, then signal the renderer.
  (function () {
    var PAGE_PX = 1122; // 297mm at 96dpi
    var content = document.getElementById('content');
    function paginate() {
      var page = content;
      var rows = page.querySelectorAll('tbody tr');
      for (var i = 0; i < rows.length; i++) {
        var r = rows[i];
        if (r.offsetTop + r.offsetHeight > PAGE_PX * (1 + Math.floor(r.offsetTop / PAGE_PX))) {
          r.style.pageBreakBefore = 'always';
        }
      }
      window.__paginationDone = true;
    }
    if (document.readyState === 'complete') { paginate(); }
    else { window.addEventListener('load', paginate); }
  })();
</script>
</body>
</html>`
