package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"deora-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const reportDateLayout = "2006-01-02"

type ReportRow struct {
	ID             uint                 `json:"id"`
	BillNumber     string               `json:"bill_number"`
	Date           time.Time            `json:"date"`
	BusinessUnit   models.BusinessUnit  `json:"business_unit"`
	CustomerName   string               `json:"customer_name"`
	CustomerMobile string               `json:"customer_mobile"`
	Subtotal       float64              `json:"subtotal"`
	Discount       float64              `json:"discount"`
	GSTPercent     float64              `json:"gst_percent"`
	GSTAmount      float64              `json:"gst_amount"`
	CGST           float64              `json:"cgst"`
	SGST           float64              `json:"sgst"`
	GrandTotal     float64              `json:"grand_total"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	Source         string               `json:"source"`
}

type RateBucket struct {
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
	GST      float64 `json:"gst"`
	Total    float64 `json:"total"`
}

type Summary struct {
	TotalSubtotal float64                `json:"total_subtotal"`
	TotalGST      float64                `json:"total_gst"`
	TotalSales    float64                `json:"total_sales"`
	BillCount     int                    `json:"bill_count"`
	AverageGST    float64                `json:"average_gst"`
	ByGSTRate     map[string]*RateBucket `json:"by_gst_rate"`
}

func toRow(b models.Bill) ReportRow {
	name, mobile, source := b.CustomerName, b.CustomerMobile, b.Source
	if name == "" {
		name = "Guest"
	}
	if mobile == "" {
		mobile = "-"
	}
	if source == "" {
		source = "dine-in"
	}
	return ReportRow{
		ID:             b.ID,
		BillNumber:     b.BillNumber,
		Date:           b.CreatedAt,
		BusinessUnit:   b.BusinessUnit,
		CustomerName:   name,
		CustomerMobile: mobile,
		Subtotal:       b.Subtotal,
		Discount:       b.DiscountAmount,
		GSTPercent:     b.GSTPercent,
		GSTAmount:      b.GSTAmount,
		CGST:           b.CGST,
		SGST:           b.SGST,
		GrandTotal:     b.GrandTotal,
		PaymentMethod:  b.PaymentMethod,
		Source:         source,
	}
}

// GSTReport lists bills created in [from, to] (whole days), newest first.
// Query failures are logged and produce an empty report.
func (s *Service) GSTReport(ctx context.Context, from, to time.Time, unit models.BusinessUnit) []ReportRow {
	end := to.AddDate(0, 0, 1)
	q := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, end).
		Order("created_at desc, id desc")
	if unit != "" && unit != models.UnitAll {
		q = q.Where("business_unit = ?", unit)
	}

	var bills []models.Bill
	if err := q.Find(&bills).Error; err != nil {
		s.log.Error("gst report query failed", zap.Error(err))
		return []ReportRow{}
	}

	rows := make([]ReportRow, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, toRow(b))
	}
	return rows
}

// RateKey formats a GST rate as used in summaries, e.g. "5%" or "12.5%".
func RateKey(rate float64) string {
	return fmt.Sprintf("%s%%", decimal.NewFromFloat(rate).String())
}

// Summarize totals rows overall and per GST rate.
func Summarize(rows []ReportRow) Summary {
	sub, gst, total := decimal.Zero, decimal.Zero, decimal.Zero
	type acc struct {
		count           int
		sub, gst, total decimal.Decimal
	}
	byRate := make(map[string]*acc)

	for _, r := range rows {
		rs, rg, rt := decimal.NewFromFloat(r.Subtotal), decimal.NewFromFloat(r.GSTAmount), decimal.NewFromFloat(r.GrandTotal)
		sub, gst, total = sub.Add(rs), gst.Add(rg), total.Add(rt)

		key := RateKey(r.GSTPercent)
		a, ok := byRate[key]
		if !ok {
			a = &acc{}
			byRate[key] = a
		}
		a.count++
		a.sub, a.gst, a.total = a.sub.Add(rs), a.gst.Add(rg), a.total.Add(rt)
	}

	out := Summary{
		TotalSubtotal: sub.InexactFloat64(),
		TotalGST:      gst.InexactFloat64(),
		TotalSales:    total.InexactFloat64(),
		BillCount:     len(rows),
		ByGSTRate:     make(map[string]*RateBucket, len(byRate)),
	}
	if len(rows) > 0 {
		out.AverageGST = gst.Div(decimal.NewFromInt(int64(len(rows)))).Round(2).InexactFloat64()
	}
	for k, a := range byRate {
		out.ByGSTRate[k] = &RateBucket{
			Count:    a.count,
			Subtotal: a.sub.InexactFloat64(),
			GST:      a.gst.InexactFloat64(),
			Total:    a.total.InexactFloat64(),
		}
	}
	return out
}

func (s *Service) GSTSummary(ctx context.Context, from, to time.Time, unit models.BusinessUnit) Summary {
	return Summarize(s.GSTReport(ctx, from, to, unit))
}

// ExportFilename follows GST_Report[_unit]_<from>_to_<to>.xlsx.
func ExportFilename(from, to time.Time, unit models.BusinessUnit) string {
	name := "GST_Report"
	if unit != "" && unit != models.UnitAll {
		name += "_" + string(unit)
	}
	return fmt.Sprintf("%s_%s_to_%s.xlsx", name, from.Format(reportDateLayout), to.Format(reportDateLayout))
}

var gstHeaders = []interface{}{
	"Bill Number", "Date", "Business Unit", "Customer Name", "Customer Mobile",
	"Subtotal", "Discount", "GST %", "CGST", "SGST", "GST Amount", "Grand Total",
	"Payment Method", "Source",
}

const gstSheet = "GST Report"

// ExportGST renders rows and their summary as a workbook.
func ExportGST(rows []ReportRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", gstSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(gstSheet, "A1", &gstHeaders); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.BillNumber, r.Date.Format("2006-01-02 15:04:05"), string(r.BusinessUnit),
			r.CustomerName, r.CustomerMobile, r.Subtotal, r.Discount, r.GSTPercent,
			r.CGST, r.SGST, r.GSTAmount, r.GrandTotal, string(r.PaymentMethod), r.Source,
		}
		if err := f.SetSheetRow(gstSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	sum := Summarize(rows)
	start := len(rows) + 3
	totals := [][]interface{}{
		{"Total Bills", sum.BillCount},
		{"Total Subtotal", sum.TotalSubtotal},
		{"Total GST", sum.TotalGST},
		{"Total Sales", sum.TotalSales},
	}
	rates := make([]string, 0, len(sum.ByGSTRate))
	for k := range sum.ByGSTRate {
		rates = append(rates, k)
	}
	sort.Strings(rates)
	for _, k := range rates {
		b := sum.ByGSTRate[k]
		totals = append(totals, []interface{}{"GST " + k, b.Count, b.Subtotal, b.GST, b.Total})
	}
	for i, row := range totals {
		cell, _ := excelize.CoordinatesToCellName(1, start+i)
		if err := f.SetSheetRow(gstSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
