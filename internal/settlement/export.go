package settlement

import (
	"context"
	"fmt"

	"deora-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Settlements"

// ExportFilename names the workbook of a month, or of all months.
func ExportFilename(month string) string {
	if month == "" {
		return "Settlements_all.xlsx"
	}
	return fmt.Sprintf("Settlements_%s.xlsx", month)
}

func writeSettlements(list []models.Settlement) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := []interface{}{
		"Month", "Business Unit", "Bills", "Total Revenue",
		"Owner %", "Owner Share", "Manager Share", "Status", "Settled On",
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, st := range list {
		settled := ""
		if st.SettlementDate != nil {
			settled = st.SettlementDate.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			st.Month, string(st.BusinessUnit), st.BillCount, st.TotalRevenue,
			st.OwnerPercentage, st.OwnerShare, st.ManagerShare, string(st.Status), settled,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Export renders the month's settlements as a workbook.
func (s *Service) Export(ctx context.Context, month string) (*excelize.File, error) {
	list, err := s.List(ctx, month, models.UnitAll)
	if err != nil {
		return nil, err
	}
	return writeSettlements(list)
}
