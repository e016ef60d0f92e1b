package autocount

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX导出 — AutoCount离线导入表
// 桥接服务不可用时生成与AutoCount导入模板同构的Excel文件，供会计手工导入
// =============================================================================

// invoiceSheetHeaders AutoCount销售发票导入表列头
var invoiceSheetHeaders = []string{
	"DocNo", "DebtorCode", "DebtorName", "DocDate",
	"ItemCode", "Description", "Qty", "UnitPrice", "Amount",
}

// BuildInvoiceWorkbook 将一批发票写成AutoCount导入格式的工作簿
// 每条明细一行，表头行固定；返回的workbook由调用方负责Close
func BuildInvoiceWorkbook(invoices []Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Invoices"

	// 默认Sheet1重命名为Invoices
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("重命名工作表失败: %w", err)
	}

	for col, h := range invoiceSheetHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("计算表头单元格失败: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}

	row := 2
	for _, inv := range invoices {
		for _, line := range inv.Lines {
			values := []interface{}{
				inv.DocNo,
				inv.DebtorCode,
				inv.DebtorName,
				inv.InvoiceDate.Format("2006-01-02"),
				line.ItemCode,
				line.Description,
				line.Quantity,
				line.UnitPrice,
				line.Amount,
			}
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return nil, fmt.Errorf("计算单元格失败: %w", err)
				}
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, fmt.Errorf("写入发票明细失败: %w", err)
				}
			}
			row++
		}
	}

	return f, nil
}
