package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

var opportunityExportColumns = []struct {
	Header string
	Field  string
}{
	{"Local ID", "local_id"},
	{"Sys ID", "sys_id"},
	{"Name", "name"},
	{"Stage", "stage"},
	{"Account", "account"},
	{"Estimated Value", "estimated_value"},
	{"Close Date", "estimated_close_date"},
	{"Updated On", "sys_updated_on"},
}

// ExportOpportunities streams the mirrored opportunities as an XLSX
// workbook. Mirror data only; the remote system is not consulted.
func (h *Handler) ExportOpportunities(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Opportunities"
	f.SetSheetName("Sheet1", sheet)
	for i, col := range opportunityExportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col.Header)
	}

	row := 2
	var after *string
	for {
		docs, page, err := h.Store.List(c.Request.Context(), nowsync.Opportunity.Collection, after, 100)
		if err != nil {
			writeError(c, err)
			return
		}
		for _, doc := range docs {
			for i, col := range opportunityExportColumns {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if v, ok := doc[col.Field]; ok {
					f.SetCellValue(sheet, cell, fmt.Sprintf("%v", v))
				}
			}
			row++
		}
		if page == nil || page.HasNextPage == nil || !*page.HasNextPage || page.EndCursor == "" {
			break
		}
		cursor := page.EndCursor
		after = &cursor
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="opportunities.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		writeError(c, err)
	}
}
