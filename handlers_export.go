package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// HandleExportExcel renders every post into a single spreadsheet.
func (a *App) HandleExportExcel(w http.ResponseWriter, r *http.Request) {
	posts, err := a.DB.ListPosts(r.Context(), PostFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list posts")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Blog Posts"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build workbook")
		return
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Title", "Author", "Category", "Date Created", "Content"}
	widths := []float64{30, 20, 20, 20, 50}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, widths[i])
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetCellStyle(sheet, "A1", "E1", style)
	}

	for i, p := range posts {
		row := i + 2
		values := []interface{}{
			p.Title,
			p.Username,
			strings.Join(p.Categories, ", "),
			p.CreatedDate.Format("2006-01-02"),
			p.Description,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename=blog_posts.xlsx`)
	if err := f.Write(w); err != nil {
		log.Printf("write xlsx: %v", err)
	}
}

// HandleExportWord renders a single post as a document: title heading,
// byline, then the body text.
func (a *App) HandleExportWord(w http.ResponseWriter, r *http.Request) {
	post := a.loadPost(w, r)
	if post == nil {
		return
	}

	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText(post.Title).Size("36").Bold()
	doc.AddParagraph().AddText(fmt.Sprintf("By %s | %s | %s",
		post.Username,
		strings.Join(post.Categories, ", "),
		time.Now().Format("2006-01-02"),
	))
	doc.AddParagraph().AddText(post.Description)

	filename := strings.ReplaceAll(post.Title, `"`, "")
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.docx"`, filename))
	if _, err := doc.WriteTo(w); err != nil {
		log.Printf("write docx: %v", err)
	}
}
