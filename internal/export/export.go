// Package export は Todo 一覧を JSON / CSV / PDF に書き出す。
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/jung-kurt/gofpdf"
)

// ErrUnknownFormat は未対応の format を指定されたとき。
var ErrUnknownFormat = errors.New("unknown export format")

// Lister は一覧を返せるもの（usecase がそのまま満たす）。
type Lister interface {
	List(ctx context.Context) ([]*domain_todo.Todo, error)
}

type Exporter struct {
	src Lister
}

func NewExporter(src Lister) *Exporter {
	return &Exporter{src: src}
}

// Export は format に応じたバイト列と Content-Type を返す。
func (e *Exporter) Export(ctx context.Context, format string) ([]byte, string, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = "json"
	}

	var render func([]*domain_todo.Todo) ([]byte, error)
	var contentType string
	switch format {
	case "json":
		render, contentType = renderJSON, "application/json"
	case "csv":
		render, contentType = renderCSV, "text/csv; charset=utf-8"
	case "pdf":
		render, contentType = renderPDF, "application/pdf"
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	todos, err := e.src.List(ctx)
	if err != nil {
		return nil, "", err
	}

	b, err := render(todos)
	if err != nil {
		return nil, "", fmt.Errorf("render %s: %w", format, err)
	}
	return b, contentType, nil
}

func renderJSON(todos []*domain_todo.Todo) ([]byte, error) {
	if todos == nil {
		todos = []*domain_todo.Todo{}
	}
	return json.MarshalIndent(todos, "", "  ")
}

func renderCSV(todos []*domain_todo.Todo) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"id", "title", "completed"}); err != nil {
		return nil, err
	}
	for _, t := range todos {
		if err := w.Write([]string{strconv.FormatInt(t.ID, 10), t.Title, strconv.FormatBool(t.Completed)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(todos []*domain_todo.Todo) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Todos", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Todos")
	pdf.Ln(12)

	// 組み込みフォントは cp1252 なので、非 ASCII はトランスレータで落とす
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "", 10)
	if len(todos) == 0 {
		pdf.Cell(40, 6, "(no todos)")
	}
	for _, t := range todos {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		line := fmt.Sprintf("%s #%d %s", box, t.ID, tr(t.Title))
		pdf.MultiCell(0, 6, line, "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
