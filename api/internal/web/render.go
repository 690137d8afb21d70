package web

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var templateFuncs = template.FuncMap{
	"nota": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"peso": func(w float64) string { return fmt.Sprintf("%.2f", w) },
}

// render парсит шаблон с диска на каждый запрос и отдаёт HTML. Ошибки
// шаблона — это 500 с текстом, без падения процесса.
func (h *Handlers) render(w http.ResponseWriter, name string, data map[string]interface{}) {
	tplPath := filepath.Join(h.TemplatesDir, name)
	if _, err := os.Stat(tplPath); os.IsNotExist(err) {
		http.Error(w, "template not found: "+tplPath, http.StatusInternalServerError)
		return
	}

	tmpl, err := template.New(filepath.Base(tplPath)).Funcs(templateFuncs).ParseFiles(tplPath)
	if err != nil {
		http.Error(w, "template parse error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, data); err != nil {
		http.Error(w, "template exec error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(rendered.String()))
}
