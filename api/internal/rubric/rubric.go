package rubric

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"tribunal-eval/api/internal/roster"
)

// Criterion — один критерий рубрики. Weight == 0 означает "показываем, но не
// оцениваем": такие строки исторически есть в акте, в сумму не входят.
type Criterion struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Rubric — версионированная таблица критериев. Оцениваемое подмножество =
// основные критерии с ненулевым весом плюс все подкритерии; их веса в сумме
// дают 1.0.
type Rubric struct {
	Version     int         `json:"version"`
	Criteria    []Criterion `json:"criteria"`
	Subcriteria []Criterion `json:"subcriteria"`
}

const (
	MinScore = 0.0
	MaxScore = 10.0
	Step     = 0.1
)

// Default — действующий вариант рубрики защиты выпускной работы.
// Строки с нулевым весом видны в форме, но не входят в расчёт.
func Default() Rubric {
	return Rubric{
		Version: 1,
		Criteria: []Criterion{
			{Key: "material", Label: "Calidad y adecuada utilización del material de apoyo audiovisual o gráfico presentado", Weight: 0.05},
			{Key: "dominio", Label: "Dominio, comprensión y seguridad del tema", Weight: 0},
			{Key: "exposicion", Label: "Precisión y clara exposición oral", Weight: 0.25},
			{Key: "centrado", Label: "Centra su intervención sobre los aspectos fundamentales del trabajo de integración curricular", Weight: 0.3},
			{Key: "interpretacion", Label: "Exactitud en la interpretación de las preguntas del equipo evaluador y seguridad de las respuestas", Weight: 0},
			{Key: "respuestas", Label: "¿Las respuestas son adecuadas y correctas?", Weight: 0},
		},
		Subcriteria: []Criterion{
			{Key: "intro", Label: "a) Introducción/Antecedentes, justificación y objetivos", Weight: 0.1},
			{Key: "metodologia", Label: "b) Metodología", Weight: 0.1},
			{Key: "resultados", Label: "c) Resultados, discusión, conclusiones y recomendaciones", Weight: 0.2},
		},
	}
}

// Load читает рубрику из JSON-файла; пустой путь — компилированный вариант.
func Load(path string) (Rubric, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("rubric: %w", err)
	}
	var r Rubric
	if err := json.Unmarshal(b, &r); err != nil {
		return Rubric{}, fmt.Errorf("rubric: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

// Graded возвращает оцениваемые критерии в порядке объявления: сперва
// основные с весом, затем подкритерии. Этот же порядок — порядок колонок
// в леджере.
func (r Rubric) Graded() []Criterion {
	out := make([]Criterion, 0, len(r.Criteria)+len(r.Subcriteria))
	for _, c := range r.Criteria {
		if c.Weight > 0 {
			out = append(out, c)
		}
	}
	out = append(out, r.Subcriteria...)
	return out
}

func (r Rubric) Validate() error {
	seen := map[string]bool{}
	sum := 0.0
	for _, c := range append(append([]Criterion{}, r.Criteria...), r.Subcriteria...) {
		if c.Key == "" {
			return fmt.Errorf("rubric: criterion without key (%q)", c.Label)
		}
		if seen[c.Key] {
			return fmt.Errorf("rubric: duplicate key %q", c.Key)
		}
		seen[c.Key] = true
		if c.Weight < 0 || c.Weight > 1 {
			return fmt.Errorf("rubric: weight of %q out of [0,1]: %v", c.Key, c.Weight)
		}
	}
	for _, c := range r.Graded() {
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("rubric: graded weights sum to %v, want 1.0", sum)
	}
	return nil
}

// Result — разбивка по критериям и итог. Breakdown хранит взвешенные
// значения без округления; округляется только Total.
type Result struct {
	Breakdown map[string]float64
	Total     float64
}

// Score считает взвешенную сумму. Вход уже ограничен [0,10] на стороне
// формы — здесь границы не перепроверяем.
func (r Rubric) Score(inputs map[string]float64) Result {
	breakdown := make(map[string]float64, len(inputs))
	total := 0.0
	for _, c := range r.Graded() {
		w := inputs[c.Key] * c.Weight
		breakdown[c.Key] = w
		total += w
	}
	return Result{
		Breakdown: breakdown,
		Total:     math.Round(total*100) / 100,
	}
}

// Header — строка заголовка леджера: фиксированные колонки, затем
// оцениваемые критерии в порядке объявления, итог последним.
func (r Rubric) Header() []interface{} {
	row := []interface{}{"correo_evaluador", "cedula", "nombre_estudiante", "titulacion", "hora", "fecha"}
	for _, c := range r.Graded() {
		row = append(row, c.Key)
	}
	return append(row, "calificacion_total")
}

// Row сериализует оценку в строку леджера в порядке Header:
// сырые баллы по критериям, итог последним.
func (r Rubric) Row(evaluator string, s roster.Student, inputs map[string]float64, res Result) []interface{} {
	row := []interface{}{evaluator, s.ID, s.Name, s.Program, s.Time, s.Date}
	for _, c := range r.Graded() {
		row = append(row, inputs[c.Key])
	}
	return append(row, res.Total)
}
