package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"tribunal-eval/api/internal/util"
)

// Student — одна строка ростера: защита одного студента в одной сессии.
// Поля неизменяемы после загрузки.
type Student struct {
	ID        string // cedula
	Name      string
	Program   string // titulacion
	Time      string
	Date      string
	Evaluator string // назначенный evaluador, нормализованный email
}

var ErrUnavailable = errors.New("roster file is missing")

// SchemaError — в файле нет обязательной колонки. Показываем найденные
// колонки, иначе по одному сообщению не понять, что прислали.
type SchemaError struct {
	Missing string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("roster: required column %q not found (got: %s)",
		e.Missing, strings.Join(e.Columns, ", "))
}

// Канонические ключи колонок. Сопоставление по нормализованному заголовку:
// точное совпадение или подстрока (колонку с титулацией авторы файла
// регулярно переименовывают и ломают переносом строки).
const (
	colID        = "CEDULA"
	colName      = "ESTUDIANTE"
	colProgram   = "TITULACI" // подстрока: TITULACIÓN / TITULACION QUE OBTIENE / ...
	colTime      = "HORA"
	colDate      = "FECHA"
	colEvaluator = "CORREO" // подстрока: CORREO DEL EVALUADOR и варианты
)

// Load читает ростер (CSV, разделитель ';', поля в кавычках). Сначала
// пробуем UTF-8, при неудаче перечитываем как Windows-1252 — файлы из
// старого Excel приходят в legacy-кодировке.
func Load(path string) ([]Student, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("roster: %w", err)
	}

	students, perr := parse(b)
	if perr == nil {
		return students, nil
	}

	// fallback: legacy-кодировка
	decoded, derr := charmap.Windows1252.NewDecoder().Bytes(b)
	if derr != nil {
		return nil, perr
	}
	students, perr2 := parse(decoded)
	if perr2 != nil {
		// отчитываемся той ошибкой, где есть найденные колонки
		var se *SchemaError
		if errors.As(perr2, &se) && !errors.As(perr, &se) {
			return nil, perr2
		}
		return nil, perr
	}
	return students, nil
}

func parse(b []byte) ([]Student, error) {
	if !utf8.Valid(b) {
		return nil, errors.New("roster: not valid utf-8")
	}

	r := csv.NewReader(strings.NewReader(string(b)))
	r.Comma = ';'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("roster: empty file")
	}

	header := records[0]
	cols := make([]string, len(header))
	idx := map[string]int{}
	for i, h := range header {
		cols[i] = util.NormalizeHeader(h)
	}
	find := func(key string) int {
		for i, c := range cols {
			if c == key {
				return i
			}
		}
		for i, c := range cols {
			if strings.Contains(c, key) {
				return i
			}
		}
		return -1
	}
	for _, key := range []string{colID, colName, colProgram, colTime, colDate, colEvaluator} {
		idx[key] = find(key)
	}
	// колонка назначения — единственная, без которой работать нельзя
	if idx[colEvaluator] < 0 {
		return nil, &SchemaError{Missing: "CORREO DEL EVALUADOR", Columns: cols}
	}

	get := func(row []string, key string) string {
		i := idx[key]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Student
	for _, row := range records[1:] {
		s := Student{
			ID:        get(row, colID),
			Name:      get(row, colName),
			Program:   get(row, colProgram),
			Time:      get(row, colTime),
			Date:      get(row, colDate),
			Evaluator: util.NormalizeEmail(get(row, colEvaluator)),
		}
		if s.ID == "" {
			continue // пустые / служебные строки
		}
		out = append(out, s)
	}
	return out, nil
}

// Store кэширует ростер на всё время жизни процесса: файл меняется только
// между запусками.
type Store struct {
	path string

	mu       sync.Mutex
	students []Student
	loaded   bool
}

func NewStore(path string) *Store { return &Store{path: path} }

func (s *Store) Students() ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.students, nil
	}
	students, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.students = students
	s.loaded = true
	return students, nil
}
