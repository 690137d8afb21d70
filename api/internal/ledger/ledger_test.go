package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// fakeSheet — минимальный бекенд Sheets API для тестов: хранит строки и
// отвечает на values.get / values.append. Диапазоны проверяет так же
// строго, как настоящий API: имя листа с пробелом обязано быть в кавычках.
type fakeSheet struct {
	mu     sync.Mutex
	rows   [][]interface{}
	ranges []string // все запрошенные A1-диапазоны, по порядку
	fail   bool     // любой запрос -> 500
}

func rangeOf(path string) string {
	i := strings.LastIndex(path, "/values/")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(path[i+len("/values/"):], ":append")
}

func (f *fakeSheet) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			http.Error(w, `{"error": {"code": 500, "message": "boom"}}`, http.StatusInternalServerError)
			return
		}
		rng := rangeOf(r.URL.Path)
		f.ranges = append(f.ranges, rng)
		if strings.Contains(rng, " ") && !strings.HasPrefix(rng, "'") {
			http.Error(w, `{"error": {"code": 400, "message": "Unable to parse range: `+rng+`"}}`, http.StatusBadRequest)
			return
		}
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
			var vr sheets.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows, vr.Values...)
			_ = json.NewEncoder(w).Encode(&sheets.AppendValuesResponse{})
		case r.Method == http.MethodGet:
			values := f.rows
			if strings.Contains(r.URL.Path, "A1") {
				values = nil
				if len(f.rows) > 0 && len(f.rows[0]) > 0 {
					values = [][]interface{}{{f.rows[0][0]}}
				}
			}
			_ = json.NewEncoder(w).Encode(&sheets.ValueRange{Values: values})
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, f *fakeSheet, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithoutAuthentication(), option.WithEndpoint(srv.URL))
	require.NoError(t, err)

	header := []interface{}{"correo_evaluador", "cedula", "nombre_estudiante",
		"titulacion", "hora", "fecha", "material", "calificacion_total"}
	return NewWithService(svc, "sheet-1", "Hoja 1", header, ttl)
}

func TestAppendBootstrapsHeaderOnce(t *testing.T) {
	f := &fakeSheet{}
	c := newTestClient(t, f, time.Hour)
	ctx := context.Background()

	row := []interface{}{"p@utpl.edu.ec", "001", "A B", "X", "08:00", "2024-01-01", 8.0, 7.75}
	require.NoError(t, c.Append(ctx, row))

	require.Len(t, f.rows, 2, "header + data")
	assert.Equal(t, "correo_evaluador", f.rows[0][0])
	assert.Equal(t, "p@utpl.edu.ec", f.rows[1][0])

	// второй append: заголовок уже есть, больше не дописывается
	require.NoError(t, c.Append(ctx, []interface{}{"p@utpl.edu.ec", "002", "C D", "X", "09:00", "2024-01-01", 9.0, 9.0}))
	require.Len(t, f.rows, 3)
}

// Все диапазоны строятся с листом в одинарных кавычках: дефолтная
// "Hoja 1" содержит пробел, и без кавычек API отвечает 400.
func TestRangesQuoteTabName(t *testing.T) {
	f := &fakeSheet{}
	c := newTestClient(t, f, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, []interface{}{"p@utpl.edu.ec", "001"}))
	_, err := c.ReadAll(ctx)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.ranges)
	for _, rng := range f.ranges {
		assert.True(t, strings.HasPrefix(rng, "'Hoja 1'"), "unquoted range %q", rng)
	}
}

func TestAppendExistingHeader(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{{"correo_evaluador", "cedula"}}}
	c := newTestClient(t, f, time.Hour)

	require.NoError(t, c.Append(context.Background(), []interface{}{"p@utpl.edu.ec", "001"}))
	require.Len(t, f.rows, 2)
}

func TestAppendFailure(t *testing.T) {
	f := &fakeSheet{fail: true}
	c := newTestClient(t, f, time.Hour)

	err := c.Append(context.Background(), []interface{}{"p@utpl.edu.ec", "001"})
	var we *WriteError
	assert.ErrorAs(t, err, &we)
}

func TestReadAll(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{
		{"correo_evaluador", "cedula", "nombre_estudiante"},
		{"p@utpl.edu.ec", "001", "A B"},
		{"m@utpl.edu.ec", 2.0, "C D"}, // числовая ячейка из таблицы
	}}
	c := newTestClient(t, f, time.Hour)

	entries, err := c.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Evaluator: "p@utpl.edu.ec", StudentID: "001"}, entries[0])
	assert.Equal(t, "2", entries[1].StudentID)
}

func TestReadAllDegrades(t *testing.T) {
	f := &fakeSheet{fail: true}
	c := newTestClient(t, f, time.Hour)

	entries, err := c.ReadAll(context.Background())
	assert.Nil(t, entries)
	assert.ErrorContains(t, err, "read degraded")
}

func TestHistoryCacheAndInvalidation(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{{"p@utpl.edu.ec", "001"}}}
	c := newTestClient(t, f, time.Hour)
	ctx := context.Background()

	first, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// напрямую дописанная строка не видна, пока кэш свеж
	f.mu.Lock()
	f.rows = append(f.rows, []interface{}{"p@utpl.edu.ec", "002"})
	f.mu.Unlock()
	cached, err := c.History(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	// свой append сбрасывает кэш: сохранённый студент тут же исчезает
	// из pending
	require.NoError(t, c.Append(ctx, []interface{}{"p@utpl.edu.ec", "003"}))
	after, err := c.History(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 3)
}

func TestNewWithoutCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{
		SheetID:         "sheet-1",
		CredentialsFile: "/no/such/credentials.json",
	}, nil)
	assert.ErrorIs(t, err, ErrAuth)
}
