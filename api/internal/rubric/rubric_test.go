package rubric

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribunal-eval/api/internal/roster"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

// Если все сырые баллы равны V, итог равен V: веса в сумме дают 1.0.
func TestScoreConstantInput(t *testing.T) {
	r := Default()
	for _, v := range []float64{0, 2.5, 5.0, 7.3, 10} {
		inputs := map[string]float64{}
		for _, c := range r.Graded() {
			inputs[c.Key] = v
		}
		res := r.Score(inputs)
		assert.InDelta(t, v, res.Total, 0.005, "constant input %v", v)
	}
}

func TestScoreScenario(t *testing.T) {
	r := Default()
	inputs := map[string]float64{
		"material":    8.0,
		"exposicion":  7.0,
		"centrado":    9.0,
		"intro":       6.0,
		"metodologia": 7.0,
		"resultados":  8.0,
	}
	res := r.Score(inputs)
	assert.Equal(t, 7.75, res.Total)
	assert.InDelta(t, 0.4, res.Breakdown["material"], 1e-9)
	assert.InDelta(t, 2.7, res.Breakdown["centrado"], 1e-9)

	// разбивка без округления сходится к итогу
	sum := 0.0
	for _, v := range res.Breakdown {
		sum += v
	}
	assert.InDelta(t, res.Total, math.Round(sum*100)/100, 1e-9)
}

// Нулевые критерии из акта не попадают ни в расчёт, ни в строку.
func TestZeroWeightExcluded(t *testing.T) {
	r := Default()
	for _, c := range r.Graded() {
		assert.Greater(t, c.Weight, 0.0, "graded criterion %s", c.Key)
	}

	inputs := map[string]float64{"dominio": 10, "material": 0, "exposicion": 0,
		"centrado": 0, "intro": 0, "metodologia": 0, "resultados": 0}
	assert.Equal(t, 0.0, r.Score(inputs).Total)
}

func TestHeaderRowOrder(t *testing.T) {
	r := Default()
	header := r.Header()
	require.Len(t, header, 6+len(r.Graded())+1)
	assert.Equal(t, "correo_evaluador", header[0])
	assert.Equal(t, "material", header[6])
	assert.Equal(t, "calificacion_total", header[len(header)-1])

	st := roster.Student{ID: "001", Name: "A B", Program: "X", Time: "08:00", Date: "2024-01-01"}
	inputs := map[string]float64{"material": 8, "exposicion": 7, "centrado": 9,
		"intro": 6, "metodologia": 7, "resultados": 8}
	row := r.Row("p@utpl.edu.ec", st, inputs, r.Score(inputs))
	require.Len(t, row, len(header))
	assert.Equal(t, "p@utpl.edu.ec", row[0])
	assert.Equal(t, "001", row[1])
	assert.Equal(t, 8.0, row[6]) // material — сырой балл, не взвешенный
	assert.Equal(t, 7.75, row[len(row)-1])
}

func TestLoadJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rubrica.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"version": 2,
		"criteria": [{"key": "a", "label": "A", "weight": 0.5}],
		"subcriteria": [{"key": "b", "label": "B", "weight": 0.5}]
	}`), 0o644))

	r, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Version)
	assert.Equal(t, 5.0, r.Score(map[string]float64{"a": 4, "b": 6}).Total)
}

func TestLoadRejectsBadWeights(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rubrica.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"version": 2,
		"criteria": [{"key": "a", "label": "A", "weight": 0.5}],
		"subcriteria": []
	}`), 0o644))

	_, err := Load(p)
	assert.ErrorContains(t, err, "sum")
}
