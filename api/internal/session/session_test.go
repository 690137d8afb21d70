package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/rubric"
)

func TestLifecycle(t *testing.T) {
	m := NewManager()
	s := m.Create("sid-1", "p@utpl.edu.ec")
	assert.Equal(t, StateAuthenticated, s.State)

	s.Select(roster.Student{ID: "001", Name: "A B"})
	assert.Equal(t, StateStudentSelected, s.State)
	require.NotNil(t, s.Selected)

	s.SetScored(map[string]float64{"material": 8}, rubric.Result{Total: 7.75})
	assert.Equal(t, StateScored, s.State)

	// неудачное сохранение оставляет состояние как есть — повтор разрешён
	assert.Equal(t, 7.75, s.Result.Total)

	s.Saved()
	assert.Equal(t, StateAuthenticated, s.State)
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Scores)

	m.Destroy("sid-1")
	_, ok := m.Get("sid-1")
	assert.False(t, ok)
}

func TestSelectResetsScores(t *testing.T) {
	m := NewManager()
	s := m.Create("sid-1", "p@utpl.edu.ec")
	s.Select(roster.Student{ID: "001"})
	s.SetScored(map[string]float64{"material": 8}, rubric.Result{Total: 8})

	s.Select(roster.Student{ID: "002"})
	assert.Empty(t, s.Scores)
	assert.Equal(t, rubric.Result{}, s.Result)
	assert.Equal(t, StateStudentSelected, s.State)
}

// Две сессии не делят состояние, даже для одного и того же evaluador.
func TestIsolation(t *testing.T) {
	m := NewManager()
	a := m.Create("sid-a", "p@utpl.edu.ec")
	b := m.Create("sid-b", "p@utpl.edu.ec")

	a.Select(roster.Student{ID: "001"})
	assert.Equal(t, StateAuthenticated, b.State)
	assert.Nil(t, b.Selected)
}
