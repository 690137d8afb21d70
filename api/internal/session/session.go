// Package session держит состояние одной пользовательской сессии оценки.
// Никаких глобалей на процесс: каждый вход — свой контейнер, веб-сессии и
// телеграм-чаты не видят друг друга.
package session

import (
	"sync"
	"time"

	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/rubric"
)

type State int

const (
	StateAuthenticated State = iota // вошёл, студент не выбран
	StateStudentSelected
	StateScored // баллы введены, итог посчитан, ждём сохранения
)

// Session живёт от логина до логаута. Выбор и введённые баллы — только в
// памяти: автосохранения нет, логаут всё стирает.
type Session struct {
	ID        string
	Email     string // нормализованный, уже прошедший allow-list
	CreatedAt time.Time

	State    State
	Selected *roster.Student
	Scores   map[string]float64
	Result   rubric.Result
	Step     int // номер текущего критерия (телеграм-сценарий)
}

// Select фиксирует выбранного студента и сбрасывает введённое ранее.
func (s *Session) Select(st roster.Student) {
	s.Selected = &st
	s.Scores = map[string]float64{}
	s.Result = rubric.Result{}
	s.Step = 0
	s.State = StateStudentSelected
}

// SetScored сохраняет введённые баллы и итог.
func (s *Session) SetScored(scores map[string]float64, res rubric.Result) {
	s.Scores = scores
	s.Result = res
	s.State = StateScored
}

// Saved возвращает сессию к выбору студента после успешной записи.
func (s *Session) Saved() {
	s.Selected = nil
	s.Scores = nil
	s.Result = rubric.Result{}
	s.Step = 0
	s.State = StateAuthenticated
}

// Manager — контейнеры сессий процесса, ключ — идентификатор соединения
// (uuid куки или телеграм-чат).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*Session{}}
}

func (m *Manager) Create(id, email string) *Session {
	s := &Session{
		ID:        id,
		Email:     email,
		CreatedAt: time.Now(),
		State:     StateAuthenticated,
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Destroy — логаут: контейнер выбрасывается вместе с выбором и баллами.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
