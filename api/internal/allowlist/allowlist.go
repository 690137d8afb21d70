package allowlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"tribunal-eval/api/internal/util"
)

// ErrDenied — общий отказ на входе: либо адреса нет в списке, либо домен
// чужой. Наружу причину не различаем.
var ErrDenied = errors.New("acceso denegado")

type Set map[string]struct{}

func (s Set) Allowed(email string) bool {
	_, ok := s[util.NormalizeEmail(email)]
	return ok
}

// Load читает список адресов (одна колонка, по адресу на строку).
// Отсутствующий файл — это пустой список, а не ошибка: пустой список
// означает "никого не пускать".
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("allowlist: %w", err)
	}
	defer f.Close()

	set := Set{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := util.NormalizeEmail(strings.Trim(sc.Text(), `";`))
		if line == "" || !strings.Contains(line, "@") {
			continue // заголовок или мусор
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("allowlist: %w", err)
	}
	return set, nil
}

// Gate решает, пускать ли evaluador: адрес должен быть и в списке, и в
// институциональном домене. Оба условия обязательны.
type Gate struct {
	path   string
	domain string

	mu     sync.Mutex
	set    Set
	loaded bool
}

func NewGate(path, domain string) *Gate {
	return &Gate{path: path, domain: strings.ToLower(strings.TrimPrefix(domain, "@"))}
}

func (g *Gate) load() (Set, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return g.set, nil
	}
	set, err := Load(g.path)
	if err != nil {
		return nil, err
	}
	g.set = set
	g.loaded = true
	return set, nil
}

// Authorize возвращает нормализованный адрес или ErrDenied.
func (g *Gate) Authorize(email string) (string, error) {
	norm := util.NormalizeEmail(email)
	if !strings.HasSuffix(norm, "@"+g.domain) {
		return "", ErrDenied
	}
	set, err := g.load()
	if err != nil {
		return "", err
	}
	if !set.Allowed(norm) {
		return "", ErrDenied
	}
	return norm, nil
}
