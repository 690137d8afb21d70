package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// ErrAuth — не удалось собрать учётные данные сервисного аккаунта. Сессию не
// роняем: логин работает, операции с леджером закрыты до починки конфига.
var ErrAuth = errors.New("ledger: credentials not configured")

// WriteError — не удалось дописать строку (сеть/авторизация/квота).
// Показывается на кнопке сохранения, повтор — руками.
type WriteError struct{ Err error }

func (e *WriteError) Error() string { return "ledger: append failed: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }

// Entry — минимум, нужный фильтру "уже оценён": кто оценил и кого.
type Entry struct {
	Evaluator string
	StudentID string
}

type Options struct {
	SheetID string
	Tab     string

	CredentialsJSON string // содержимое ключа сервисного аккаунта
	CredentialsFile string // запасной путь к файлу ключа

	TTL time.Duration // свежесть кэша истории
}

// Client — append-only доступ к таблице-леджеру. Записи не обновляются и не
// удаляются; единственная запись о проведённой оценке живёт здесь.
type Client struct {
	svc     *sheets.Service
	sheetID string
	tab     string
	header  []interface{}

	// сериализуем bootstrap заголовка + append внутри процесса;
	// между процессами гонка остаётся (принятое ограничение)
	appendMu sync.Mutex

	histMu sync.Mutex
	hist   []Entry
	histAt time.Time
	ttl    time.Duration
}

// New резолвит учётные данные: сперва ключ из окружения, затем локальный
// файл. Оба пустые — ErrAuth с подсказкой, что настроить.
func New(ctx context.Context, opts Options, header []interface{}) (*Client, error) {
	var cred option.ClientOption
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		cred = option.WithCredentialsJSON([]byte(opts.CredentialsJSON))
	case opts.CredentialsFile != "":
		if _, err := os.Stat(opts.CredentialsFile); err != nil {
			return nil, fmt.Errorf("%w: set GOOGLE_CREDENTIALS_JSON or put the service account key at %s", ErrAuth, opts.CredentialsFile)
		}
		cred = option.WithCredentialsFile(opts.CredentialsFile)
	default:
		return nil, fmt.Errorf("%w: set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE", ErrAuth)
	}

	svc, err := sheets.NewService(ctx, cred, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return NewWithService(svc, opts.SheetID, opts.Tab, header, opts.TTL), nil
}

// NewWithService — для тестов и для случаев, когда сервис собран снаружи.
func NewWithService(svc *sheets.Service, sheetID, tab string, header []interface{}, ttl time.Duration) *Client {
	if tab == "" {
		tab = "Hoja 1"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Client{svc: svc, sheetID: sheetID, tab: tab, header: header, ttl: ttl}
}

// rangeTab — имя листа для A1-нотации. Имена с пробелами (как дефолтная
// "Hoja 1") без одинарных кавычек API не парсит, кавычка внутри имени
// удваивается.
func (c *Client) rangeTab() string {
	return "'" + strings.ReplaceAll(c.tab, "'", "''") + "'"
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// ReadAll вычитывает весь леджер. Любая ошибка связи/авторизации — мягкая:
// возвращаем её как предупреждение, вызывающий живёт с пустой историей
// (фильтр "уже оценён" деградирует до "ещё никто не оценён").
func (c *Client) ReadAll(ctx context.Context) ([]Entry, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, c.rangeTab()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ledger: read degraded: %w", err)
	}
	var out []Entry
	for i, row := range resp.Values {
		if i == 0 && cell(row, 0) == "correo_evaluador" {
			continue
		}
		e := Entry{Evaluator: cell(row, 0), StudentID: cell(row, 1)}
		if e.Evaluator == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// History — ReadAll с кэшем: свежее TTL отдаём как есть, историю перечитываем
// только когда запись устарела.
func (c *Client) History(ctx context.Context) ([]Entry, error) {
	c.histMu.Lock()
	defer c.histMu.Unlock()
	if !c.histAt.IsZero() && time.Since(c.histAt) <= c.ttl {
		return c.hist, nil
	}
	hist, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	c.hist = hist
	c.histAt = time.Now()
	return hist, nil
}

func (c *Client) invalidateHistory() {
	c.histMu.Lock()
	c.histAt = time.Time{}
	c.histMu.Unlock()
}

// Append дописывает строку оценки. Перед самой первой записью в жизни
// леджера один раз дописывается строка заголовка (первая ячейка пуста —
// значит лист новый).
func (c *Client) Append(ctx context.Context, row []interface{}) error {
	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	if err := c.ensureHeader(ctx); err != nil {
		return err
	}
	if err := c.appendRow(ctx, row); err != nil {
		return err
	}
	c.invalidateHistory()
	return nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, c.rangeTab()+"!A1").Context(ctx).Do()
	if err != nil {
		return &WriteError{Err: err}
	}
	if len(resp.Values) > 0 && cell(resp.Values[0], 0) != "" {
		return nil
	}
	log.Printf("[ledger] empty sheet, writing header")
	return c.appendRow(ctx, c.header)
}

func (c *Client) appendRow(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.sheetID, c.rangeTab(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}
