package web

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tribunal-eval/api/internal/allowlist"
	"tribunal-eval/api/internal/assign"
	"tribunal-eval/api/internal/ledger"
	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/rubric"
	"tribunal-eval/api/internal/session"
)

// Handlers — веб-оболочка: логин, выбор студента, форма рубрики, сохранение.
// Вся логика оценки живёт в rubric/assign; здесь только форма и сессия.
type Handlers struct {
	Gate      *allowlist.Gate
	Roster    *roster.Store
	Rubric    rubric.Rubric
	Ledger    *ledger.Client
	LedgerErr error // ошибка конструирования клиента: операции с леджером закрыты
	Sessions  *session.Manager

	Secret       []byte
	TemplatesDir string
	Timeout      time.Duration

	validate *validator.Validate
}

func New(gate *allowlist.Gate, rst *roster.Store, r rubric.Rubric, led *ledger.Client, ledErr error,
	secret []byte, templatesDir string) *Handlers {
	return &Handlers{
		Gate:         gate,
		Roster:       rst,
		Rubric:       r,
		Ledger:       led,
		LedgerErr:    ledErr,
		Sessions:     session.NewManager(),
		Secret:       secret,
		TemplatesDir: templatesDir,
		Timeout:      10 * time.Second,
		validate:     validator.New(),
	}
}

func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/evaluar", h.withSession(h.Evaluate))
	mux.HandleFunc("/seleccionar", h.withSession(h.Select))
	mux.HandleFunc("/calificar", h.withSession(h.Score))
	mux.HandleFunc("/guardar", h.withSession(h.Save))
	mux.HandleFunc("/logout", h.withSession(h.Logout))
	return mux
}

// withSession достаёт сессию из куки; без неё — обратно на логин.
func (h *Handlers) withSession(next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		if err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		sid, err := parseToken(h.Secret, c.Value)
		if err != nil {
			h.clearCookie(w)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		sess, ok := h.Sessions.Get(sid)
		if !ok {
			h.clearCookie(w)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}

func (h *Handlers) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if c, err := r.Cookie(cookieName); err == nil {
		if sid, err := parseToken(h.Secret, c.Value); err == nil {
			if _, ok := h.Sessions.Get(sid); ok {
				http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
				return
			}
		}
	}
	h.render(w, "login.html", map[string]interface{}{
		"Error": r.URL.Query().Get("error"),
		"Email": "",
	})
}

type loginForm struct {
	Email string `validate:"required,email"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	form := loginForm{Email: strings.TrimSpace(r.FormValue("email"))}
	if err := h.validate.Struct(form); err != nil {
		h.render(w, "login.html", map[string]interface{}{
			"Error": "Ingrese un correo institucional válido.",
			"Email": form.Email,
		})
		return
	}

	email, err := h.Gate.Authorize(form.Email)
	if err != nil {
		if !errors.Is(err, allowlist.ErrDenied) {
			log.Printf("[auth] allowlist: %v", err)
		}
		h.render(w, "login.html", map[string]interface{}{
			"Error": "Acceso restringido: este correo no está autorizado.",
			"Email": form.Email,
		})
		return
	}

	sid := uuid.NewString()
	h.Sessions.Create(sid, email)

	token, err := makeToken(h.Secret, sid, email)
	if err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(8 * time.Hour),
	})
	log.Printf("[auth] login %s", email)
	http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
}

// history отдаёт историю леджера или предупреждение. Недоступный леджер —
// не конец сессии: фильтр деградирует до "ещё никто не оценён".
func (h *Handlers) history(ctx context.Context) ([]ledger.Entry, string) {
	if h.Ledger == nil {
		log.Printf("[ledger] client unavailable: %v", h.LedgerErr)
		return nil, "No hay conexión con la hoja de cálculo: revise las credenciales del servicio."
	}
	entries, err := h.Ledger.History(ctx)
	if err != nil {
		log.Printf("[ledger] %v", err)
		return nil, "No se pudo leer el historial de evaluaciones; la lista puede incluir estudiantes ya calificados."
	}
	return entries, ""
}

func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	students, err := h.Roster.Students()
	if err != nil {
		// без ростера дальше логина не уйти; показываем, что именно не так
		h.render(w, "evaluar.html", map[string]interface{}{
			"Email": sess.Email,
			"Fatal": rosterErrorMessage(err),
		})
		return
	}

	history, warn := h.history(ctx)
	pending := assign.Pending(sess.Email, students, history)

	data := map[string]interface{}{
		"Email":    sess.Email,
		"Pending":  pending,
		"Warning":  warn,
		"Saved":    r.URL.Query().Get("guardado") == "1",
		"SaveErr":  r.URL.Query().Get("error_guardar"),
		"ScoreErr": r.URL.Query().Get("error_nota"),
		"Selected": sess.Selected,
		"Scored":   sess.State == session.StateScored,
	}
	if sess.Selected != nil {
		data["Criteria"] = h.Rubric.Criteria
		data["Subcriteria"] = h.Rubric.Subcriteria
		data["Scores"] = sess.Scores
	}
	if sess.State == session.StateScored {
		data["Breakdown"] = sess.Result.Breakdown
		data["Total"] = sess.Result.Total
	}
	h.render(w, "evaluar.html", data)
}

func rosterErrorMessage(err error) string {
	var se *roster.SchemaError
	switch {
	case errors.Is(err, roster.ErrUnavailable):
		return "No se encontró el archivo de estudiantes. Verifique ROSTER_PATH."
	case errors.As(err, &se):
		return "El archivo de estudiantes no tiene el formato esperado: " + se.Error()
	default:
		return "No se pudo cargar la lista de estudiantes: " + err.Error()
	}
}

func (h *Handlers) Select(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	students, err := h.Roster.Students()
	if err != nil {
		http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
		return
	}
	history, _ := h.history(ctx)

	id := r.FormValue("cedula")
	for _, s := range assign.Pending(sess.Email, students, history) {
		if s.ID == id {
			sess.Select(s)
			break
		}
	}
	http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
}

func (h *Handlers) Score(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost || sess.Selected == nil {
		http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
		return
	}

	// форма — граница, где действуют пределы [0,10]; движок рубрики
	// полученным значениям доверяет
	scores := map[string]float64{}
	for _, c := range h.Rubric.Graded() {
		raw := r.FormValue("score_" + c.Key)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || h.validate.Var(v, "gte=0,lte=10") != nil {
			http.Redirect(w, r, "/evaluar?error_nota="+c.Key, http.StatusSeeOther)
			return
		}
		scores[c.Key] = math.Round(v*10) / 10 // шаг 0.1
	}

	sess.SetScored(scores, h.Rubric.Score(scores))
	http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
}

func (h *Handlers) Save(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost || sess.State != session.StateScored || sess.Selected == nil {
		http.Redirect(w, r, "/evaluar", http.StatusSeeOther)
		return
	}
	if h.Ledger == nil {
		log.Printf("[ledger] save rejected, client unavailable: %v", h.LedgerErr)
		http.Redirect(w, r, "/evaluar?error_guardar=sin_conexion", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	row := h.Rubric.Row(sess.Email, *sess.Selected, sess.Scores, sess.Result)
	if err := h.Ledger.Append(ctx, row); err != nil {
		// состояние не трогаем: оценка на экране, можно нажать ещё раз
		log.Printf("[ledger] %v", err)
		http.Redirect(w, r, "/evaluar?error_guardar=1", http.StatusSeeOther)
		return
	}

	log.Printf("[ledger] saved %s by %s total=%.2f", sess.Selected.ID, sess.Email, sess.Result.Total)
	sess.Saved()
	http.Redirect(w, r, "/evaluar?guardado=1", http.StatusSeeOther)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.Sessions.Destroy(sess.ID)
	h.clearCookie(w)
	log.Printf("[auth] logout %s", sess.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
