package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tribunal-eval/api/internal/allowlist"
	"tribunal-eval/api/internal/assign"
	"tribunal-eval/api/internal/ledger"
	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/rubric"
	"tribunal-eval/api/internal/session"
)

// Router — телеграм-оболочка того же сценария, что и веб-форма: логин по
// почте, выбор студента номером, баллы по критериям по одному, подтверждение
// и запись в леджер. Состояние — по чату, чаты друг друга не видят.
type Router struct {
	Bot       *tgbotapi.BotAPI
	Gate      *allowlist.Gate
	Roster    *roster.Store
	Rubric    rubric.Rubric
	Ledger    *ledger.Client
	LedgerErr error
	Sessions  *session.Manager

	Timeout time.Duration
}

func (r *Router) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 10 * time.Second
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(cid, upd.Message.Command())
		return
	}

	text := strings.TrimSpace(upd.Message.Text)
	if text == "" {
		return
	}

	sess, ok := r.Sessions.Get(sessionKey(cid))
	if !ok {
		r.login(cid, text)
		return
	}

	switch sess.State {
	case session.StateAuthenticated:
		r.selectStudent(cid, sess, text)
	case session.StateStudentSelected:
		r.acceptScore(cid, sess, text)
	case session.StateScored:
		r.send(cid, "Use los botones Guardar / Cancelar del mensaje anterior.")
	}
}

func (r *Router) handleCommand(cid int64, cmd string) {
	switch cmd {
	case "start":
		r.send(cid, "📋 Evaluación del Trabajo de Integración Curricular.\n"+
			"Envíe su correo institucional para ingresar.\nComandos: /lista, /salir, /health")
	case "health":
		r.send(cid, "✅ OK")
	case "lista":
		if sess, ok := r.Sessions.Get(sessionKey(cid)); ok {
			r.sendPending(cid, sess)
		} else {
			r.send(cid, "Primero envíe su correo institucional.")
		}
	case "salir":
		r.Sessions.Destroy(sessionKey(cid))
		clearChoice(cid)
		r.send(cid, "Sesión cerrada.")
	default:
		r.send(cid, "Comando desconocido. Comandos: /lista, /salir, /health")
	}
}

func (r *Router) login(cid int64, text string) {
	email, err := r.Gate.Authorize(text)
	if err != nil {
		if !errors.Is(err, allowlist.ErrDenied) {
			log.Printf("[auth] allowlist: %v", err)
		}
		r.send(cid, "Acceso restringido: este correo no está autorizado.")
		return
	}
	sess := r.Sessions.Create(sessionKey(cid), email)
	log.Printf("[auth] tg login %s (chat %d)", email, cid)
	r.sendPending(cid, sess)
}

// sendPending пересчитывает и показывает нумерованный список назначенных и
// ещё не оценённых студентов.
func (r *Router) sendPending(cid int64, sess *session.Session) {
	students, err := r.Roster.Students()
	if err != nil {
		r.send(cid, "No se pudo cargar la lista de estudiantes: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()
	history, warn := r.history(ctx)

	pending := assign.Pending(sess.Email, students, history)
	setChoice(cid, pending)

	var b strings.Builder
	if warn != "" {
		b.WriteString("⚠️ " + warn + "\n\n")
	}
	if len(pending) == 0 {
		b.WriteString("No tiene estudiantes pendientes de evaluación.")
		r.send(cid, b.String())
		return
	}
	b.WriteString("Estudiantes pendientes:\n")
	for i, s := range pending {
		fmt.Fprintf(&b, "%d. %s — %s (%s %s)\n", i+1, s.Name, s.Program, s.Date, s.Time)
	}
	b.WriteString("\nResponda con el número del estudiante a evaluar.")
	r.send(cid, b.String())
}

func (r *Router) history(ctx context.Context) ([]ledger.Entry, string) {
	if r.Ledger == nil {
		log.Printf("[ledger] client unavailable: %v", r.LedgerErr)
		return nil, "Sin conexión con la hoja de cálculo: revise las credenciales del servicio."
	}
	entries, err := r.Ledger.History(ctx)
	if err != nil {
		log.Printf("[ledger] %v", err)
		return nil, "No se pudo leer el historial; la lista puede incluir estudiantes ya calificados."
	}
	return entries, ""
}

func (r *Router) selectStudent(cid int64, sess *session.Session, text string) {
	pending, ok := getChoice(cid)
	if !ok {
		r.sendPending(cid, sess)
		return
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(pending) {
		r.send(cid, fmt.Sprintf("Responda con un número entre 1 y %d, o /lista para repetir la lista.", len(pending)))
		return
	}
	sess.Select(pending[n-1])
	r.send(cid, fmt.Sprintf("Evaluando a %s.", pending[n-1].Name))
	r.askCriterion(cid, sess)
}

func (r *Router) askCriterion(cid int64, sess *session.Session) {
	c := r.Rubric.Graded()[sess.Step]
	r.send(cid, fmt.Sprintf("(%d/%d) %s\nPeso: %.2f. Envíe la nota de 0.0 a 10.0.",
		sess.Step+1, len(r.Rubric.Graded()), c.Label, c.Weight))
}

func (r *Router) acceptScore(cid int64, sess *session.Session, text string) {
	v, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil || v < rubric.MinScore || v > rubric.MaxScore {
		r.send(cid, "Nota inválida. Envíe un valor entre 0.0 y 10.0.")
		return
	}
	v = math.Round(v*10) / 10

	graded := r.Rubric.Graded()
	sess.Scores[graded[sess.Step].Key] = v
	sess.Step++
	if sess.Step < len(graded) {
		r.askCriterion(cid, sess)
		return
	}

	res := r.Rubric.Score(sess.Scores)
	sess.SetScored(sess.Scores, res)

	var b strings.Builder
	b.WriteString("📊 Resultado Final\n")
	for _, c := range graded {
		fmt.Fprintf(&b, "• %s: %.1f (ponderado %.2f)\n", c.Key, sess.Scores[c.Key], res.Breakdown[c.Key])
	}
	fmt.Fprintf(&b, "\nCalificación Total: %.2f/10.00", res.Total)

	msg := tgbotapi.NewMessage(cid, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Guardar", "save"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancelar", "cancel"),
		),
	)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	sess, ok := r.Sessions.Get(sessionKey(cid))
	if !ok || sess.State != session.StateScored {
		r.send(cid, "No hay una evaluación pendiente de guardar.")
		return
	}

	switch cb.Data {
	case "save":
		r.save(cid, sess)
	case "cancel":
		sess.Saved() // сброс выбора без записи
		r.send(cid, "Evaluación descartada.")
		r.sendPending(cid, sess)
	}
}

func (r *Router) save(cid int64, sess *session.Session) {
	if r.Ledger == nil {
		log.Printf("[ledger] save rejected, client unavailable: %v", r.LedgerErr)
		r.send(cid, "No se pudo guardar: sin conexión con la hoja de cálculo. Revise las credenciales y use Guardar de nuevo.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()

	row := r.Rubric.Row(sess.Email, *sess.Selected, sess.Scores, sess.Result)
	if err := r.Ledger.Append(ctx, row); err != nil {
		// состояние не трогаем: кнопка Guardar того же сообщения работает
		log.Printf("[ledger] %v", err)
		r.send(cid, "No se pudo guardar la evaluación. Intente nuevamente con Guardar.")
		return
	}

	log.Printf("[ledger] saved %s by %s total=%.2f", sess.Selected.ID, sess.Email, sess.Result.Total)
	r.send(cid, "✅ Evaluación guardada.")
	sess.Saved()
	r.sendPending(cid, sess)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}
