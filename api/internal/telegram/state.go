package telegram

import (
	"strconv"
	"sync"

	"tribunal-eval/api/internal/roster"
)

// pendingChoice хранит список, который показали чату под номерами 1..N:
// выбор студента идёт ответом-числом, и нумерация должна совпадать с тем,
// что на экране, а не с тем, что пересчитали позже.
var pendingChoice sync.Map // chatID -> []roster.Student

func setChoice(chatID int64, students []roster.Student) { pendingChoice.Store(chatID, students) }

func getChoice(chatID int64) ([]roster.Student, bool) {
	v, ok := pendingChoice.Load(chatID)
	if !ok {
		return nil, false
	}
	s, _ := v.([]roster.Student)
	return s, true
}

func clearChoice(chatID int64) { pendingChoice.Delete(chatID) }

func sessionKey(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }
