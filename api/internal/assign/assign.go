// Package assign сводит назначения ростера с историей леджера: кто из
// студентов конкретного evaluador ещё не оценён.
package assign

import (
	"tribunal-eval/api/internal/ledger"
	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/util"
)

// Pending возвращает назначенных evaluador студентов, которых он ещё не
// оценил. Порядок — порядок строк ростера, без пересортировки. Кедулы
// сравниваются через NormalizeID: один и тот же номер приходит из файла и из
// таблицы в разной записи, и несовпадение тут открыло бы повторную оценку.
func Pending(evaluator string, students []roster.Student, history []ledger.Entry) []roster.Student {
	evaluator = util.NormalizeEmail(evaluator)

	graded := make(map[string]struct{}, len(history))
	for _, e := range history {
		if util.NormalizeEmail(e.Evaluator) == evaluator {
			graded[util.NormalizeID(e.StudentID)] = struct{}{}
		}
	}

	var out []roster.Student
	for _, s := range students {
		if s.Evaluator != evaluator {
			continue
		}
		if _, ok := graded[util.NormalizeID(s.ID)]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
