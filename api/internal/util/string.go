package util

import "strings"

// NormalizeEmail приводит адрес к канонической форме для сравнения.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeID выравнивает запись кедулы: таблицы возвращают числовые ячейки
// то как "001", то как "1", то как "1.0".
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

// NormalizeHeader готовит заголовок колонки к сопоставлению: убирает переносы
// строк, которые Excel вставляет внутрь ячейки, схлопывает пробелы и поднимает
// регистр.
func NormalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
