// Package progress содержит игровую механику HabitVerse: уровни и стадии
// эволюции аватара, каталог достижений и их проверку, стрики и 30-дневную
// аналитику. Все функции чистые: ни ввода-вывода, ни времени "сейчас"
// внутри пакета, текущий момент передаётся явно.
package progress
