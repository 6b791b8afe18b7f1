// Package coaching строит мотивирующие сообщения и предложения привычек.
//
// Внешний генератор текста подключается через интерфейс TextGenerator.
// Advisor никогда не возвращает ошибку: при отсутствии генератора или его
// сбое используется фиксированный ответ, а Source в результате сообщает,
// откуда взят текст.
package coaching
