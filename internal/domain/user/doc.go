// Package user содержит доменную модель пользователя HabitVerse.
//
// Пакет определяет:
//
//   - Сущность User: XP, стрики, набор достижений, кастомизация аватара
//   - Интерфейс Repository, реализуемый в infrastructure/persistence
//
// # Инварианты
//
//  1. total_xp неотрицателен и никогда не уменьшается
//  2. longest_streak >= current_streak после любого обновления
//  3. Набор achievements только растёт
//  4. Уровень не хранится: он всегда вычисляется из total_xp (пакет progress)
//
// Все изменения счётчиков выполняются атомарными операциями хранилища
// (ApplyCompletion, AwardAchievements), а не через read-modify-write.
package user
