// Package habit содержит привычки пользователя и неизменяемые журналы событий:
// выполнения привычек (Completion) и записи настроения (MoodEntry).
//
// Привычка принадлежит ровно одному пользователю, награда за выполнение
// всегда равна difficulty*10 и копируется в Completion в момент выполнения,
// поэтому последующие изменения сложности не влияют на прошлый XP.
//
// Не более одного выполнения на (пользователь, привычка, календарный день UTC):
// поле Completion.Day служит ключом уникальности в хранилищах.
package habit
