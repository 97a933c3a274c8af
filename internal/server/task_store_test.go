package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-viewer/internal/domain"
)

func TestTaskStore(t *testing.T) {
	t.Run("созданная задача находится в статусе pending", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task1", time.Hour)

		task, err := ts.GetTask("task1")
		require.NoError(t, err)
		assert.Equal(t, TaskStatusPending, task.Status)
	})

	t.Run("обновление статуса", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task1", time.Hour)

		require.NoError(t, ts.UpdateTaskStatus("task1", TaskStatusProcessing))
		task, _ := ts.GetTask("task1")
		assert.Equal(t, TaskStatusProcessing, task.Status)
	})

	t.Run("результат переводит задачу в completed", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task1", time.Hour)

		result := domain.LoadResult{ChatName: "чат", Messages: []domain.Message{{ID: 1}}}
		require.NoError(t, ts.UpdateTaskResult("task1", result))

		task, _ := ts.GetTask("task1")
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, result, task.Result)
	})

	t.Run("ошибка переводит задачу в failed", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task1", time.Hour)

		require.NoError(t, ts.UpdateTaskError("task1", "сбой загрузки"))
		task, _ := ts.GetTask("task1")
		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.Equal(t, "сбой загрузки", task.ErrorMessage)
	})

	t.Run("операции над несуществующей задачей дают ошибку", func(t *testing.T) {
		ts := NewTaskStore()
		assert.Error(t, ts.UpdateTaskStatus("нет", TaskStatusProcessing))
		assert.Error(t, ts.UpdateTaskResult("нет", domain.LoadResult{}))
		assert.Error(t, ts.UpdateTaskError("нет", "x"))
		_, err := ts.GetTask("нет")
		assert.Error(t, err)
	})

	t.Run("CleanupExpired удаляет просроченные задачи", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("живая", time.Hour)
		ts.CreateTask("мертвая", -time.Second)

		ts.CleanupExpired()

		_, err := ts.GetTask("живая")
		assert.NoError(t, err)
		_, err = ts.GetTask("мертвая")
		assert.Error(t, err)
	})
}
