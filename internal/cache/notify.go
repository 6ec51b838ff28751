package cache

import (
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

// Notifier receives the outcome of every settled mutation, for user-facing
// messages.
type Notifier interface {
	Success(op Op, t model.Task)
	Failure(op Op, err error)
}

// OpToggle has no success message.
var successMessages = map[Op]string{
	OpCreate: "Task created successfully!",
	OpUpdate: "Task updated successfully!",
	OpDelete: "Task deleted successfully!",
}

var failureMessages = map[Op]string{
	OpCreate: "Failed to create task",
	OpUpdate: "Failed to update task",
	OpToggle: "Failed to update task",
	OpDelete: "Failed to delete task",
}

func SuccessMessage(op Op) string { return successMessages[op] }

func FailureMessage(op Op) string { return failureMessages[op] }

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(op Op, t model.Task) {
	if SuccessMessage(op) == "" {
		return
	}
	n.logger.Info(SuccessMessage(op), zap.String("op", string(op)), zap.Int64("task_id", t.ID))
}

func (n *LogNotifier) Failure(op Op, err error) {
	n.logger.Error(FailureMessage(op), zap.String("op", string(op)), zap.Error(err))
}

// NotifierFunc adapts a pair of functions to Notifier. Nil fields are skipped.
type NotifierFunc struct {
	OnSuccess func(op Op, t model.Task)
	OnFailure func(op Op, err error)
}

func (f NotifierFunc) Success(op Op, t model.Task) {
	if f.OnSuccess != nil {
		f.OnSuccess(op, t)
	}
}

func (f NotifierFunc) Failure(op Op, err error) {
	if f.OnFailure != nil {
		f.OnFailure(op, err)
	}
}
