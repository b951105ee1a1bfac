package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrFutureDate  = errors.New("date is in the future")
)

type Task string

const (
	TaskWorkout1 Task = "workout1"
	TaskWorkout2 Task = "workout2"
	TaskDiet     Task = "diet"
	TaskWater    Task = "water"
	TaskReading  Task = "reading"
	TaskPhoto    Task = "photo"

	TotalTasks = 6
)

// Tasks is the fixed daily checklist, in display and export order.
var Tasks = []Task{TaskWorkout1, TaskWorkout2, TaskDiet, TaskWater, TaskReading, TaskPhoto}

var taskNames = map[Task]string{
	TaskWorkout1: "Workout 1",
	TaskWorkout2: "Workout 2",
	TaskDiet:     "Diet",
	TaskWater:    "Water",
	TaskReading:  "Reading",
	TaskPhoto:    "Photo",
}

func ParseTask(s string) (Task, error) {
	t := Task(s)
	if _, ok := taskNames[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return t, nil
}

func (t Task) DisplayName() string {
	if name, ok := taskNames[t]; ok {
		return name
	}
	return string(t)
}

// RawDayLog is a day as handed over by the log repository. Task values are
// loosely typed; anything falsy or missing counts as not done.
type RawDayLog struct {
	UserID    string         `json:"user_id" db:"user_id"`
	Date      Date           `json:"date" db:"log_date"`
	Tasks     map[string]any `json:"tasks"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// TaskCompletionData is the normalized view of one day. It is derived on
// every query and never persisted.
type TaskCompletionData struct {
	Date                 Date `json:"date"`
	Workout1             bool `json:"workout1"`
	Workout2             bool `json:"workout2"`
	Diet                 bool `json:"diet"`
	Water                bool `json:"water"`
	Reading              bool `json:"reading"`
	Photo                bool `json:"photo"`
	CompletionPercentage int  `json:"completionPercentage"`
	TotalTasks           int  `json:"totalTasks"`
	CompletedTasks       int  `json:"completedTasks"`
}

func (d TaskCompletionData) Done(t Task) bool {
	switch t {
	case TaskWorkout1:
		return d.Workout1
	case TaskWorkout2:
		return d.Workout2
	case TaskDiet:
		return d.Diet
	case TaskWater:
		return d.Water
	case TaskReading:
		return d.Reading
	case TaskPhoto:
		return d.Photo
	}
	return false
}

func (d *TaskCompletionData) set(t Task, done bool) {
	switch t {
	case TaskWorkout1:
		d.Workout1 = done
	case TaskWorkout2:
		d.Workout2 = done
	case TaskDiet:
		d.Diet = done
	case TaskWater:
		d.Water = done
	case TaskReading:
		d.Reading = done
	case TaskPhoto:
		d.Photo = done
	}
}

// NewTaskCompletionData builds a day record from explicit flags and derives
// the counters from them.
func NewTaskCompletionData(date Date, done map[Task]bool) TaskCompletionData {
	data := TaskCompletionData{Date: date, TotalTasks: TotalTasks}
	for _, t := range Tasks {
		if done[t] {
			data.set(t, true)
			data.CompletedTasks++
		}
	}
	data.CompletionPercentage = CompletionPercentage(data.CompletedTasks)
	return data
}

func CompletionPercentage(completed int) int {
	return int(math.Round(float64(completed) / TotalTasks * 100))
}
