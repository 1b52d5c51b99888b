package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Task interface {
	Run()
}

type CronTask interface {
	Schedule() string
	Task
}

// TaskExecutor runs background tasks on a cron, skipping a tick when
// the previous run of the same task is still going.
type TaskExecutor struct {
	cron         *cron.Cron
	cronTasks    []CronTask
	runningTasks mapset.Set[CronTask]
	mu           sync.Mutex
}

func NewTaskExecutor(cronTasks []CronTask) *TaskExecutor {
	return &TaskExecutor{
		cron:         cron.New(),
		cronTasks:    cronTasks,
		runningTasks: mapset.NewSet[CronTask](),
	}
}

// Run schedules the tasks inside the cron, each run in its own goroutine.
func (t *TaskExecutor) Run() {
	for _, task := range t.cronTasks {
		err := t.cron.AddFunc(task.Schedule(), func() {
			t.mu.Lock()

			if t.runningTasks.Contains(task) {
				logrus.Warn("task is already running")
				t.mu.Unlock()
				return
			}

			t.runningTasks.Add(task)
			t.mu.Unlock()

			defer func() {
				t.mu.Lock()
				defer t.mu.Unlock()
				t.runningTasks.Remove(task)
			}()

			task.Run()
		})

		if err != nil {
			logrus.Errorf("failed to add task to cron: %v", err)
			panic(err)
		}
	}

	t.cron.Start()
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
