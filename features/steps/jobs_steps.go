//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video2voice/task"

	"github.com/c2h5oh/datasize"
	"github.com/cucumber/godog"
)

// jobsContext holds test state for job lifecycle scenarios
type jobsContext struct {
	env     *appEnv
	taskID  string
	removed int
}

var sharedJobsContext *jobsContext

func InitializeJobsScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		env, err := newAppEnv(200 << 20)
		if err != nil {
			return c, err
		}
		sharedJobsContext = &jobsContext{env: env}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if sharedJobsContext != nil {
			sharedJobsContext.env.close()
		}
		sharedJobsContext = nil
		return c, nil
	})

	ctx.Step(`^the output limit is "([^"]*)"$`, theOutputLimitIs)
	ctx.Step(`^the source "([^"]*)" has title "([^"]*)" and lasts (\d+) seconds$`, theSourceHasTitleAndLasts)
	ctx.Step(`^the source "([^"]*)" fails with "([^"]*)"$`, theSourceFailsWith)
	ctx.Step(`^I submit the source "([^"]*)"$`, iSubmitTheSource)
	ctx.Step(`^all jobs have finished$`, allJobsHaveFinished)
	ctx.Step(`^I clear finished tasks$`, iClearFinishedTasks)
	ctx.Step(`^the task should be "([^"]*)" with (\d+) segment\(s\)$`, theTaskShouldBeWithSegments)
	ctx.Step(`^the task files should include "([^"]*)"$`, theTaskFilesShouldInclude)
	ctx.Step(`^the unsplit file "([^"]*)" should be gone$`, theUnsplitFileShouldBeGone)
	ctx.Step(`^the task message should mention "([^"]*)"$`, theTaskMessageShouldMention)
	ctx.Step(`^(\d+) task\(s\) should have been removed$`, tasksShouldHaveBeenRemoved)
	ctx.Step(`^no tasks should remain$`, noTasksShouldRemain)
}

func theOutputLimitIs(limit string) error {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(limit)); err != nil {
		return fmt.Errorf("bad limit %q: %w", limit, err)
	}
	sharedJobsContext.env.cfg.MaxOutputSize = int64(v.Bytes())
	return nil
}

func theSourceHasTitleAndLasts(url, title string, seconds int) error {
	sharedJobsContext.env.fetcher.set(url, fakeSource{title: title, duration: float64(seconds)})
	return nil
}

func theSourceFailsWith(url, msg string) error {
	sharedJobsContext.env.fetcher.set(url, fakeSource{err: errors.New("ERROR: " + msg)})
	return nil
}

func iSubmitTheSource(url string) error {
	id, err := sharedJobsContext.env.manager.Submit(task.JobRequest{Source: url})
	if err != nil {
		return err
	}
	sharedJobsContext.taskID = id
	return nil
}

func allJobsHaveFinished() error {
	sharedJobsContext.env.manager.Wait()
	return nil
}

func iClearFinishedTasks() error {
	sharedJobsContext.removed = sharedJobsContext.env.manager.ClearTerminal()
	return nil
}

func currentTask() (task.Task, error) {
	t, ok := sharedJobsContext.env.manager.Get(sharedJobsContext.taskID)
	if !ok {
		return task.Task{}, fmt.Errorf("task %s not found", sharedJobsContext.taskID)
	}
	return t, nil
}

func theTaskShouldBeWithSegments(status string, segments int) error {
	t, err := currentTask()
	if err != nil {
		return err
	}
	if string(t.Status) != status {
		return fmt.Errorf("expected status %q, got %q (%s)", status, t.Status, t.Message)
	}
	if t.Segments != segments {
		return fmt.Errorf("expected %d segments, got %d", segments, t.Segments)
	}
	return nil
}

func theTaskFilesShouldInclude(name string) error {
	t, err := currentTask()
	if err != nil {
		return err
	}
	for _, f := range t.Files {
		if f == name {
			if _, err := os.Stat(filepath.Join(sharedJobsContext.env.store.Dir(), name)); err != nil {
				return fmt.Errorf("%s listed but missing on disk", name)
			}
			return nil
		}
	}
	return fmt.Errorf("expected %q in %v", name, t.Files)
}

func theUnsplitFileShouldBeGone(name string) error {
	if _, err := os.Stat(filepath.Join(sharedJobsContext.env.store.Dir(), name)); !os.IsNotExist(err) {
		return fmt.Errorf("expected %s to be removed after splitting", name)
	}
	return nil
}

func theTaskMessageShouldMention(text string) error {
	t, err := currentTask()
	if err != nil {
		return err
	}
	if !strings.Contains(t.Message, text) {
		return fmt.Errorf("expected message to mention %q, got %q", text, t.Message)
	}
	return nil
}

func tasksShouldHaveBeenRemoved(n int) error {
	if sharedJobsContext.removed != n {
		return fmt.Errorf("expected %d removed, got %d", n, sharedJobsContext.removed)
	}
	return nil
}

func noTasksShouldRemain() error {
	if n := len(sharedJobsContext.env.manager.Snapshot()); n != 0 {
		return fmt.Errorf("expected no tasks, got %d", n)
	}
	return nil
}
