//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"math"

	"video2voice/segment"

	"github.com/c2h5oh/datasize"
	"github.com/cucumber/godog"
)

// planContext holds test state for planning scenarios
type planContext struct {
	duration float64
	maxBytes int64
	codec    segment.Codec
	segments []segment.Segment
	err      error
}

var sharedPlanContext *planContext

func InitializePlanScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		sharedPlanContext = &planContext{}
		return c, nil
	})

	ctx.Step(`^a recording of (\d+) seconds$`, aRecordingOfSeconds)
	ctx.Step(`^an output limit of "([^"]*)"$`, anOutputLimitOf)
	ctx.Step(`^I plan (mp3|wav) output at (\d+) kbps$`, iPlanOutputAtKbps)
	ctx.Step(`^the plan should have (\d+) part\(s\)$`, thePlanShouldHaveParts)
	ctx.Step(`^the parts should cover the whole recording without gaps$`, thePartsShouldCoverTheWholeRecording)
	ctx.Step(`^part (\d+) should be named "([^"]*)"$`, partShouldBeNamed)
	ctx.Step(`^planning should fail with an invalid duration$`, planningShouldFailWithAnInvalidDuration)
}

func aRecordingOfSeconds(seconds int) error {
	sharedPlanContext.duration = float64(seconds)
	return nil
}

func anOutputLimitOf(limit string) error {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(limit)); err != nil {
		return fmt.Errorf("bad limit %q: %w", limit, err)
	}
	sharedPlanContext.maxBytes = int64(v.Bytes())
	return nil
}

func iPlanOutputAtKbps(codec string, kbps int) error {
	p := sharedPlanContext
	p.codec = segment.Codec(codec)
	p.segments, p.err = segment.Plan(p.duration, p.maxBytes, kbps, p.codec)
	return nil
}

func thePlanShouldHaveParts(n int) error {
	p := sharedPlanContext
	if p.err != nil {
		return fmt.Errorf("unexpected error: %v", p.err)
	}
	if len(p.segments) != n {
		return fmt.Errorf("expected %d parts, got %d", n, len(p.segments))
	}
	return nil
}

func thePartsShouldCoverTheWholeRecording() error {
	p := sharedPlanContext
	prevEnd := 0.0
	for i, s := range p.segments {
		if s.Index != i+1 {
			return fmt.Errorf("part %d has index %d", i+1, s.Index)
		}
		if math.Abs(s.Start-prevEnd) > 1e-9 {
			return fmt.Errorf("part %d starts at %f, previous ended at %f", s.Index, s.Start, prevEnd)
		}
		if s.End <= s.Start {
			return fmt.Errorf("part %d is empty", s.Index)
		}
		prevEnd = s.End
	}
	if prevEnd != p.duration {
		return fmt.Errorf("plan ends at %f, recording lasts %f", prevEnd, p.duration)
	}
	return nil
}

func partShouldBeNamed(index int, name string) error {
	p := sharedPlanContext
	if p.err != nil {
		return fmt.Errorf("unexpected error: %v", p.err)
	}
	got := segment.FileName("talk", index, len(p.segments), p.codec)
	if got != name {
		return fmt.Errorf("expected %q, got %q", name, got)
	}
	return nil
}

func planningShouldFailWithAnInvalidDuration() error {
	if !errors.Is(sharedPlanContext.err, segment.ErrInvalidDuration) {
		return fmt.Errorf("expected invalid duration error, got %v", sharedPlanContext.err)
	}
	return nil
}
