package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/cataloger/models"
)

// fakeDriver serves a scripted sequence of heights; each scroll advances
// to the next one.
type fakeDriver struct {
	heights   []int
	pos       int
	scrolls   int
	waitErr   error // returned instead of a growth timeout when set
	scrollErr error
}

func (d *fakeDriver) current() int {
	if d.pos >= len(d.heights) {
		return d.heights[len(d.heights)-1]
	}
	return d.heights[d.pos]
}

func (d *fakeDriver) ScrollHeight(context.Context) (int, error) {
	return d.current(), nil
}

func (d *fakeDriver) ScrollToBottom(context.Context) error {
	if d.scrollErr != nil {
		return d.scrollErr
	}
	d.scrolls++
	d.pos++
	return nil
}

func (d *fakeDriver) WaitGrowth(_ context.Context, baseline int, _ time.Duration) error {
	if d.current() > baseline {
		return nil
	}
	if d.waitErr != nil {
		return d.waitErr
	}
	return fmt.Errorf("wait: %w", context.DeadlineExceeded)
}

func TestConverge(t *testing.T) {
	tests := []struct {
		name        string
		driver      *fakeDriver
		req         models.HarvestRequest
		wantOutcome models.ConvergenceOutcome
		wantScrolls int
		wantHeight  int
	}{
		{
			name:        "settles once height stops growing",
			driver:      &fakeDriver{heights: []int{1000, 2000, 3000, 3000}},
			wantOutcome: models.OutcomeSettled,
			wantScrolls: 3,
			wantHeight:  3000,
		},
		{
			name:        "static page settles after one scroll",
			driver:      &fakeDriver{heights: []int{1080}},
			wantOutcome: models.OutcomeSettled,
			wantScrolls: 1,
			wantHeight:  1080,
		},
		{
			name:        "max scrolls stops endless growth",
			driver:      &fakeDriver{heights: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
			req:         models.HarvestRequest{MaxScrolls: 4},
			wantOutcome: models.OutcomeMaxScrolls,
			wantScrolls: 4,
			wantHeight:  5,
		},
		{
			name:        "wait failure is not settled",
			driver:      &fakeDriver{heights: []int{1000, 2000, 2000}, waitErr: errors.New("target closed")},
			wantOutcome: models.OutcomeError,
			wantScrolls: 2,
			wantHeight:  2000,
		},
		{
			name:        "scroll failure",
			driver:      &fakeDriver{heights: []int{1000}, scrollErr: errors.New("execution context destroyed")},
			wantOutcome: models.OutcomeError,
			wantScrolls: 0,
			wantHeight:  1000,
		},
		{
			name:        "budget exhausted",
			driver:      &fakeDriver{heights: []int{1, 2, 3}},
			req:         models.HarvestRequest{ScrollBudget: time.Nanosecond},
			wantOutcome: models.OutcomeBudget,
			wantScrolls: 0,
			wantHeight:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ScrollTimeout = 10 * time.Millisecond

			res := converge(context.Background(), tt.driver, tt.req)

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, tt.wantScrolls, res.Scrolls)
			assert.Equal(t, tt.wantHeight, res.Height)
		})
	}
}

func TestConverge_CallerDeadlineIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The per-scroll wait reports DeadlineExceeded, but the caller's
	// context is already done, so this is not a clean settle.
	d := &fakeDriver{heights: []int{500}}
	res := converge(ctx, d, models.HarvestRequest{ScrollTimeout: time.Millisecond})

	assert.Equal(t, models.OutcomeError, res.Outcome)
}
