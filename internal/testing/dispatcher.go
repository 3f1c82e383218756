package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/imamik/rsjoin/internal/executor"
)

// PollFunc scripts the invocation for target on its n-th poll (starting at 1).
type PollFunc func(target string, attempt int) (executor.Invocation, error)

// Submission records one Submit call.
type Submission struct {
	ID      string
	Targets []string
	Command string
	Timeout time.Duration
}

type script struct {
	match     string
	poll      PollFunc
	submitErr error
}

// FakeDispatcher is a scripted executor.Dispatcher. Scripts are matched by
// substring against the submitted command, first match wins.
type FakeDispatcher struct {
	mu          sync.Mutex
	scripts     []script
	submissions []Submission
	byID        map[string]script
	attempts    map[string]int
}

// NewFakeDispatcher returns a dispatcher with no scripts. Unscripted commands
// end Failed on their first poll.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{
		byID:     make(map[string]script),
		attempts: make(map[string]int),
	}
}

// On scripts commands containing match.
func (d *FakeDispatcher) On(match string, fn PollFunc) *FakeDispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script{match: match, poll: fn})
	return d
}

// Reply makes commands containing match finish on the first poll with
// status and output on every target.
func (d *FakeDispatcher) Reply(match string, status executor.Status, output string) *FakeDispatcher {
	return d.On(match, func(string, int) (executor.Invocation, error) {
		return executor.Invocation{Status: status, Output: output}, nil
	})
}

// ReplyPer scripts a terminal invocation per target for commands containing match.
func (d *FakeDispatcher) ReplyPer(match string, byTarget map[string]executor.Invocation) *FakeDispatcher {
	return d.On(match, func(target string, _ int) (executor.Invocation, error) {
		if inv, ok := byTarget[target]; ok {
			return inv, nil
		}
		return executor.Invocation{Status: executor.StatusFailed, Detail: "unscripted target"}, nil
	})
}

// FailSubmit makes Submit fail for commands containing match.
func (d *FakeDispatcher) FailSubmit(match string, err error) *FakeDispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script{match: match, submitErr: err})
	return d
}

func (d *FakeDispatcher) Submit(_ context.Context, targets []string, command string, timeout time.Duration) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.find(command)
	if s.submitErr != nil {
		return "", s.submitErr
	}
	id := fmt.Sprintf("cmd-%d", len(d.submissions)+1)
	d.submissions = append(d.submissions, Submission{
		ID:      id,
		Targets: append([]string(nil), targets...),
		Command: command,
		Timeout: timeout,
	})
	d.byID[id] = s
	return id, nil
}

func (d *FakeDispatcher) Poll(_ context.Context, commandID, target string) (executor.Invocation, error) {
	d.mu.Lock()
	s, ok := d.byID[commandID]
	key := commandID + "/" + target
	d.attempts[key]++
	attempt := d.attempts[key]
	d.mu.Unlock()

	if !ok {
		return executor.Invocation{}, fmt.Errorf("unknown command %s", commandID)
	}
	if s.poll == nil {
		return executor.Invocation{Status: executor.StatusFailed, Detail: "unscripted command"}, nil
	}
	return s.poll(target, attempt)
}

func (d *FakeDispatcher) find(command string) script {
	for _, s := range d.scripts {
		if strings.Contains(command, s.match) {
			return s
		}
	}
	return script{}
}

// Submissions returns every Submit call, in order.
func (d *FakeDispatcher) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// Commands returns the submitted command strings, in order.
func (d *FakeDispatcher) Commands() []string {
	var out []string
	for _, s := range d.Submissions() {
		out = append(out, s.Command)
	}
	return out
}

// CommandsMatching returns the submitted commands containing match.
func (d *FakeDispatcher) CommandsMatching(match string) []string {
	var out []string
	for _, c := range d.Commands() {
		if strings.Contains(c, match) {
			out = append(out, c)
		}
	}
	return out
}

// Polls returns how many times target was polled for commandID.
func (d *FakeDispatcher) Polls(commandID, target string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[commandID+"/"+target]
}
