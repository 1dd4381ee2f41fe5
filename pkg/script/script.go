// Package script evaluates part macros written in a small Lisp dialect.
// Scripts run in a fresh zygomys sandbox and never touch a project
// directly; evaluation yields a Plan that the caller applies on its own
// goroutine.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a parse or runtime error in user code.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// Engine evaluates scripts. It is safe for concurrent use; only the result
// of the most recent evaluation is delivered.
type Engine struct {
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

func NewEngine() *Engine {
	return &Engine{Timeout: EvalTimeout}
}

// Evaluate runs source and returns the resulting edit plan.
//
//   - On success: plan, nil, nil
//   - On parse or runtime errors in the script: nil, errors, nil
//   - On timeout, panic or a superseded evaluation: nil, nil, error
func (e *Engine) Evaluate(source string) (*Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("script: panic during evaluation: %v", r)}
			}
		}()
		plan, evalErrs := evaluate(source)
		ch <- evalResult{plan: plan, errors: evalErrs}
	}()

	return e.await(ch, gen)
}

type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// await returns the result on ch unless the timeout passes first or a
// newer evaluation started meanwhile. A timed-out goroutine keeps running
// but only ever writes to its own plan.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*Plan, []EvalError, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res evalResult
	select {
	case res = <-ch:
	case <-timer.C:
		return nil, nil, fmt.Errorf("script: evaluation timed out after %s", timeout)
	}
	if !e.isCurrent(gen) {
		return nil, nil, errors.New("script: evaluation superseded by newer request")
	}
	return res.plan, res.errors, res.err
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

func evaluate(source string) (*Plan, []EvalError) {
	plan := &Plan{}
	if strings.TrimSpace(source) == "" {
		return plan, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, plan)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return plan, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

func parseZygomysError(err error) []EvalError {
	msg := strings.TrimSpace(err.Error())
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: msg}}
}
