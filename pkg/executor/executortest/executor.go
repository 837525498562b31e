// Package executortest provides a scripted SchemaExecutor for tests.
package executortest

import (
	"context"
	"sync"

	"github.com/warin/fieldshift/pkg/executor"
)

// Call records one invocation of the fake executor.
type Call struct {
	Op     string
	Table  string
	Column string
	Arg    string // dataType, new column name, or new type depending on Op
}

// Executor is a scripted fake. Assign the *Func fields to control
// behavior; unset funcs succeed with a zero Result. Calls are recorded
// and safe for concurrent inspection.
type Executor struct {
	mu    sync.Mutex
	calls []Call

	AddColumnFunc        func(ctx context.Context, req executor.AddColumnRequest) (executor.Result, error)
	DropColumnFunc       func(ctx context.Context, req executor.DropColumnRequest) (executor.Result, error)
	RenameColumnFunc     func(ctx context.Context, req executor.RenameColumnRequest) (executor.Result, error)
	ChangeColumnTypeFunc func(ctx context.Context, req executor.ChangeTypeRequest) (executor.Result, error)
}

var _ executor.SchemaExecutor = (*Executor)(nil)

func (e *Executor) record(c Call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
}

// Calls returns a copy of all recorded invocations.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns the number of recorded invocations.
func (e *Executor) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *Executor) AddColumn(ctx context.Context, req executor.AddColumnRequest) (executor.Result, error) {
	e.record(Call{Op: "AddColumn", Table: req.Table, Column: req.Column, Arg: req.DataType})
	if e.AddColumnFunc != nil {
		return e.AddColumnFunc(ctx, req)
	}
	return executor.Result{}, nil
}

func (e *Executor) DropColumn(ctx context.Context, req executor.DropColumnRequest) (executor.Result, error) {
	e.record(Call{Op: "DropColumn", Table: req.Table, Column: req.Column})
	if e.DropColumnFunc != nil {
		return e.DropColumnFunc(ctx, req)
	}
	return executor.Result{}, nil
}

func (e *Executor) RenameColumn(ctx context.Context, req executor.RenameColumnRequest) (executor.Result, error) {
	e.record(Call{Op: "RenameColumn", Table: req.Table, Column: req.OldColumn, Arg: req.NewColumn})
	if e.RenameColumnFunc != nil {
		return e.RenameColumnFunc(ctx, req)
	}
	return executor.Result{}, nil
}

func (e *Executor) ChangeColumnType(ctx context.Context, req executor.ChangeTypeRequest) (executor.Result, error) {
	e.record(Call{Op: "ChangeColumnType", Table: req.Table, Column: req.Column, Arg: req.NewType})
	if e.ChangeColumnTypeFunc != nil {
		return e.ChangeColumnTypeFunc(ctx, req)
	}
	return executor.Result{}, nil
}
