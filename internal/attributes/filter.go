package attributes

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
)

// Filter decides whether a record is kept.
type Filter struct {
	program *vm.Program
	rawExpr string
}

// NewFilter compiles a boolean filter expression.
// An empty expression yields a filter that keeps every record.
func NewFilter(exprStr string) (*Filter, error) {
	if exprStr == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(exprStr, expr.Env(typeEnv()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}

	return &Filter{
		program: program,
		rawExpr: exprStr,
	}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.rawExpr
}

// Enabled reports whether an expression was configured.
func (f *Filter) Enabled() bool {
	return f != nil && f.program != nil
}

// Keep evaluates the filter for rec. fields are the raw decoded fields
// the record was built from and may be nil.
func (f *Filter) Keep(rec *procmeta.ProcessRecord, fields map[string]string) (bool, error) {
	if !f.Enabled() {
		return true, nil
	}
	if rec == nil {
		return false, fmt.Errorf("no record to evaluate")
	}

	output, err := expr.Run(f.program, recordEnv(rec, fields))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter expression: %w", err)
	}

	keep, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression returned %T, want bool", output)
	}
	return keep, nil
}

// typeEnv is the environment used for expression type checking.
func typeEnv() map[string]interface{} {
	return map[string]interface{}{
		"pid":       0,
		"ppid":      0,
		"name":      "",
		"image":     "",
		"cmdline":   "",
		"cwd":       "",
		"user":      "",
		"timestamp": "",
		"fields":    map[string]string{},
	}
}

func recordEnv(rec *procmeta.ProcessRecord, fields map[string]string) map[string]interface{} {
	if fields == nil {
		fields = map[string]string{}
	}
	ppid := 0
	if rec.HasParent {
		ppid = rec.ParentPID
	}
	return map[string]interface{}{
		"pid":       rec.PID,
		"ppid":      ppid,
		"name":      rec.Name,
		"image":     rec.Image,
		"cmdline":   rec.CommandLine,
		"cwd":       rec.WorkingDirectory,
		"user":      rec.User,
		"timestamp": rec.Timestamp,
		"fields":    fields,
	}
}
