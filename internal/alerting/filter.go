package alerting

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// TagFilter compiles and evaluates expr-lang expressions against a metric
// submission. The environment exposes metric, value and tags, e.g.
//
//	tags.env == "production" && value < 1000
type TagFilter struct {
	expression string
	program    *vm.Program
}

// NewTagFilter creates a new TagFilter for the given expression.
func NewTagFilter(expression string) (*TagFilter, error) {
	program, err := expr.Compile(expression,
		expr.Env(filterEnv("", 0, nil)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return &TagFilter{expression: expression, program: program}, nil
}

// Match evaluates the filter against a submission.
func (f *TagFilter) Match(metric string, value float64, tags map[string]string) (bool, error) {
	result, err := expr.Run(f.program, filterEnv(metric, value, tags))
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return bool: got %T", result)
	}
	return matched, nil
}

// Expression returns the original expression string.
func (f *TagFilter) Expression() string {
	return f.expression
}

func filterEnv(metric string, value float64, tags map[string]string) map[string]any {
	if tags == nil {
		tags = map[string]string{}
	}
	return map[string]any{
		"metric": metric,
		"value":  value,
		"tags":   tags,
	}
}
