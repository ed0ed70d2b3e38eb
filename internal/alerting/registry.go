package alerting

// RuleRegistry holds rule definitions keyed by id in insertion order.
// It is not safe for concurrent use; Engine serializes access.
type RuleRegistry struct {
	rules map[string]*Rule
	order []string
}

// NewRuleRegistry creates an empty registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		rules: make(map[string]*Rule),
	}
}

// Add inserts or overwrites a rule by id. An overwritten rule keeps its
// original position. The registry stores a private copy.
func (r *RuleRegistry) Add(rule *Rule) {
	stored := rule.Clone()
	stored.compile()

	if _, exists := r.rules[stored.ID]; !exists {
		r.order = append(r.order, stored.ID)
	}
	r.rules[stored.ID] = stored
}

// Remove deletes a rule and reports whether it existed.
func (r *RuleRegistry) Remove(id string) bool {
	if _, ok := r.rules[id]; !ok {
		return false
	}
	delete(r.rules, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the stored rule, or nil.
func (r *RuleRegistry) Get(id string) *Rule {
	return r.rules[id]
}

// List returns all rules in insertion order.
func (r *RuleRegistry) List() []*Rule {
	out := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// ForMetric returns enabled rules whose condition targets metric.
func (r *RuleRegistry) ForMetric(metric string) []*Rule {
	var out []*Rule
	for _, id := range r.order {
		rule := r.rules[id]
		if rule.Enabled && rule.Condition.Metric == metric {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of registered rules.
func (r *RuleRegistry) Len() int {
	return len(r.rules)
}
