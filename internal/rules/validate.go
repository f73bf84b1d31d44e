/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rules

import "fmt"

var validOperators = map[Operator]struct{}{
	OpIs:             {},
	OpIsNot:          {},
	OpContains:       {},
	OpDoesNotContain: {},
	OpStartsWith:     {},
	OpEndsWith:       {},
	OpGreaterThan:    {},
	OpLessThan:       {},
	OpIsTrue:         {},
	OpIsFalse:        {},
}

// Validate rejects rule sets that reference unknown fields or
// operators. Evaluation would treat them as fail-closed noise, but a
// playlist editor should hear about the typo instead of silently
// saving a playlist that matches nothing.
func (rs *RuleSet) Validate() error {
	if rs == nil {
		return nil
	}
	for i, rule := range rs.Rules {
		if _, ok := KnownField(rule.Field); !ok {
			return fmt.Errorf("rule %d: unknown field %q", i, rule.Field)
		}
		if _, ok := validOperators[rule.Operator]; !ok {
			return fmt.Errorf("rule %d: unknown operator %q", i, rule.Operator)
		}
	}
	return nil
}
