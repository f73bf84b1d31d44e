/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rules implements the smart playlist criteria language: a flat
// list of field/operator/value predicates combined with all-of or any-of
// semantics. Evaluation never fails; a rule that cannot apply to a value
// (wrong type, missing field, unknown operator) evaluates to false.
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the dynamic type of a rule value.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
)

// Field names a track attribute a rule can test.
type Field string

const (
	FieldTitle       Field = "title"
	FieldArtist      Field = "artist"
	FieldAlbum       Field = "album"
	FieldGenre       Field = "genre"
	FieldYear        Field = "year"
	FieldTrackNumber Field = "track_number"
	FieldDuration    Field = "duration"
	FieldPlayCount   Field = "play_count"
	FieldIsFavorite  Field = "is_favorite"
	FieldFileFormat  Field = "file_format"
)

var fieldKinds = map[Field]Kind{
	FieldTitle:       KindText,
	FieldArtist:      KindText,
	FieldAlbum:       KindText,
	FieldGenre:       KindText,
	FieldYear:        KindNumber,
	FieldTrackNumber: KindNumber,
	FieldDuration:    KindNumber,
	FieldPlayCount:   KindNumber,
	FieldIsFavorite:  KindBool,
	FieldFileFormat:  KindText,
}

// KnownField reports whether the field is part of the rule vocabulary
// and returns its declared kind.
func KnownField(f Field) (Kind, bool) {
	kind, ok := fieldKinds[f]
	return kind, ok
}

// Operator names a comparison.
type Operator string

const (
	OpIs             Operator = "is"
	OpIsNot          Operator = "is_not"
	OpContains       Operator = "contains"
	OpDoesNotContain Operator = "does_not_contain"
	OpStartsWith     Operator = "starts_with"
	OpEndsWith       Operator = "ends_with"
	OpGreaterThan    Operator = "is_greater_than"
	OpLessThan       Operator = "is_less_than"
	OpIsTrue         Operator = "is_true"
	OpIsFalse        Operator = "is_false"
)

// Value is the tagged union a rule compares against. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
}

// TextValue builds a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue builds a numeric value.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// BoolValue builds a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// UnmarshalJSON accepts any JSON scalar and tags it.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = TextValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case nil:
		*v = TextValue("")
	default:
		return fmt.Errorf("rule value must be a scalar, got %T", raw)
	}
	return nil
}

// MarshalJSON emits the underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Text)
	}
}

// Rule is one predicate over a track field.
type Rule struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// RuleSet combines rules with all-of or any-of semantics.
type RuleSet struct {
	MatchAll bool   `json:"match_all"`
	Rules    []Rule `json:"rules"`
}

// Empty reports whether the set has no rules to apply.
func (rs *RuleSet) Empty() bool {
	return rs == nil || len(rs.Rules) == 0
}

// Source supplies raw field values for evaluation. The second return
// reports presence; absent fields fail comparisons (fail-closed).
type Source interface {
	RuleValue(Field) (Value, bool)
}

// Matches evaluates the set against a source. An empty set matches
// nothing: a fresh smart playlist must not vacuum up the whole library.
func (rs *RuleSet) Matches(src Source) bool {
	if rs.Empty() {
		return false
	}
	if rs.MatchAll {
		for _, rule := range rs.Rules {
			if !Evaluate(src, rule) {
				return false
			}
		}
		return true
	}
	for _, rule := range rs.Rules {
		if Evaluate(src, rule) {
			return true
		}
	}
	return false
}

// Evaluate applies one rule to a source.
func Evaluate(src Source, rule Rule) bool {
	tv, present := src.RuleValue(rule.Field)
	rv := rule.Value

	switch rule.Operator {
	case OpIs:
		return present && equal(tv, rv)
	case OpIsNot:
		return !(present && equal(tv, rv))
	case OpContains:
		return bothText(present, tv, rv) && strings.Contains(lower(tv), lower(rv))
	case OpDoesNotContain:
		return bothText(present, tv, rv) && !strings.Contains(lower(tv), lower(rv))
	case OpStartsWith:
		return bothText(present, tv, rv) && strings.HasPrefix(lower(tv), lower(rv))
	case OpEndsWith:
		return bothText(present, tv, rv) && strings.HasSuffix(lower(tv), lower(rv))
	case OpGreaterThan:
		cmp, ok := compare(present, tv, rv)
		return ok && cmp > 0
	case OpLessThan:
		cmp, ok := compare(present, tv, rv)
		return ok && cmp < 0
	case OpIsTrue:
		return present && truthy(tv)
	case OpIsFalse:
		return !(present && truthy(tv))
	default:
		return false
	}
}

// equal is strict equality after lower-casing text operands. Values of
// different kinds are never equal.
func equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindText:
		return lower(a) == lower(b)
	case KindNumber:
		return a.Number == b.Number
	case KindBool:
		return a.Bool == b.Bool
	}
	return false
}

// compare orders two values: numbers numerically, text lexicographically
// after lower-casing. A text operand paired with a number is coerced
// numerically when it parses; anything else does not order.
func compare(present bool, a, b Value) (int, bool) {
	if !present {
		return 0, false
	}
	an, aNum := asNumber(a)
	bn, bNum := asNumber(b)
	switch {
	case a.Kind == KindNumber || b.Kind == KindNumber:
		if !aNum || !bNum {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	case a.Kind == KindText && b.Kind == KindText:
		return strings.Compare(lower(a), lower(b)), true
	default:
		return 0, false
	}
}

func asNumber(v Value) (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// truthy mirrors loose boolean coercion on the raw value: non-empty
// text, non-zero numbers, and true are truthy.
func truthy(v Value) bool {
	switch v.Kind {
	case KindText:
		return v.Text != ""
	case KindNumber:
		return v.Number != 0
	case KindBool:
		return v.Bool
	}
	return false
}

func bothText(present bool, a, b Value) bool {
	return present && a.Kind == KindText && b.Kind == KindText
}

func lower(v Value) string {
	return strings.ToLower(v.Text)
}
