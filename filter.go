/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package warcat

import (
	"regexp"
	"strings"
)

type filterRule struct {
	name  string
	value string
	exact bool
}

type filterPattern struct {
	name    string
	pattern *regexp.Regexp
}

// FieldFilter selects records by their header fields. Rules are on the
// form "name" or "name:value"; pattern rules take a regular expression as
// value. Exclusions are evaluated before inclusions and a filter with no
// inclusion rules allows everything not excluded.
type FieldFilter struct {
	includes        []filterRule
	excludes        []filterRule
	includePatterns []filterPattern
	excludePatterns []filterPattern
}

// NewFieldFilter creates an empty filter, which allows every record.
func NewFieldFilter() *FieldFilter {
	return &FieldFilter{}
}

func parseRule(rule string) filterRule {
	if name, value, found := strings.Cut(rule, ":"); found {
		return filterRule{name: name, value: value, exact: true}
	}
	return filterRule{name: rule}
}

// AddInclude adds an inclusion rule.
func (f *FieldFilter) AddInclude(rule string) {
	f.includes = append(f.includes, parseRule(rule))
}

// AddExclude adds an exclusion rule.
func (f *FieldFilter) AddExclude(rule string) {
	f.excludes = append(f.excludes, parseRule(rule))
}

// AddIncludePattern adds an inclusion rule matching values by regular expression.
func (f *FieldFilter) AddIncludePattern(rule string) error {
	name, value, _ := strings.Cut(rule, ":")
	re, err := regexp.Compile(value)
	if err != nil {
		return err
	}
	f.includePatterns = append(f.includePatterns, filterPattern{name: name, pattern: re})
	return nil
}

// AddExcludePattern adds an exclusion rule matching values by regular expression.
func (f *FieldFilter) AddExcludePattern(rule string) error {
	name, value, _ := strings.Cut(rule, ":")
	re, err := regexp.Compile(value)
	if err != nil {
		return err
	}
	f.excludePatterns = append(f.excludePatterns, filterPattern{name: name, pattern: re})
	return nil
}

// Allow reports whether a record with the given header fields passes the
// filter.
func (f *FieldFilter) Allow(wf *WarcFields) bool {
	for _, rule := range f.excludes {
		if rule.exact {
			for _, value := range wf.GetAll(rule.name) {
				if value == rule.value {
					return false
				}
			}
		} else if wf.Has(rule.name) {
			return false
		}
	}

	for _, p := range f.excludePatterns {
		for _, value := range wf.GetAll(p.name) {
			if p.pattern.MatchString(value) {
				return false
			}
		}
	}

	for _, rule := range f.includes {
		if rule.exact {
			for _, value := range wf.GetAll(rule.name) {
				if value == rule.value {
					return true
				}
			}
		} else if wf.Has(rule.name) {
			return true
		}
	}

	for _, p := range f.includePatterns {
		for _, value := range wf.GetAll(p.name) {
			if p.pattern.MatchString(value) {
				return true
			}
		}
	}

	return len(f.includes) == 0 && len(f.includePatterns) == 0
}
