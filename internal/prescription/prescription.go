// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package prescription defines the directive language a lint run emits
// and a rewrite consumes. A prescription is an ordered list of "set"
// directives over file-level and column-level physical properties,
// with a plain-text form that survives a round trip through a file.
package prescription

import (
	"fmt"
	"strings"
)

// Prescription is an ordered list of directives. Order matters when
// two directives write the same property: the later one wins.
type Prescription struct {
	Directives []Directive
}

// Add appends directives, preserving order.
func (p *Prescription) Add(ds ...Directive) {
	p.Directives = append(p.Directives, ds...)
}

// Empty reports whether the prescription holds no directives.
func (p *Prescription) Empty() bool { return len(p.Directives) == 0 }

// String renders the prescription in its source form, one directive
// per line.
func (p *Prescription) String() string {
	var b strings.Builder
	for _, d := range p.Directives {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ConflictError reports two directives writing different values to the
// same property. Conflicts are warnings: applying the prescription
// still succeeds, with the later directive winning.
type ConflictError struct {
	Key    string
	First  Directive
	Second Directive
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting directives for %s: '%s' conflicts with '%s'",
		e.Key, e.Second, e.First)
}

// Validate returns one ConflictError per property written twice with
// differing values. Identical duplicates are not conflicts.
func (p *Prescription) Validate() []error {
	seen := make(map[string]Directive, len(p.Directives))
	var errs []error
	for _, d := range p.Directives {
		key := d.ConflictKey()
		prev, ok := seen[key]
		if ok && prev.conflictValue() != d.conflictValue() {
			errs = append(errs, &ConflictError{Key: key, First: prev, Second: d})
		}
		seen[key] = d
	}
	return errs
}

// Merge appends all directives of other after p's own.
func (p *Prescription) Merge(other *Prescription) {
	if other != nil {
		p.Directives = append(p.Directives, other.Directives...)
	}
}
