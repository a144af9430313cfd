// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package component

import (
	"strings"

	"github.com/wattmark/wattmark/internal/device"
)

// CreateComponents builds the components a tracking run will use from a
// user-facing selection string. The literal "all" expands to every
// registered hardware type in registry order; otherwise the string is a
// comma-separated list of hardware type names. Whitespace is ignored.
//
// Construction eagerly resolves each component's backend, so this may
// probe hardware (e.g. vendor library availability checks) as a side
// effect.
func CreateComponents(selection string, opts ...OptionFn) ([]*Component, error) {
	sel := strings.ReplaceAll(strings.TrimSpace(selection), " ", "")

	var names []string
	if sel == "all" {
		names = device.ComponentNames()
	} else {
		names = strings.Split(sel, ",")
	}

	components := make([]*Component, 0, len(names))
	for _, name := range names {
		c, err := New(name, opts...)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, nil
}
