// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package component

import "fmt"

// NameError is returned when a requested hardware type name is not
// registered.
type NameError struct {
	Name string
}

func (e NameError) Error() string {
	return fmt.Sprintf("no component found with name %q", e.Name)
}
