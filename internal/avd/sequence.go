// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

// Sequentially runs op over items in order, one at a time, and stops at the first error.
// The SDK tool is not safe to run concurrently against one installation.
func Sequentially[T any](items []T, op func(T) error) error {
	for _, item := range items {
		if err := op(item); err != nil {
			return err
		}
	}
	return nil
}
