package runtime

import (
	"context"
	"slices"
)

// StaticOptions is a fixed option list.
type StaticOptions []string

func (s StaticOptions) Options(context.Context) ([]string, error) {
	return slices.Clone([]string(s)), nil
}

func (StaticOptions) Static() bool { return true }
