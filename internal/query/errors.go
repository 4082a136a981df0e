package query

import (
	tferrors "github.com/tinyflux/tinyflux/internal/errors"
)

func newRegexError(cause error) error {
	return tferrors.Wrap(
		tferrors.ErrCategoryQueryConstruct,
		tferrors.CodeRegexCompile,
		"failed to compile regular expression",
		cause,
	)
}
