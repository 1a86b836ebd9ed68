package domain

import (
	"fmt"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

// toolError prefixes err with the tool operation and its machine-readable
// code so MCP clients can branch on it.
func toolError(op string, err error) error {
	return fmt.Errorf("%s failed [%s]: %w", op, apperrors.CodeOf(err), err)
}
