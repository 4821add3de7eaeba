package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrorUnauthorized
	// ErrCircuitOpen is returned without a network call while the breaker is open.
	ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", ErrUnavailable)
)
