package main

import (
	"errors"
	"fmt"

	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/protocol"
)

// Command-level errors
var (
	// ErrContractViolated indicates a replay stopped because native data broke the boundary contract.
	ErrContractViolated = errors.New("replay aborted")
	ErrInvalidEncoding  = errors.New("input is neither hex nor base64")
)

// FormatUserError turns internal errors into a one-line message for the terminal.
func FormatUserError(err error) string {
	var perr *protocol.Error
	var cv *fatal.ContractViolation

	switch {
	case errors.As(err, &cv):
		return fmt.Sprintf("native data violates the %s contract: %v", cv.Op, cv.Err)
	case errors.As(err, &perr):
		msg := fmt.Sprintf("%s (code %s)", perr.Message, perr.Code)
		if perr.Details != "" {
			msg += " in " + perr.Details
		}
		return msg
	case errors.Is(err, protocol.ErrWireFormat):
		return fmt.Sprintf("cannot decode message: %v", err)
	}
	return err.Error()
}
