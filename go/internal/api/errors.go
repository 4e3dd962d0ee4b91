package api

import (
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/validate"
)

// ErrorCodeHeader carries the auction error code on connect errors.
const ErrorCodeHeader = "Auction-Error-Code"

func invalid(err error) error {
	return fmt.Errorf("%w: %s", auction.ErrInvalidArgument, validate.Summary(err))
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrInsufficientBudget),
		errors.Is(err, auction.ErrUnknownTeam):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auction.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, auction.ErrRoomClosed):
		return http.StatusGone
	case errors.Is(err, auction.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auction.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, auction.ErrInvalidTransition),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrInsufficientBudget),
		errors.Is(err, auction.ErrUnknownTeam):
		return connect.CodeFailedPrecondition
	case errors.Is(err, auction.ErrRoomFull):
		return connect.CodeResourceExhausted
	case errors.Is(err, auction.ErrRoomClosed):
		return connect.CodeUnavailable
	case errors.Is(err, auction.ErrInvalidArgument):
		return connect.CodeInvalidArgument
	case errors.Is(err, auction.ErrConflict):
		return connect.CodeAlreadyExists
	case errors.Is(err, auction.ErrForbidden):
		return connect.CodePermissionDenied
	default:
		return connect.CodeInternal
	}
}

// connectError converts an app error for the RPC surface.
func connectError(err error) error {
	cerr := connect.NewError(connectCode(err), err)
	cerr.Meta().Set(ErrorCodeHeader, auction.Code(err))
	return cerr
}

// ErrorCode recovers the auction error code from an RPC error.
func ErrorCode(err error) string {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr.Meta().Get(ErrorCodeHeader)
	}
	return ""
}
