package grpcnode

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ledger/model"
)

// mapRPC turns a gRPC client error into a *model.Error.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return model.Wrap(model.CodeNodeUnreachable, "call aborted", err)
		}
		return model.Wrap(model.CodeInternal, "rpc", err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		// Transport level: the node itself never answered.
		return model.Wrap(model.CodeNodeUnreachable, st.Message(), err)
	}

	// The server prefixes messages with the model code; keep it when present.
	if prefix, msg, found := strings.Cut(st.Message(), ": "); found {
		if code, known := model.LookupCode(prefix); known {
			return model.NewError(code, msg)
		}
	} else if code, known := model.LookupCode(st.Message()); known {
		return model.NewError(code, "")
	}

	switch st.Code() {
	case codes.Unimplemented:
		return model.Wrap(model.CodeSubmissionRejected, "node does not serve "+serviceName+"; check that the network points at ledgerd nodes", err)
	case codes.FailedPrecondition, codes.InvalidArgument, codes.AlreadyExists:
		return model.Wrap(model.CodeSubmissionRejected, st.Message(), err)
	case codes.NotFound:
		return model.Wrap(model.CodeResourceNotFound, st.Message(), err)
	default:
		return model.Wrap(model.CodeInternal, st.Message(), err)
	}
}

// mapErr turns a node error into a gRPC status carrying the model code.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var e *model.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	switch e.Code {
	case model.CodeResourceNotFound:
		return status.Error(codes.NotFound, msg)
	case model.CodeSubmissionRejected, model.CodeTransactionFailed:
		return status.Error(codes.FailedPrecondition, msg)
	case model.CodePayloadTooLarge, model.CodeDecodeError, model.CodeInvalidEntityID:
		return status.Error(codes.InvalidArgument, msg)
	case model.CodeNodeUnreachable:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
