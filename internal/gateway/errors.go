package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/history"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/security"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code"`
	Issues []configsync.Issue `json:"issues,omitempty"`
}

var (
	notFoundErrors = []error{
		configsync.ErrUnknownProvider, configsync.ErrUnknownModel,
		configsync.ErrUnknownAgent, configsync.ErrUnknownChannel,
		approvals.ErrUnknownAgent, cron.ErrUnknownJob, history.ErrNotFound,
	}
	preconditionErrors = []error{
		configsync.ErrNoSnapshot, configsync.ErrNoHash,
		approvals.ErrTargetRequired, approvals.ErrNotLoaded,
	}
	badRequestErrors = []error{
		configsync.ErrProviderExists, configsync.ErrModelExists,
		configsync.ErrAgentExists, configsync.ErrEmptyID, configsync.ErrReservedField,
		approvals.ErrAgentExists, approvals.ErrEmptyAgentID, approvals.ErrEmptyPattern,
		approvals.ErrIndexRange, approvals.ErrInvalidTarget,
		cron.ErrEmptyJobID,
		toolpolicy.ErrUnknownGroup, toolpolicy.ErrUnknownProfile, toolpolicy.ErrEmptyToolName,
		security.ErrBodyTooLarge, security.ErrJSONTooDeep, security.ErrInvalidJSON,
		confdoc.ErrInvalidPath,
		errBadRequest,
	}
)

var errBadRequest = errors.New("bad request")

// classify maps err to an HTTP status and a stable code. Validation is
// checked first so a joined error carrying issues reports them.
func classify(err error) (int, string) {
	var verr *configsync.ValidationError
	var terr *configsync.TransportError
	var remote *rpc.RemoteError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "invalid"
	case errors.Is(err, configsync.ErrStaleHash):
		return http.StatusConflict, "stale_hash"
	case errors.Is(err, configsync.ErrBusy), errors.Is(err, security.ErrRateLimited):
		return http.StatusTooManyRequests, "busy"
	case isAny(err, preconditionErrors):
		return http.StatusPreconditionFailed, "precondition"
	case errors.As(err, &terr):
		return http.StatusBadGateway, "transport"
	case errors.As(err, &remote) && remote.Code == rpc.CodeNotFound, isAny(err, notFoundErrors):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &remote):
		return http.StatusBadGateway, "remote"
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	resp := errorResponse{Error: err.Error(), Code: code}
	var verr *configsync.ValidationError
	if errors.As(err, &verr) {
		resp.Issues = verr.Issues
	}
	writeJSON(w, status, resp)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a bounded JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	data, err := security.ReadBody(r.Body, security.DefaultMaxBodySize, security.DefaultMaxJSONDepth)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
