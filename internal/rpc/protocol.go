// Package rpc implements the console side of the gateway's websocket
// request/response protocol.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
)

// FrameType identifies the kind of websocket frame.
type FrameType string

// Frame types exchanged over the websocket connection.
const (
	FrameRequest  FrameType = "req"
	FrameResponse FrameType = "res"
	FrameEvent    FrameType = "event"
)

// Frame is the wire format for all websocket messages.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
}

// Gateway method names.
const (
	MethodConnect             = "connect"
	MethodConfigGet           = "config.get"
	MethodConfigSet           = "config.set"
	MethodConfigApply         = "config.apply"
	MethodConfigPatch         = "config.patch"
	MethodApprovalsGet        = "exec.approvals.get"
	MethodApprovalsSet        = "exec.approvals.set"
	MethodApprovalsNodeGet    = "exec.approvals.node.get"
	MethodApprovalsNodeSet    = "exec.approvals.node.set"
	MethodCronList            = "cron.list"
	MethodCronAdd             = "cron.add"
	MethodCronUpdate          = "cron.update"
	MethodCronRemove          = "cron.remove"
	MethodCronRun             = "cron.run"
	MethodSkillsUpdate        = "skills.update"
	MethodAgentIdentityUpdate = "agents.identity.update"
	MethodToolsUpdate         = "tools.update"
)

// Remote error codes the console distinguishes.
const (
	CodeConflict     = "CONFLICT"
	CodeStaleHash    = "STALE_HASH"
	CodeInvalid      = "INVALID_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
)

// RemoteError is an error reported by the gateway in a response frame.
type RemoteError struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "rpc: remote error: " + e.Message
	}
	return fmt.Sprintf("rpc: remote error %s: %s", e.Code, e.Message)
}

// Issues returns the validation issues carried in details.issues.
func (e *RemoteError) Issues() []configsync.Issue {
	raw, ok := e.Details["issues"].([]any)
	if !ok {
		return nil
	}
	var out []configsync.Issue
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var is configsync.Issue
		is.Path, _ = m["path"].(string)
		is.Message, _ = m["message"].(string)
		if is.Path == "" && is.Message == "" {
			continue
		}
		out = append(out, is)
	}
	return out
}

// ClientInfo identifies the console to the gateway.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ConnectParams is the first request sent on a new connection.
type ConnectParams struct {
	Token  string     `json:"token,omitempty"`
	Client ClientInfo `json:"client"`
}

// ConfigGetResult is the payload of config.get.
type ConfigGetResult struct {
	Path   string             `json:"path,omitempty"`
	Exists bool               `json:"exists"`
	Raw    string             `json:"raw"`
	Hash   string             `json:"hash"`
	Valid  bool               `json:"valid"`
	Issues []configsync.Issue `json:"issues,omitempty"`
}

// ConfigWriteParams is the request of config.set and config.patch.
type ConfigWriteParams struct {
	Raw      string `json:"raw"`
	BaseHash string `json:"baseHash"`
}

// ConfigApplyParams is the request of config.apply.
type ConfigApplyParams struct {
	Raw            string `json:"raw"`
	BaseHash       string `json:"baseHash"`
	RestartDelayMs int64  `json:"restartDelayMs,omitempty"`
	SessionKey     string `json:"sessionKey,omitempty"`
	Note           string `json:"note,omitempty"`
}

// WriteResult is the payload of a successful write.
type WriteResult struct {
	OK   bool   `json:"ok"`
	Hash string `json:"hash,omitempty"`
}

// ApprovalsGetParams selects a node for exec.approvals.node.get.
type ApprovalsGetParams struct {
	NodeID string `json:"nodeId,omitempty"`
}

// ApprovalsGetResult is the payload of exec.approvals.get.
type ApprovalsGetResult struct {
	Path   string         `json:"path,omitempty"`
	Exists bool           `json:"exists"`
	Hash   string         `json:"hash"`
	File   map[string]any `json:"file"`
}

// ApprovalsSetParams is the request of exec.approvals.set.
type ApprovalsSetParams struct {
	NodeID   string         `json:"nodeId,omitempty"`
	File     map[string]any `json:"file"`
	BaseHash string         `json:"baseHash"`
}

// CronListResult is the payload of cron.list.
type CronListResult struct {
	Jobs []cron.Job `json:"jobs"`
}

// CronAddParams is the request of cron.add.
type CronAddParams struct {
	Job cron.Job `json:"job"`
}

// CronJobResult is the payload of cron.add and cron.update.
type CronJobResult struct {
	Job cron.Job `json:"job"`
}

// CronUpdateParams is the request of cron.update.
type CronUpdateParams struct {
	ID    string         `json:"id"`
	Patch map[string]any `json:"patch"`
}

// CronIDParams is the request of cron.remove and cron.run.
type CronIDParams struct {
	ID   string `json:"id"`
	Mode string `json:"mode,omitempty"`
}
