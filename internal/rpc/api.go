package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
)

// API adapts a Caller to the typed remotes the console stores consume.
type API struct {
	c Caller
}

// NewAPI wraps c.
func NewAPI(c Caller) *API { return &API{c: c} }

var (
	_ configsync.Remote = (*API)(nil)
	_ approvals.Remote  = (*API)(nil)
	_ cron.Remote       = (*API)(nil)
)

// ClassifyWrite maps a failed CAS write to the console error taxonomy:
// conflicts and remote errors without issues become configsync.ErrStaleHash,
// remote errors with issues become *configsync.ValidationError. Transport
// errors pass through, including a rejected handshake on redial.
func ClassifyWrite(err error) error {
	var terr *configsync.TransportError
	if errors.As(err, &terr) {
		return err
	}
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return err
	}
	if remote.Code != CodeConflict && remote.Code != CodeStaleHash {
		if issues := remote.Issues(); len(issues) > 0 {
			return &configsync.ValidationError{Issues: issues}
		}
	}
	return fmt.Errorf("%w: %s", configsync.ErrStaleHash, remote.Message)
}

// GetConfig implements configsync.Remote.
func (a *API) GetConfig(ctx context.Context) (configsync.RemoteConfig, error) {
	var res ConfigGetResult
	if err := a.c.Call(ctx, MethodConfigGet, struct{}{}, &res); err != nil {
		return configsync.RemoteConfig{}, err
	}
	return configsync.RemoteConfig{
		Path:   res.Path,
		Exists: res.Exists,
		Raw:    res.Raw,
		Hash:   res.Hash,
		Valid:  res.Valid,
		Issues: res.Issues,
	}, nil
}

// SetConfig implements configsync.Remote.
func (a *API) SetConfig(ctx context.Context, raw, baseHash string) (string, error) {
	var res WriteResult
	if err := a.c.Call(ctx, MethodConfigSet, ConfigWriteParams{Raw: raw, BaseHash: baseHash}, &res); err != nil {
		return "", ClassifyWrite(err)
	}
	return res.Hash, nil
}

// ApplyConfig implements configsync.Remote.
func (a *API) ApplyConfig(ctx context.Context, raw, baseHash string, opts configsync.ApplyOptions) error {
	params := ConfigApplyParams{
		Raw:            raw,
		BaseHash:       baseHash,
		RestartDelayMs: opts.RestartDelay.Milliseconds(),
		SessionKey:     opts.SessionKey,
		Note:           opts.Note,
	}
	if err := a.c.Call(ctx, MethodConfigApply, params, nil); err != nil {
		return ClassifyWrite(err)
	}
	return nil
}

// PatchConfig implements configsync.Remote.
func (a *API) PatchConfig(ctx context.Context, raw, baseHash string) (string, error) {
	var res WriteResult
	if err := a.c.Call(ctx, MethodConfigPatch, ConfigWriteParams{Raw: raw, BaseHash: baseHash}, &res); err != nil {
		return "", ClassifyWrite(err)
	}
	return res.Hash, nil
}

// GetApprovals implements approvals.Remote.
func (a *API) GetApprovals(ctx context.Context, target approvals.Target) (approvals.Fetched, error) {
	if err := target.Validate(); err != nil {
		return approvals.Fetched{}, err
	}
	method := MethodApprovalsGet
	var params any = struct{}{}
	if target.Kind == approvals.TargetNode {
		method = MethodApprovalsNodeGet
		params = ApprovalsGetParams{NodeID: target.NodeID}
	}
	var res ApprovalsGetResult
	if err := a.c.Call(ctx, method, params, &res); err != nil {
		return approvals.Fetched{}, err
	}
	return approvals.Fetched{
		Path:   res.Path,
		Exists: res.Exists,
		Hash:   res.Hash,
		File:   confdoc.Clone(res.File),
	}, nil
}

// SetApprovals implements approvals.Remote.
func (a *API) SetApprovals(ctx context.Context, target approvals.Target, file confdoc.Document, baseHash string) (string, error) {
	if err := target.Validate(); err != nil {
		return "", err
	}
	method := MethodApprovalsSet
	params := ApprovalsSetParams{File: file, BaseHash: baseHash}
	if target.Kind == approvals.TargetNode {
		method = MethodApprovalsNodeSet
		params.NodeID = target.NodeID
	}
	var res WriteResult
	if err := a.c.Call(ctx, method, params, &res); err != nil {
		return "", ClassifyWrite(err)
	}
	return res.Hash, nil
}

// ListCronJobs implements cron.Remote.
func (a *API) ListCronJobs(ctx context.Context) ([]cron.Job, error) {
	var res CronListResult
	if err := a.c.Call(ctx, MethodCronList, struct{}{}, &res); err != nil {
		return nil, err
	}
	return res.Jobs, nil
}

// AddCronJob implements cron.Remote.
func (a *API) AddCronJob(ctx context.Context, job cron.Job) (cron.Job, error) {
	var res CronJobResult
	if err := a.c.Call(ctx, MethodCronAdd, CronAddParams{Job: job}, &res); err != nil {
		return cron.Job{}, classifyIssues(err)
	}
	return res.Job, nil
}

// UpdateCronJob implements cron.Remote.
func (a *API) UpdateCronJob(ctx context.Context, id string, patch map[string]any) (cron.Job, error) {
	var res CronJobResult
	if err := a.c.Call(ctx, MethodCronUpdate, CronUpdateParams{ID: id, Patch: patch}, &res); err != nil {
		return cron.Job{}, classifyIssues(err)
	}
	return res.Job, nil
}

// RemoveCronJob implements cron.Remote.
func (a *API) RemoveCronJob(ctx context.Context, id string) error {
	return a.c.Call(ctx, MethodCronRemove, CronIDParams{ID: id}, nil)
}

// RunCronJob implements cron.Remote. The job fires even when disabled.
func (a *API) RunCronJob(ctx context.Context, id string) error {
	return a.c.Call(ctx, MethodCronRun, CronIDParams{ID: id, Mode: "force"}, nil)
}

// classifyIssues turns a remote error carrying issues into a
// *configsync.ValidationError and leaves every other error as is.
func classifyIssues(err error) error {
	var remote *RemoteError
	if errors.As(err, &remote) {
		if issues := remote.Issues(); len(issues) > 0 {
			return &configsync.ValidationError{Issues: issues}
		}
	}
	return err
}

// SkillUpdate is the request of skills.update.
type SkillUpdate struct {
	SkillKey string            `json:"skillKey"`
	Enabled  *bool             `json:"enabled,omitempty"`
	APIKey   string            `json:"apiKey,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
}

// UpdateSkill calls skills.update.
func (a *API) UpdateSkill(ctx context.Context, u SkillUpdate) error {
	return a.c.Call(ctx, MethodSkillsUpdate, u, nil)
}

// IdentityUpdate is the request of agents.identity.update.
type IdentityUpdate struct {
	AgentID  string         `json:"agentId"`
	Identity map[string]any `json:"identity"`
}

// UpdateAgentIdentity calls agents.identity.update.
func (a *API) UpdateAgentIdentity(ctx context.Context, u IdentityUpdate) error {
	return a.c.Call(ctx, MethodAgentIdentityUpdate, u, nil)
}

// ToolsUpdate is the request of tools.update.
type ToolsUpdate struct {
	AgentID string `json:"agentId,omitempty"`
	Tool    string `json:"tool"`
	Enabled bool   `json:"enabled"`
}

// UpdateTools calls tools.update.
func (a *API) UpdateTools(ctx context.Context, u ToolsUpdate) error {
	return a.c.Call(ctx, MethodToolsUpdate, u, nil)
}
