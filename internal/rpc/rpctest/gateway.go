// Package rpctest provides an in-memory gateway for tests. It keeps a
// configuration document, exec-approvals files and cron jobs with the same
// compare-and-swap rules as the real gateway, and can be reached either
// in-process (it implements rpc.Caller) or over a websocket (Handler).
package rpctest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/rpc"
)

// ConfigPath is the path reported by config.get.
const ConfigPath = "/var/lib/sclaw/config.json"

// Validator inspects a document submitted by config.set, config.apply or
// config.patch. Returned issues reject the write.
type Validator func(doc confdoc.Document) []configsync.Issue

// Gateway is a fake gateway. The zero value is not usable; call New.
type Gateway struct {
	// Token, when set, must be presented by connect.
	Token string
	// Validate, when set, vets every config write.
	Validate Validator

	mu        sync.Mutex
	doc       confdoc.Document
	hash      string
	approvals map[string]*approvalsFile
	jobs      []cron.Job
	nextJob   int
	calls     map[string]int
	log       []string
	failures  map[string]*rpc.RemoteError
	applied   []rpc.ConfigApplyParams
	narrow    []rpc.Frame
}

type approvalsFile struct {
	file confdoc.Document
	hash string
}

// New creates a gateway serving doc.
func New(doc confdoc.Document) *Gateway {
	doc = confdoc.Clone(doc)
	return &Gateway{
		doc:       doc,
		hash:      confdoc.Hash(doc),
		approvals: make(map[string]*approvalsFile),
		nextJob:   1,
		calls:     make(map[string]int),
		failures:  make(map[string]*rpc.RemoteError),
	}
}

// Compile-time interface check.
var _ rpc.Caller = (*Gateway)(nil)

// Document returns a copy of the stored configuration.
func (g *Gateway) Document() confdoc.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	return confdoc.Clone(g.doc)
}

// Hash returns the hash of the stored configuration.
func (g *Gateway) Hash() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hash
}

// SetDocument replaces the configuration as another writer would.
func (g *Gateway) SetDocument(doc confdoc.Document) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.doc = confdoc.Clone(doc)
	g.hash = confdoc.Hash(g.doc)
}

// Approvals returns a copy of the approvals file for target ("gateway" or
// "node:<id>").
func (g *Gateway) Approvals(target string) confdoc.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	return confdoc.Clone(g.approvalsFor(target).file)
}

// SetApprovals replaces the approvals file for target.
func (g *Gateway) SetApprovals(target string, file confdoc.Document) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a := g.approvalsFor(target)
	a.file = confdoc.Clone(file)
	a.hash = target + "@" + confdoc.Hash(a.file)
}

// Calls returns how many times method was invoked.
func (g *Gateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

// Log returns every method received, in order.
func (g *Gateway) Log() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.log)
}

// Applied returns the config.apply requests received so far.
func (g *Gateway) Applied() []rpc.ConfigApplyParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.applied)
}

// Narrow returns the skills/identity/tools requests received so far.
func (g *Gateway) Narrow() []rpc.Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.narrow)
}

// FailNext makes the next call of method fail with err.
func (g *Gateway) FailNext(method string, err *rpc.RemoteError) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[method] = err
}

// Call implements rpc.Caller in-process. Params and results go through JSON
// so callers see exactly what a websocket client would.
func (g *Gateway) Call(ctx context.Context, method string, params, out any) error {
	if err := ctx.Err(); err != nil {
		return &configsync.TransportError{Op: method, Err: err}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpctest: encode params: %w", err)
	}
	payload, rerr := g.Dispatch(method, raw)
	if rerr != nil {
		return rerr
	}
	if out == nil || payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rpctest: encode payload: %w", err)
	}
	return json.Unmarshal(data, out)
}

// Handler serves the gateway protocol over websocket.
func (g *Gateway) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.CloseNow() }()

		ctx := r.Context()
		connected := false
		for {
			var req rpc.Frame
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			if req.Type != rpc.FrameRequest {
				continue
			}

			res := rpc.Frame{Type: rpc.FrameResponse, ID: req.ID}
			var (
				payload any
				rerr    *rpc.RemoteError
			)
			if !connected && req.Method != rpc.MethodConnect {
				rerr = &rpc.RemoteError{Code: rpc.CodeUnauthorized, Message: "connect first"}
			} else {
				payload, rerr = g.Dispatch(req.Method, req.Params)
				if req.Method == rpc.MethodConnect && rerr == nil {
					connected = true
				}
			}

			if rerr != nil {
				res.Error = rerr
			} else {
				res.OK = true
				if payload != nil {
					data, err := json.Marshal(payload)
					if err != nil {
						return
					}
					res.Payload = data
				}
			}
			if err := wsjson.Write(ctx, conn, res); err != nil {
				return
			}
			if req.Method == rpc.MethodConnect && connected {
				event := rpc.Frame{Type: rpc.FrameEvent, Event: "hello"}
				if err := wsjson.Write(ctx, conn, event); err != nil {
					return
				}
			}
		}
	})
}

// Dispatch handles one request.
func (g *Gateway) Dispatch(method string, params json.RawMessage) (any, *rpc.RemoteError) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[method]++
	g.log = append(g.log, method)
	if err, ok := g.failures[method]; ok {
		delete(g.failures, method)
		return nil, err
	}

	switch method {
	case rpc.MethodConnect:
		var p rpc.ConnectParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		if g.Token != "" && p.Token != g.Token {
			return nil, &rpc.RemoteError{Code: rpc.CodeUnauthorized, Message: "invalid token"}
		}
		return map[string]any{"ok": true}, nil

	case rpc.MethodConfigGet:
		raw, err := confdoc.Marshal(g.doc)
		if err != nil {
			return nil, &rpc.RemoteError{Message: err.Error()}
		}
		return rpc.ConfigGetResult{Path: ConfigPath, Exists: true, Raw: string(raw), Hash: g.hash, Valid: true}, nil

	case rpc.MethodConfigSet, rpc.MethodConfigPatch:
		var p rpc.ConfigWriteParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		doc, rerr := g.writeConfig(method, p.Raw, p.BaseHash)
		if rerr != nil {
			return nil, rerr
		}
		g.commit(doc)
		return rpc.WriteResult{OK: true, Hash: g.hash}, nil

	case rpc.MethodConfigApply:
		var p rpc.ConfigApplyParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		doc, rerr := g.writeConfig(method, p.Raw, p.BaseHash)
		if rerr != nil {
			return nil, rerr
		}
		g.commit(doc)
		g.applied = append(g.applied, p)
		return rpc.WriteResult{OK: true}, nil

	case rpc.MethodApprovalsGet, rpc.MethodApprovalsNodeGet:
		var p rpc.ApprovalsGetParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		key, rerr := approvalsKey(method, p.NodeID)
		if rerr != nil {
			return nil, rerr
		}
		a := g.approvalsFor(key)
		return rpc.ApprovalsGetResult{
			Path:   "/var/lib/sclaw/exec-approvals.json",
			Exists: len(a.file) > 0,
			Hash:   a.hash,
			File:   confdoc.Clone(a.file),
		}, nil

	case rpc.MethodApprovalsSet, rpc.MethodApprovalsNodeSet:
		var p rpc.ApprovalsSetParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		key, rerr := approvalsKey(method, p.NodeID)
		if rerr != nil {
			return nil, rerr
		}
		a := g.approvalsFor(key)
		if p.BaseHash != a.hash {
			return nil, &rpc.RemoteError{Code: rpc.CodeConflict, Message: "exec approvals changed since last load"}
		}
		a.file = confdoc.Clone(p.File)
		a.hash = key + "@" + confdoc.Hash(a.file)
		return rpc.WriteResult{OK: true, Hash: a.hash}, nil

	case rpc.MethodCronList:
		return rpc.CronListResult{Jobs: slices.Clone(g.jobs)}, nil

	case rpc.MethodCronAdd:
		var p rpc.CronAddParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		p.Job.ID = fmt.Sprintf("job-%d", g.nextJob)
		g.nextJob++
		g.jobs = append(g.jobs, p.Job)
		return rpc.CronJobResult{Job: p.Job}, nil

	case rpc.MethodCronUpdate:
		var p rpc.CronUpdateParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		i := g.jobIndex(p.ID)
		if i < 0 {
			return nil, &rpc.RemoteError{Code: rpc.CodeNotFound, Message: "unknown job " + p.ID}
		}
		job, rerr := patchJob(g.jobs[i], p.Patch)
		if rerr != nil {
			return nil, rerr
		}
		g.jobs[i] = job
		return rpc.CronJobResult{Job: job}, nil

	case rpc.MethodCronRemove, rpc.MethodCronRun:
		var p rpc.CronIDParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		i := g.jobIndex(p.ID)
		if i < 0 {
			return nil, &rpc.RemoteError{Code: rpc.CodeNotFound, Message: "unknown job " + p.ID}
		}
		if method == rpc.MethodCronRemove {
			g.jobs = slices.Delete(g.jobs, i, i+1)
		}
		return map[string]any{"ok": true}, nil

	case rpc.MethodSkillsUpdate, rpc.MethodAgentIdentityUpdate, rpc.MethodToolsUpdate:
		g.narrow = append(g.narrow, rpc.Frame{Type: rpc.FrameRequest, Method: method, Params: slices.Clone(params)})
		return map[string]any{"ok": true}, nil
	}

	return nil, &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "unknown method " + method}
}

// writeConfig checks the base hash and decodes the submitted document.
// Must be called with mu held.
func (g *Gateway) writeConfig(method, raw, baseHash string) (confdoc.Document, *rpc.RemoteError) {
	if baseHash != g.hash {
		return nil, &rpc.RemoteError{Code: rpc.CodeConflict, Message: "config changed since last load; re-run config.get"}
	}
	in, err := confdoc.Parse([]byte(raw))
	if err != nil {
		return nil, &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "invalid raw: " + err.Error()}
	}
	doc := in
	if method == rpc.MethodConfigPatch {
		doc = confdoc.AsMap(confdoc.ApplyMergePatch(confdoc.Clone(g.doc), in))
		if doc == nil {
			doc = confdoc.Document{}
		}
	}
	if g.Validate != nil {
		if issues := g.Validate(doc); len(issues) > 0 {
			list := make([]any, len(issues))
			for i, is := range issues {
				list[i] = map[string]any{"path": is.Path, "message": is.Message}
			}
			return nil, &rpc.RemoteError{
				Code:    rpc.CodeInvalid,
				Message: "invalid config",
				Details: map[string]any{"issues": list},
			}
		}
	}
	return doc, nil
}

// commit stores doc. Must be called with mu held.
func (g *Gateway) commit(doc confdoc.Document) {
	g.doc = doc
	g.hash = confdoc.Hash(doc)
}

// approvalsFor returns the approvals file for key, creating an empty one.
// Must be called with mu held.
func (g *Gateway) approvalsFor(key string) *approvalsFile {
	a, ok := g.approvals[key]
	if !ok {
		a = &approvalsFile{file: confdoc.Document{}}
		a.hash = key + "@" + confdoc.Hash(a.file)
		g.approvals[key] = a
	}
	return a
}

// jobIndex returns the position of the job with id. Must be called with mu held.
func (g *Gateway) jobIndex(id string) int {
	return slices.IndexFunc(g.jobs, func(j cron.Job) bool { return j.ID == id })
}

func approvalsKey(method, nodeID string) (string, *rpc.RemoteError) {
	if method == rpc.MethodApprovalsGet || method == rpc.MethodApprovalsSet {
		return "gateway", nil
	}
	if nodeID == "" {
		return "", &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "nodeId required"}
	}
	return "node:" + nodeID, nil
}

func patchJob(job cron.Job, patch map[string]any) (cron.Job, *rpc.RemoteError) {
	data, err := json.Marshal(job)
	if err != nil {
		return job, &rpc.RemoteError{Message: err.Error()}
	}
	var current map[string]any
	if err := json.Unmarshal(data, &current); err != nil {
		return job, &rpc.RemoteError{Message: err.Error()}
	}
	merged := confdoc.ApplyMergePatch(current, confdoc.CloneValue(patch))
	data, err = json.Marshal(merged)
	if err != nil {
		return job, &rpc.RemoteError{Message: err.Error()}
	}
	var out cron.Job
	if err := json.Unmarshal(data, &out); err != nil {
		return job, &rpc.RemoteError{Code: rpc.CodeInvalid, Message: err.Error()}
	}
	return out, nil
}

func decode(params json.RawMessage, v any) *rpc.RemoteError {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "invalid params: " + err.Error()}
	}
	return nil
}
