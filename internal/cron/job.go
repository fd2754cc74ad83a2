package cron

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/sclaw-console/internal/configsync"
)

// parser accepts standard 5-field expressions plus descriptors (@daily).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a 5-field cron expression. Time zones are carried by
// Schedule.TZ, so TZ= prefixes are rejected.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return nil, errors.New("empty expression")
	case strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ="):
		return nil, errors.New("time zone prefix not allowed, use tz")
	}
	return parser.Parse(expr)
}

// ScheduleKind selects how a job's schedule is interpreted.
type ScheduleKind string

// Schedule kinds.
const (
	ScheduleCron  ScheduleKind = "cron"
	ScheduleEvery ScheduleKind = "every"
	ScheduleAt    ScheduleKind = "at"
)

// SessionTarget selects where a job runs.
type SessionTarget string

// Session targets.
const (
	// TargetMain injects a system event into the agent's main session.
	TargetMain SessionTarget = "main"
	// TargetIsolated runs an agent turn in a fresh session.
	TargetIsolated SessionTarget = "isolated"
)

// PayloadKind is the kind of work a job carries.
type PayloadKind string

// Payload kinds.
const (
	PayloadSystemEvent PayloadKind = "systemEvent"
	PayloadAgentTurn   PayloadKind = "agentTurn"
)

// Schedule is a job's timing.
type Schedule struct {
	Kind    ScheduleKind `json:"kind"`
	Expr    string       `json:"expr,omitempty"`
	TZ      string       `json:"tz,omitempty"`
	EveryMs int64        `json:"everyMs,omitempty"`
	AtMs    int64        `json:"atMs,omitempty"`
}

// Payload is what a job delivers when it fires.
type Payload struct {
	Kind    PayloadKind `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Message string      `json:"message,omitempty"`
	Model   string      `json:"model,omitempty"`
}

// JobState is the gateway's runtime bookkeeping for a job. Read-only.
type JobState struct {
	NextRunAtMs int64  `json:"nextRunAtMs,omitempty"`
	LastRunAtMs int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// Job is a cron job as stored by the gateway.
type Job struct {
	ID            string        `json:"id,omitempty"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Enabled       bool          `json:"enabled"`
	AgentID       string        `json:"agentId,omitempty"`
	Schedule      Schedule      `json:"schedule"`
	SessionTarget SessionTarget `json:"sessionTarget"`
	Payload       Payload       `json:"payload"`
	State         *JobState     `json:"state,omitempty"`
}

// Validate checks j locally before it is sent to the gateway. Problems are
// reported as a *configsync.ValidationError.
func (j Job) Validate() error {
	var issues []configsync.Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, configsync.Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(j.Name) == "" {
		add("name", "required")
	}

	switch j.Schedule.Kind {
	case ScheduleCron:
		if _, err := ParseSchedule(j.Schedule.Expr); err != nil {
			add("schedule.expr", "invalid cron expression: %v", err)
		}
		if j.Schedule.TZ != "" {
			if _, err := time.LoadLocation(j.Schedule.TZ); err != nil {
				add("schedule.tz", "unknown time zone %q", j.Schedule.TZ)
			}
		}
	case ScheduleEvery:
		if j.Schedule.EveryMs <= 0 {
			add("schedule.everyMs", "must be positive")
		}
	case ScheduleAt:
		if j.Schedule.AtMs <= 0 {
			add("schedule.atMs", "must be a unix time in milliseconds")
		}
	default:
		add("schedule.kind", "must be one of cron, every, at")
	}

	switch j.SessionTarget {
	case TargetMain:
		if j.Payload.Kind != PayloadSystemEvent {
			add("payload.kind", "main session jobs require a systemEvent payload")
		} else if strings.TrimSpace(j.Payload.Text) == "" {
			add("payload.text", "required")
		}
	case TargetIsolated:
		if j.Payload.Kind != PayloadAgentTurn {
			add("payload.kind", "isolated jobs require an agentTurn payload")
		} else if strings.TrimSpace(j.Payload.Message) == "" {
			add("payload.message", "required")
		}
	default:
		add("sessionTarget", "must be main or isolated")
	}

	if len(issues) > 0 {
		return &configsync.ValidationError{Issues: issues}
	}
	return nil
}

// NextRun returns the first time after from the job would fire. It reports
// false for disabled jobs, past one-shot jobs and invalid schedules.
func (j Job) NextRun(from time.Time) (time.Time, bool) {
	if !j.Enabled {
		return time.Time{}, false
	}
	switch j.Schedule.Kind {
	case ScheduleCron:
		sched, err := ParseSchedule(j.Schedule.Expr)
		if err != nil {
			return time.Time{}, false
		}
		if j.Schedule.TZ != "" {
			loc, err := time.LoadLocation(j.Schedule.TZ)
			if err != nil {
				return time.Time{}, false
			}
			from = from.In(loc)
		}
		next := sched.Next(from)
		return next, !next.IsZero()
	case ScheduleEvery:
		if j.Schedule.EveryMs <= 0 {
			return time.Time{}, false
		}
		return from.Add(time.Duration(j.Schedule.EveryMs) * time.Millisecond), true
	case ScheduleAt:
		at := time.UnixMilli(j.Schedule.AtMs)
		if j.Schedule.AtMs <= 0 || !at.After(from) {
			return time.Time{}, false
		}
		return at, true
	}
	return time.Time{}, false
}
