// Package model defines the wire entities shared by every service in the
// fleet, per spec §3 (DATA MODEL). Every entity tolerates unknown fields on
// read and never writes one on the way out.
package model

import "time"

// Side is a trade direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ExecStatusKind enumerates terminal and non-terminal execution states.
type ExecStatusKind string

const (
	StatusPending  ExecStatusKind = "pending"
	StatusFilled   ExecStatusKind = "filled"
	StatusRejected ExecStatusKind = "rejected"
	StatusFailed   ExecStatusKind = "failed"
	StatusCanceled ExecStatusKind = "canceled"
)

// IsTerminal reports whether the status will never change again.
func (s ExecStatusKind) IsTerminal() bool {
	return s != StatusPending
}

// RiskRejectReason enumerates the closed set of rejection reasons a
// RiskDecision may carry.
type RiskRejectReason string

const (
	ReasonLowConfidence  RiskRejectReason = "low_confidence"
	ReasonBlockedSide    RiskRejectReason = "blocked_side"
	ReasonOutsideWindow  RiskRejectReason = "outside_window"
	ReasonPositionLimit  RiskRejectReason = "position_limit"
	ReasonDailyLossLimit RiskRejectReason = "daily_loss_limit"
)

// Severity enumerates Event severities.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CommMode enumerates the orchestrator's communication strategy.
type CommMode string

const (
	ModeHTTP   CommMode = "http"
	ModePubsub CommMode = "pubsub"
	ModeHybrid CommMode = "hybrid"
)

// CommandKind enumerates the orchestrator.commands stream's entry kinds.
type CommandKind string

const (
	CommandRun    CommandKind = "run"
	CommandHalt   CommandKind = "halt"
	CommandUnhalt CommandKind = "unhalt"
)

// Command is appended to orchestrator.commands to kick off the async
// pipeline, or to broadcast a halt/unhalt the analyst/risk/executor
// consumers don't need to act on but which notifier/integrations observe.
type Command struct {
	Kind       CommandKind `json:"kind"`
	RequestID  string      `json:"requestId"`
	Symbol     string      `json:"symbol"`
	Side       *Side       `json:"side,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	TraceID    string      `json:"traceId"`
	Ts         time.Time   `json:"ts"`
}

// Signal is produced by the Analyst for a symbol and consumed by the Orchestrator.
type Signal struct {
	RequestID  string    `json:"requestId"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Confidence float64   `json:"confidence"`
	TraceID    string    `json:"traceId"`
	Ts         time.Time `json:"ts"`
}

// RiskRequest mirrors Signal on the wire into the risk worker.
type RiskRequest struct {
	RequestID  string    `json:"requestId"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Confidence float64   `json:"confidence"`
	TraceID    string    `json:"traceId"`
	Ts         time.Time `json:"ts"`
}

// RiskDecision is the risk worker's verdict on a RiskRequest.
type RiskDecision struct {
	RequestID string           `json:"requestId"`
	OK        bool             `json:"ok"`
	Reason    RiskRejectReason `json:"reason,omitempty"`
	TraceID   string           `json:"traceId"`
	Ts        time.Time        `json:"ts"`
}

// Order is an instruction to the Executor. OrderID reuses RequestID end to end.
type Order struct {
	OrderID string    `json:"orderId"`
	Symbol  string    `json:"symbol"`
	Side    Side      `json:"side"`
	Qty     float64   `json:"qty"`
	TraceID string    `json:"traceId"`
	Ts      time.Time `json:"ts"`
}

// ExecStatus reports the outcome of an Order.
type ExecStatus struct {
	OrderID string         `json:"orderId"`
	Symbol  string         `json:"symbol"`
	Side    Side           `json:"side"`
	Qty     float64        `json:"qty"`
	Status  ExecStatusKind `json:"status"`
	Price   float64        `json:"price,omitempty"`
	Fee     float64        `json:"fee,omitempty"`
	Profit  float64        `json:"profit,omitempty"`
	TraceID string         `json:"traceId"`
	Ts      time.Time      `json:"ts"`
}

// Event is a human-visible outcome fanned out by the Notifier and watched by
// the Integrations broker.
type Event struct {
	Type      string                 `json:"type"`
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
	TraceID   string                 `json:"traceId,omitempty"`
	Ts        time.Time              `json:"ts"`
}

// PnLDay is the per-UTC-day ledger row, keyed by date (YYYYMMDD).
type PnLDay struct {
	Date           string    `json:"date"`
	StartEquity    float64   `json:"startEquity"`
	PnLUsd         float64   `json:"pnlUsd"`
	PnLPct         float64   `json:"pnlPct"`
	DailyTargetPct float64   `json:"dailyTargetPct"`
	Halted         bool      `json:"halted"`
	HaltReason     string    `json:"haltReason,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RiskParameters is the single keyed map of hot-reloadable risk config read
// by every Risk worker instance.
type RiskParameters struct {
	MinConfidence    float64       `json:"minConfidence"`
	BlockSides       map[Side]bool `json:"blockSides"`
	TradingStartHour *int          `json:"tradingStartHour,omitempty"`
	TradingEndHour   *int          `json:"tradingEndHour,omitempty"`
	RiskLimit        *float64      `json:"riskLimit,omitempty"`
	Symbol           string        `json:"symbol,omitempty"`
}

// OptJobStatus enumerates the lifecycle of an optimizer proposal.
type OptJobStatus string

const (
	OptPendingApproval OptJobStatus = "pending_approval"
	OptApproved        OptJobStatus = "approved"
	OptRejected        OptJobStatus = "rejected"
)

// BacktestSummary is the optimizer's toy backtest result attached to a proposal.
type BacktestSummary struct {
	WinRate float64 `json:"winRate"`
	Sharpe  float64 `json:"sharpe"`
	MaxDD   float64 `json:"maxDD"`
}

// OptJob is a proposed parameter change awaiting operator approval.
type OptJob struct {
	JobID     string          `json:"jobId"`
	Status    OptJobStatus    `json:"status"`
	Proposed  RiskParameters  `json:"proposed"`
	Backtest  BacktestSummary `json:"backtest"`
	TraceID   string          `json:"traceId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DLQEnvelope wraps an entry that exceeded its retry budget.
type DLQEnvelope struct {
	OriginalStream string    `json:"originalStream"`
	Payload        []byte    `json:"payload"`
	Failures       int       `json:"failures"`
	LastError      string    `json:"lastError"`
	Ts             time.Time `json:"ts"`
}
