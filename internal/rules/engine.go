package rules

import (
	"context"
	"fmt"
	"log"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/observability"
	"stellar-sentinel/internal/storage"
)

// Engine runs the configured rule set against current store state and
// materializes fired findings as alerts and flags, suppressing duplicates
// within the dedup window. A failing rule never aborts the cycle; its error
// is logged and counted and the remaining rules still run.
type Engine struct {
	runner storage.TxRunner
	stores *storage.Stores
	rules  []Rule
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Runner storage.TxRunner
	Stores *storage.Stores
	Config Config
	Logger *log.Logger

	// Rules overrides the rule set built from Config. Used by tests.
	Rules []Rule

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// NewEngine creates a rule engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	rs := opts.Rules
	if rs == nil {
		rs = FromConfig(opts.Config)
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		runner: opts.Runner,
		stores: opts.Stores,
		rules:  rs,
		cfg:    opts.Config,
		logger: logger,
		now:    now,
	}
}

// Summary reports the outcome of one engine cycle.
type Summary struct {
	RulesEvaluated    int
	FindingsFired     int
	AlertsCreated     int
	FlagsCreated      int
	DuplicatesSkipped int
	RuleErrors        int
}

// RunCycle evaluates every rule once and persists the surviving findings.
// Returns an error only when the watched set itself cannot be loaded; rule
// failures are isolated per rule.
func (e *Engine) RunCycle(ctx context.Context) (*Summary, error) {
	now := e.now()
	watched, err := e.stores.Watchlists.ListWatchedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watched accounts: %w", err)
	}

	in := &EvalInput{Stores: e.stores, Watched: watched, Now: now}
	summary := &Summary{}

	for _, rule := range e.rules {
		findings, err := rule.Evaluate(ctx, in)
		if err != nil {
			e.logger.Printf("rule %s failed: %v", rule.Name(), err)
			observability.RecordRuleError(rule.Name())
			summary.RuleErrors++
			continue
		}
		summary.RulesEvaluated++
		observability.RecordRuleEvaluated()

		for i := range findings {
			if err := e.materialize(ctx, &findings[i], now, summary); err != nil {
				e.logger.Printf("rule %s: materialize finding failed: %v", rule.Name(), err)
				observability.RecordRuleError(rule.Name())
				summary.RuleErrors++
			}
		}
	}

	e.logger.Printf("rule cycle done: rules=%d fired=%d alerts=%d flags=%d duplicates=%d errors=%d",
		summary.RulesEvaluated, summary.FindingsFired, summary.AlertsCreated,
		summary.FlagsCreated, summary.DuplicatesSkipped, summary.RuleErrors)
	return summary, nil
}

func (e *Engine) materialize(ctx context.Context, f *domain.Finding, now time.Time, summary *Summary) error {
	summary.FindingsFired++
	observability.RecordFinding(f.RuleName)

	since := now.Add(-e.cfg.DedupWindow)
	dup, err := e.hasRecent(ctx, f, since)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if dup {
		summary.DuplicatesSkipped++
		observability.RecordDuplicateSkipped()
		return nil
	}

	if e.cfg.DryRun {
		e.logger.Printf("dry run: %s would fire (%s): %s", f.RuleName, f.Severity, f.Message)
		return nil
	}

	switch f.Kind {
	case domain.FindingFlag:
		if err := e.persistFlag(ctx, f, now); err != nil {
			return err
		}
		summary.FlagsCreated++
		observability.RecordFlagCreated()
	default:
		if err := e.persistAlert(ctx, f, now); err != nil {
			return err
		}
		summary.AlertsCreated++
		observability.RecordAlertCreated()
	}
	return nil
}

func (e *Engine) hasRecent(ctx context.Context, f *domain.Finding, since time.Time) (bool, error) {
	if f.Kind == domain.FindingFlag {
		if f.AccountID == nil {
			return false, fmt.Errorf("flag finding from %s has no account", f.RuleName)
		}
		return e.stores.Flags.HasRecent(ctx, f.RuleName, *f.AccountID, f.DedupKey, since)
	}
	return e.stores.Alerts.HasRecent(ctx, f.RuleName, f.AccountID, f.DedupKey, since)
}

func (e *Engine) persistAlert(ctx context.Context, f *domain.Finding, now time.Time) error {
	alert := &domain.Alert{
		AccountID: f.AccountID,
		AssetID:   f.AssetID,
		AlertType: f.RuleName,
		Severity:  f.Severity,
		Payload:   durablePayload(f),
		CreatedAt: now,
	}
	if err := e.stores.Alerts.Insert(ctx, alert); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// persistFlag writes the flag and the risk-score bump as one unit.
func (e *Engine) persistFlag(ctx context.Context, f *domain.Finding, now time.Time) error {
	if f.AccountID == nil {
		return fmt.Errorf("flag finding from %s has no account", f.RuleName)
	}
	accountID := *f.AccountID

	return e.runner.RunInTx(ctx, func(s *storage.Stores) error {
		flag := &domain.Flag{
			AccountID: accountID,
			FlagType:  f.RuleName,
			Severity:  f.Severity,
			Reason:    f.Message,
			Evidence:  durablePayload(f),
			CreatedAt: now,
		}
		if err := s.Flags.Insert(ctx, flag); err != nil {
			return fmt.Errorf("insert flag: %w", err)
		}
		if err := s.Accounts.AddRiskScore(ctx, accountID, f.Severity.RiskScoreDelta()); err != nil {
			return fmt.Errorf("add risk score: %w", err)
		}
		return nil
	})
}

// durablePayload copies the finding evidence and adds the suppression key
// and fire time, which the dedup lookup reads back.
func durablePayload(f *domain.Finding) map[string]any {
	payload := make(map[string]any, len(f.Evidence)+3)
	for k, v := range f.Evidence {
		payload[k] = v
	}
	payload["dedup_key"] = f.DedupKey
	payload["message"] = f.Message
	payload["rule_fired_at"] = f.FiredAt.UTC().Format(time.RFC3339)
	return payload
}
