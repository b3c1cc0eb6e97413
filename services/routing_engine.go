package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"vvg-world-api/config"
	"vvg-world-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action types the engine can dispatch. Flag and escalate are accepted by
// the data model but only record intent; email is the one real transport.
const (
	ActionEmail    = "email"
	ActionFlag     = "flag"
	ActionEscalate = "escalate"
)

// Mailer sends one message to all recipients or returns an error.
type Mailer interface {
	Send(to []string, subject, html, text string) error
}

type smtpMailer struct{}

func (smtpMailer) Send(to []string, subject, html, text string) error {
	return config.SendMail(to, subject, html, text)
}

// NewSMTPMailer returns the config-backed SMTP transport.
func NewSMTPMailer() Mailer { return smtpMailer{} }

// RoutingAction is one planned notification for one matched rule. It lives
// for the duration of a single pass; only its outcome is persisted.
type RoutingAction struct {
	RuleID   int
	Type     string
	Target   []string
	Priority string
	Rule     *models.RoutingRule
}

// RoutingResult is what the submission flow sees. Success is false only when
// something failed above the per-action loop; individual send failures are
// absorbed into the log and the ActionsTaken count.
type RoutingResult struct {
	Success      bool   `json:"success"`
	ActionsTaken int    `json:"actions_taken"`
	MatchedRules int    `json:"matched_rules"`
	PassID       string `json:"pass_id,omitempty"`
}

type actionHandler interface {
	Handle(action RoutingAction, pp *models.PainPoint) error
}

type emailActionHandler struct {
	mailer Mailer
}

func (h *emailActionHandler) Handle(action RoutingAction, pp *models.PainPoint) error {
	subject, html, text := RenderRuleNotification(pp, action.Rule, action.Priority)
	if err := h.mailer.Send(action.Target, subject, html, text); err != nil {
		return fmt.Errorf("failed to send routing email: %w", err)
	}
	return nil
}

// logOnlyHandler covers action types that have no transport yet.
type logOnlyHandler struct {
	verb string
}

func (h logOnlyHandler) Handle(action RoutingAction, pp *models.PainPoint) error {
	log.Printf("Routing: rule %d requested %s for pain point %d (no-op)", action.RuleID, h.verb, pp.PainPointID)
	return nil
}

// RoutingEngine runs one synchronous pass per submitted pain point:
// match rules, plan actions, dispatch them, and append one audit row per
// attempted action. There is no queue, retry, or background worker.
type RoutingEngine struct {
	db       *gorm.DB
	now      func() time.Time
	handlers map[string]actionHandler
}

func NewRoutingEngine(db *gorm.DB, mailer Mailer, now func() time.Time) *RoutingEngine {
	if db == nil {
		db = config.DB
	}
	if mailer == nil {
		mailer = NewSMTPMailer()
	}
	if now == nil {
		now = time.Now
	}
	return &RoutingEngine{
		db:  db,
		now: now,
		handlers: map[string]actionHandler{
			ActionEmail:    &emailActionHandler{mailer: mailer},
			ActionFlag:     logOnlyHandler{verb: ActionFlag},
			ActionEscalate: logOnlyHandler{verb: ActionEscalate},
		},
	}
}

// FindMatchingRules returns every active rule whose category and department
// sets match the pain point, highest priority first (older rules break ties).
func (e *RoutingEngine) FindMatchingRules(pp *models.PainPoint) ([]models.RoutingRule, error) {
	var rules []models.RoutingRule
	if err := e.db.Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load routing rules: %w", err)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return models.PriorityWeight(rules[i].Priority) > models.PriorityWeight(rules[j].Priority)
	})

	matched := make([]models.RoutingRule, 0, len(rules))
	for _, rule := range rules {
		if ruleMatches(&rule, pp) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func ruleMatches(rule *models.RoutingRule, pp *models.PainPoint) bool {
	if !rule.Categories.ContainsFold(models.MatchAll) && !rule.Categories.ContainsFold(pp.Category) {
		return false
	}
	if rule.Departments.ContainsFold(models.MatchAll) {
		return true
	}
	// A submission without a department matches every department set.
	if pp.Department == nil || strings.TrimSpace(*pp.Department) == "" {
		return true
	}
	return rule.Departments.ContainsFold(*pp.Department)
}

// PlanActions emits one email action per matched rule that has auto-routing
// on and at least one stakeholder. Rules failing either check are review-only
// and are skipped without error.
func (e *RoutingEngine) PlanActions(rules []models.RoutingRule) []RoutingAction {
	actions := make([]RoutingAction, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		if !rule.AutoRoute || len(rule.Stakeholders) == 0 {
			continue
		}
		actions = append(actions, RoutingAction{
			RuleID:   rule.RuleID,
			Type:     ActionEmail,
			Target:   append([]string(nil), rule.Stakeholders...),
			Priority: rule.Priority,
			Rule:     rule,
		})
	}
	return actions
}

// ExecuteRouting runs the full pass for one pain point. A failure while
// loading rules aborts the pass and reports success=false; a failure inside
// one action is logged and never blocks the remaining actions. The caller
// (the submission endpoint) must treat the whole thing as fire-and-forget.
func (e *RoutingEngine) ExecuteRouting(pp *models.PainPoint) RoutingResult {
	passID := uuid.NewString()

	matched, err := e.FindMatchingRules(pp)
	if err != nil {
		log.Printf("Routing pass %s aborted for pain point %d: %v", passID, pp.PainPointID, err)
		return RoutingResult{Success: false, PassID: passID}
	}

	actions := e.PlanActions(matched)
	taken := 0
	for _, action := range actions {
		start := e.now()
		handler, ok := e.handlers[action.Type]
		var handleErr error
		if !ok {
			handleErr = fmt.Errorf("unknown action type %q", action.Type)
		} else {
			handleErr = handler.Handle(action, pp)
		}
		elapsed := e.now().Sub(start).Milliseconds()

		if handleErr != nil {
			log.Printf("Routing: action %s for rule %d on pain point %d failed: %v",
				action.Type, action.RuleID, pp.PainPointID, handleErr)
			msg := handleErr.Error()
			e.logAction(passID, action, pp, false, &msg, elapsed)
			continue
		}
		taken++
		e.logAction(passID, action, pp, true, nil, elapsed)
	}

	return RoutingResult{
		Success:      true,
		ActionsTaken: taken,
		MatchedRules: len(matched),
		PassID:       passID,
	}
}

// logAction appends one audit row for an attempted action. Audit writes are
// best effort: a failed insert is printed to the operational log and dropped
// so it can never fail the routing pass that triggered it.
func (e *RoutingEngine) logAction(passID string, action RoutingAction, pp *models.PainPoint, success bool, errMsg *string, elapsedMs int64) {
	row := models.RoutingRuleLog{
		RuleID:               action.RuleID,
		PainPointID:          pp.PainPointID,
		PassID:               passID,
		ActionTaken:          action.Type,
		StakeholdersNotified: models.StringList(action.Target),
		PriorityAssigned:     action.Priority,
		Success:              success,
		ErrorMessage:         errMsg,
		ProcessingTimeMs:     elapsedMs,
		CreatedAt:            e.now(),
	}
	if err := e.db.Create(&row).Error; err != nil {
		log.Printf("Warning: failed to write routing log for rule %d / pain point %d: %v",
			action.RuleID, pp.PainPointID, err)
	}
}
