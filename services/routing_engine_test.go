package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vvg-world-api/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.PainPoint{},
		&models.RoutingRule{},
		&models.RoutingRuleLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

type sentMail struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// recordingMailer captures sends and can be told to fail for chosen
// recipients.
type recordingMailer struct {
	sent    []sentMail
	failFor map[string]error
}

func (m *recordingMailer) Send(to []string, subject, html, text string) error {
	for _, addr := range to {
		if err, ok := m.failFor[addr]; ok {
			return err
		}
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html, Text: text})
	return nil
}

// testClock advances a fixed amount on every call so processing times are
// deterministic.
func testClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func newTestEngine(t *testing.T, mailer Mailer) (*RoutingEngine, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return NewRoutingEngine(db, mailer, testClock(start, 5*time.Millisecond)), db
}

func strPtr(s string) *string { return &s }

func createRule(t *testing.T, db *gorm.DB, rule models.RoutingRule) models.RoutingRule {
	t.Helper()
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}
	return rule
}

func TestFindMatchingRules_SkipsInactiveRules(t *testing.T) {
	engine, db := newTestEngine(t, &recordingMailer{})

	createRule(t, db, models.RoutingRule{
		Name:         "disabled safety",
		Categories:   models.StringList{"Safety"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"a@x.com"},
		Priority:     models.PriorityHigh,
		AutoRoute:    true,
		IsActive:     false,
	})

	pp := &models.PainPoint{PainPointID: 1, Category: "Safety"}
	matched, err := engine.FindMatchingRules(pp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 0 {
		t.Errorf("expected 0 matches for inactive rule, got %d", len(matched))
	}
}

func TestFindMatchingRules_WildcardAndCase(t *testing.T) {
	engine, db := newTestEngine(t, &recordingMailer{})

	createRule(t, db, models.RoutingRule{
		Name:        "catch all",
		Categories:  models.StringList{"ALL"},
		Departments: models.StringList{"All"},
		IsActive:    true,
	})
	createRule(t, db, models.RoutingRule{
		Name:        "safety exact",
		Categories:  models.StringList{"safety"},
		Departments: models.StringList{"OPS"},
		IsActive:    true,
	})
	createRule(t, db, models.RoutingRule{
		Name:        "other department",
		Categories:  models.StringList{"Safety"},
		Departments: models.StringList{"Finance"},
		IsActive:    true,
	})

	pp := &models.PainPoint{Category: "Safety", Department: strPtr("Ops")}
	matched, err := engine.FindMatchingRules(pp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	for _, rule := range matched {
		if rule.Name == "other department" {
			t.Errorf("department mismatch rule should not match")
		}
	}
}

func TestFindMatchingRules_MissingDepartmentMatchesEverything(t *testing.T) {
	engine, db := newTestEngine(t, &recordingMailer{})

	createRule(t, db, models.RoutingRule{
		Name:        "hr only",
		Categories:  models.StringList{"Culture"},
		Departments: models.StringList{"HR"},
		IsActive:    true,
	})

	pp := &models.PainPoint{Category: "Culture"}
	matched, err := engine.FindMatchingRules(pp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 1 {
		t.Errorf("submission without department should match, got %d matches", len(matched))
	}
}

func TestFindMatchingRules_OrdersByPriority(t *testing.T) {
	engine, db := newTestEngine(t, &recordingMailer{})

	createRule(t, db, models.RoutingRule{
		Name:        "low first",
		Categories:  models.StringList{"all"},
		Departments: models.StringList{"all"},
		Priority:    models.PriorityLow,
		IsActive:    true,
	})
	createRule(t, db, models.RoutingRule{
		Name:        "critical second",
		Categories:  models.StringList{"all"},
		Departments: models.StringList{"all"},
		Priority:    models.PriorityCritical,
		IsActive:    true,
	})
	createRule(t, db, models.RoutingRule{
		Name:        "medium third",
		Categories:  models.StringList{"all"},
		Departments: models.StringList{"all"},
		Priority:    models.PriorityMedium,
		IsActive:    true,
	})

	pp := &models.PainPoint{Category: "Anything"}
	matched, err := engine.FindMatchingRules(pp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matched))
	}
	want := []string{"critical second", "medium third", "low first"}
	for i, name := range want {
		if matched[i].Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, matched[i].Name)
		}
	}
}

func TestPlanActions_SkipsReviewOnlyRules(t *testing.T) {
	engine, _ := newTestEngine(t, &recordingMailer{})

	rules := []models.RoutingRule{
		{
			RuleID:       1,
			Name:         "manual review",
			Stakeholders: models.StringList{"a@x.com"},
			Priority:     models.PriorityHigh,
			AutoRoute:    false,
		},
		{
			RuleID:    2,
			Name:      "no stakeholders",
			Priority:  models.PriorityHigh,
			AutoRoute: true,
		},
		{
			RuleID:       3,
			Name:         "actionable",
			Stakeholders: models.StringList{"a@x.com", "b@x.com"},
			Priority:     models.PriorityCritical,
			AutoRoute:    true,
		},
	}

	actions := engine.PlanActions(rules)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	action := actions[0]
	if action.RuleID != 3 || action.Type != ActionEmail {
		t.Errorf("unexpected action: %+v", action)
	}
	if len(action.Target) != 2 {
		t.Errorf("expected action to target all stakeholders, got %v", action.Target)
	}
	if action.Priority != models.PriorityCritical {
		t.Errorf("expected critical priority, got %s", action.Priority)
	}
}

func TestExecuteRouting_SuccessfulPassLogsOneRow(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	rule := createRule(t, db, models.RoutingRule{
		Name:         "safety",
		Categories:   models.StringList{"Safety"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"a@x.com"},
		Priority:     models.PriorityHigh,
		AutoRoute:    true,
		IsActive:     true,
	})

	pp := &models.PainPoint{Title: "Broken ladder", Category: "Safety", Department: strPtr("Ops"), SubmittedBy: "worker@vvg.com"}
	if err := db.Create(pp).Error; err != nil {
		t.Fatalf("failed to create pain point: %v", err)
	}

	result := engine.ExecuteRouting(pp)
	if !result.Success {
		t.Fatal("expected success")
	}
	if result.ActionsTaken != 1 || result.MatchedRules != 1 {
		t.Errorf("expected 1 action / 1 match, got %d / %d", result.ActionsTaken, result.MatchedRules)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
	if mailer.sent[0].To[0] != "a@x.com" {
		t.Errorf("unexpected recipient: %v", mailer.sent[0].To)
	}

	var logs []models.RoutingRuleLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("failed to load logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs))
	}
	row := logs[0]
	if !row.Success || row.RuleID != rule.RuleID || row.PainPointID != pp.PainPointID {
		t.Errorf("unexpected log row: %+v", row)
	}
	if row.ActionTaken != ActionEmail || row.PriorityAssigned != models.PriorityHigh {
		t.Errorf("unexpected action/priority on log row: %+v", row)
	}
	if row.PassID != result.PassID {
		t.Errorf("log row pass id %q does not match result %q", row.PassID, result.PassID)
	}
	if row.ErrorMessage != nil {
		t.Errorf("successful row should have no error message, got %q", *row.ErrorMessage)
	}
	if row.ProcessingTimeMs <= 0 {
		t.Errorf("expected positive processing time, got %d", row.ProcessingTimeMs)
	}
}

func TestExecuteRouting_FailureDoesNotBlockSiblings(t *testing.T) {
	mailer := &recordingMailer{
		failFor: map[string]error{"down@x.com": errors.New("smtp: connection refused")},
	}
	engine, db := newTestEngine(t, mailer)

	createRule(t, db, models.RoutingRule{
		Name:         "first (fails)",
		Categories:   models.StringList{"all"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"down@x.com"},
		Priority:     models.PriorityCritical,
		AutoRoute:    true,
		IsActive:     true,
	})
	createRule(t, db, models.RoutingRule{
		Name:         "second (sends)",
		Categories:   models.StringList{"all"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"ok@x.com"},
		Priority:     models.PriorityLow,
		AutoRoute:    true,
		IsActive:     true,
	})

	pp := &models.PainPoint{Title: "dup recipients", Category: "Safety"}
	if err := db.Create(pp).Error; err != nil {
		t.Fatalf("failed to create pain point: %v", err)
	}

	result := engine.ExecuteRouting(pp)
	if !result.Success {
		t.Fatal("per-action failures must not fail the pass")
	}
	if result.ActionsTaken != 1 {
		t.Errorf("expected 1 action taken, got %d", result.ActionsTaken)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To[0] != "ok@x.com" {
		t.Errorf("expected only the second rule's mail to go out, got %+v", mailer.sent)
	}

	var logs []models.RoutingRuleLog
	if err := db.Order("log_id ASC").Find(&logs).Error; err != nil {
		t.Fatalf("failed to load logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logs))
	}
	if logs[0].Success {
		t.Error("first row should record the failure")
	}
	if logs[0].ErrorMessage == nil || !strings.Contains(*logs[0].ErrorMessage, "connection refused") {
		t.Errorf("expected captured error message, got %v", logs[0].ErrorMessage)
	}
	if !logs[1].Success {
		t.Error("second row should record the success")
	}
}

func TestExecuteRouting_TwoMatchingRulesTwoIndependentActions(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	createRule(t, db, models.RoutingRule{
		Name:         "category specific",
		Categories:   models.StringList{"Safety"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"a@x.com"},
		Priority:     models.PriorityHigh,
		AutoRoute:    true,
		IsActive:     true,
	})
	createRule(t, db, models.RoutingRule{
		Name:         "wildcard",
		Categories:   models.StringList{"all"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"a@x.com", "b@x.com"},
		Priority:     models.PriorityMedium,
		AutoRoute:    true,
		IsActive:     true,
	})

	pp := &models.PainPoint{Title: "overlap", Category: "Safety"}
	if err := db.Create(pp).Error; err != nil {
		t.Fatalf("failed to create pain point: %v", err)
	}

	result := engine.ExecuteRouting(pp)
	if result.ActionsTaken != 2 || result.MatchedRules != 2 {
		t.Errorf("expected 2 actions / 2 matches, got %d / %d", result.ActionsTaken, result.MatchedRules)
	}
	if len(mailer.sent) != 2 {
		t.Errorf("expected 2 emails even with overlapping recipients, got %d", len(mailer.sent))
	}

	var count int64
	db.Model(&models.RoutingRuleLog{}).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 log rows, got %d", count)
	}
}

func TestExecuteRouting_MatchedReviewOnlyRuleLeavesNoTrace(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	createRule(t, db, models.RoutingRule{
		Name:        "empty stakeholders",
		Categories:  models.StringList{"Safety"},
		Departments: models.StringList{"all"},
		Priority:    models.PriorityHigh,
		AutoRoute:   true,
		IsActive:    true,
	})

	pp := &models.PainPoint{Title: "review only", Category: "Safety"}
	if err := db.Create(pp).Error; err != nil {
		t.Fatalf("failed to create pain point: %v", err)
	}

	result := engine.ExecuteRouting(pp)
	if !result.Success {
		t.Fatal("expected success")
	}
	if result.ActionsTaken != 0 {
		t.Errorf("expected 0 actions, got %d", result.ActionsTaken)
	}
	if result.MatchedRules != 1 {
		t.Errorf("rule should still count as matched, got %d", result.MatchedRules)
	}

	var count int64
	db.Model(&models.RoutingRuleLog{}).Count(&count)
	if count != 0 {
		t.Errorf("matched rule without plannable action must produce no log rows, got %d", count)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("expected no emails, got %d", len(mailer.sent))
	}
}

func TestExecuteRouting_RuleLookupFailureAbortsPass(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	if err := db.Migrator().DropTable(&models.RoutingRule{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	pp := &models.PainPoint{Title: "doomed", Category: "Safety"}
	result := engine.ExecuteRouting(pp)
	if result.Success {
		t.Error("expected failure when the rule store is unreachable")
	}
	if result.ActionsTaken != 0 {
		t.Errorf("expected 0 actions, got %d", result.ActionsTaken)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("no mail should go out on an aborted pass, got %d", len(mailer.sent))
	}
}

func TestExecuteRouting_AuditWriteFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	createRule(t, db, models.RoutingRule{
		Name:         "safety",
		Categories:   models.StringList{"all"},
		Departments:  models.StringList{"all"},
		Stakeholders: models.StringList{"a@x.com"},
		Priority:     models.PriorityHigh,
		AutoRoute:    true,
		IsActive:     true,
	})

	// Losing the log table must not fail the pass or the send.
	if err := db.Migrator().DropTable(&models.RoutingRuleLog{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	pp := &models.PainPoint{Title: "no audit", Category: "Safety"}
	result := engine.ExecuteRouting(pp)
	if !result.Success {
		t.Error("audit failures must never fail the pass")
	}
	if result.ActionsTaken != 1 {
		t.Errorf("expected the action to still count, got %d", result.ActionsTaken)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected the send to still happen, got %d", len(mailer.sent))
	}
}

func TestExecuteRouting_PassIDGroupsRows(t *testing.T) {
	mailer := &recordingMailer{}
	engine, db := newTestEngine(t, mailer)

	for i := 0; i < 2; i++ {
		createRule(t, db, models.RoutingRule{
			Name:         fmt.Sprintf("rule %d", i),
			Categories:   models.StringList{"all"},
			Departments:  models.StringList{"all"},
			Stakeholders: models.StringList{"a@x.com"},
			Priority:     models.PriorityMedium,
			AutoRoute:    true,
			IsActive:     true,
		})
	}

	pp := &models.PainPoint{Title: "grouped", Category: "Anything"}
	if err := db.Create(pp).Error; err != nil {
		t.Fatalf("failed to create pain point: %v", err)
	}

	first := engine.ExecuteRouting(pp)
	second := engine.ExecuteRouting(pp)
	if first.PassID == second.PassID {
		t.Fatal("each pass must have its own id")
	}

	var count int64
	db.Model(&models.RoutingRuleLog{}).Where("pass_id = ?", first.PassID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 rows for the first pass, got %d", count)
	}
}
