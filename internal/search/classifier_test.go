package search

import "testing"

func TestFollowUpWithFocusEntity(t *testing.T) {
	c := NewClassifier(DefaultHints())
	history := []Turn{
		{Role: RoleUser, Content: "find a bundle for X"},
		{Role: RoleAssistant, Content: "You could try bundle-x for that."},
	}

	qctx := c.Classify("tell me more about it", history)
	if qctx.Mode != ModeFollowUp {
		t.Fatalf("expected follow-up, got %s", qctx.Mode)
	}
	if qctx.FocusEntity != "bundle-x" {
		t.Errorf("expected focus bundle-x, got %q", qctx.FocusEntity)
	}
}

func TestFreshWithEmptyHistory(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("tell me more about it", nil)
	if qctx.Mode != ModeFresh {
		t.Errorf("expected fresh with empty history, got %s", qctx.Mode)
	}
}

func TestFollowUpDegradesWithoutFocus(t *testing.T) {
	c := NewClassifier(DefaultHints())
	history := []Turn{
		{Role: RoleUser, Content: "anything good here?"},
		{Role: RoleAssistant, Content: "I found nothing relevant."},
	}

	qctx := c.Classify("tell me more about it", history)
	if qctx.Mode != ModeFresh {
		t.Errorf("no resolvable focus must degrade to fresh, got %s", qctx.Mode)
	}
	if qctx.FocusEntity != "" {
		t.Errorf("focus should be empty, got %q", qctx.FocusEntity)
	}
}

func TestFocusScansNewestAssistantTurnFirst(t *testing.T) {
	c := NewClassifier(DefaultHints())
	history := []Turn{
		{Role: RoleAssistant, Content: "see old-bundle"},
		{Role: RoleUser, Content: "anything newer?"},
		{Role: RoleAssistant, Content: "try new-bundle instead"},
	}

	qctx := c.Classify("how do i use this one", history)
	if qctx.FocusEntity != "new-bundle" {
		t.Errorf("expected newest slug new-bundle, got %q", qctx.FocusEntity)
	}
}

func TestPlatformDetection(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("why is my kubernetes pod crashlooping", nil)
	if qctx.DetectedPlatform != "kubernetes" {
		t.Errorf("expected kubernetes, got %q", qctx.DetectedPlatform)
	}

	qctx = c.Classify("check eks node health", nil)
	if qctx.DetectedPlatform != "aws" {
		t.Errorf("expected aws for eks, got %q", qctx.DetectedPlatform)
	}
}

func TestResourceHintsAndExcludes(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("monitor postgres connection count", nil)

	if qctx.ResourceHints["resource_type"] != "postgres" {
		t.Fatalf("expected postgres hint, got %v", qctx.ResourceHints)
	}
	excluded := qctx.ResourceExcludes["resource_type"]
	foundMySQL := false
	for _, v := range excluded {
		if v == "postgres" {
			t.Errorf("required value must not be excluded")
		}
		if v == "mysql" {
			foundMySQL = true
		}
	}
	if !foundMySQL {
		t.Errorf("expected mysql in excludes, got %v", excluded)
	}
}

func TestSiblingMentionsAreNotExcluded(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("compare postgres and mysql replication bundles", nil)

	if qctx.ResourceHints["resource_type"] == "" {
		t.Fatalf("expected a resource hint, got %v", qctx.ResourceHints)
	}
	seen := map[string]bool{}
	for _, v := range qctx.ResourceExcludes["resource_type"] {
		if v == "postgres" || v == "mysql" {
			t.Errorf("mentioned value %q must not be excluded", v)
		}
		if seen[v] {
			t.Errorf("duplicate exclude %q", v)
		}
		seen[v] = true
	}
	if !seen["redis"] {
		t.Errorf("unmentioned siblings stay excluded, got %v", qctx.ResourceExcludes["resource_type"])
	}
}

func TestResourceKeywordMatchesWholeWordsOnly(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("rediscover my services", nil)
	if len(qctx.ResourceHints) != 0 {
		t.Errorf("substring inside a word must not trigger a hint, got %v", qctx.ResourceHints)
	}
}

func TestVagueReferenceAugmentation(t *testing.T) {
	c := NewClassifier(DefaultHints())
	history := []Turn{
		{Role: RoleUser, Content: "bundles for nginx ingress errors"},
		{Role: RoleAssistant, Content: "try ingress-error-inspect"},
	}

	qctx := c.Classify("do you have something else?", history)
	want := "bundles for nginx ingress errors do you have something else?"
	if qctx.AugmentedQuery != want {
		t.Errorf("expected augmented query %q, got %q", want, qctx.AugmentedQuery)
	}
}

func TestMetaClassification(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("how many codecollections are registered?", nil)
	if qctx.Mode != ModeMeta {
		t.Errorf("expected meta, got %s", qctx.Mode)
	}
}

func TestLibraryHelpClassification(t *testing.T) {
	c := NewClassifier(DefaultHints())
	qctx := c.Classify("which library handles http requests?", nil)
	if qctx.Mode != ModeLibraryHelp {
		t.Errorf("expected library-help, got %s", qctx.Mode)
	}
}
