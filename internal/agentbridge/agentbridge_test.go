package agentbridge

import "testing"

func strPtr(s string) *string { return &s }

func TestValidateDecide_RequiresExactlyOneBranch(t *testing.T) {
	prices := map[string]float64{"a": 1}

	if _, reason := validateDecide(rawDecide{}, prices, 10); reason == "" {
		t.Fatal("expected rejection when neither branch is populated")
	}

	both := rawDecide{ChosenOfferIDs: []string{"a"}, FollowupQuery: strPtr("q")}
	if _, reason := validateDecide(both, prices, 10); reason == "" {
		t.Fatal("expected rejection when both branches are populated")
	}
}

func TestValidateDecide_ChosenOfferIDsMustBeSubset(t *testing.T) {
	prices := map[string]float64{"a": 1}
	rd := rawDecide{ChosenOfferIDs: []string{"a", "unknown"}}

	if _, reason := validateDecide(rd, prices, 10); reason == "" {
		t.Fatal("expected rejection for an offer id outside the available set")
	}
}

func TestValidateDecide_ChosenOffersMustFitBudget(t *testing.T) {
	prices := map[string]float64{"a": 6, "b": 5}
	rd := rawDecide{ChosenOfferIDs: []string{"a", "b"}}

	if _, reason := validateDecide(rd, prices, 10); reason == "" {
		t.Fatal("expected rejection when the chosen offers' total price exceeds the remaining budget")
	}
}

func TestValidateDecide_ChosenOfferIDsAccepted(t *testing.T) {
	prices := map[string]float64{"a": 4, "b": 6}
	rd := rawDecide{ChosenOfferIDs: []string{"a", "b"}}

	reply, reason := validateDecide(rd, prices, 10)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if len(reply.ChosenOfferIDs) != 2 {
		t.Fatalf("got %d chosen offer ids, want 2", len(reply.ChosenOfferIDs))
	}
}

func TestValidateDecide_FollowupRequiresBudget(t *testing.T) {
	rd := rawDecide{FollowupQuery: strPtr("anything else?")}

	if _, reason := validateDecide(rd, nil, 10); reason == "" {
		t.Fatal("expected rejection when followup_query_budget is missing")
	}
}

func TestValidateDecide_FollowupBudgetMustFitRemaining(t *testing.T) {
	over := 20.0
	rd := rawDecide{FollowupQuery: strPtr("q"), FollowupQueryBudget: &over}

	if _, reason := validateDecide(rd, nil, 10); reason == "" {
		t.Fatal("expected rejection when followup budget exceeds budget remaining")
	}

	neg := -1.0
	rd.FollowupQueryBudget = &neg
	if _, reason := validateDecide(rd, nil, 10); reason == "" {
		t.Fatal("expected rejection for negative followup budget")
	}
}

func TestValidateDecide_FollowupAccepted(t *testing.T) {
	budget := 5.0
	rd := rawDecide{FollowupQuery: strPtr("narrower question"), FollowupQueryBudget: &budget}

	reply, reason := validateDecide(rd, nil, 10)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if reply.FollowupQuery == nil || *reply.FollowupQuery != "narrower question" {
		t.Fatalf("unexpected followup query: %+v", reply)
	}
	if reply.FollowupQueryBudget != 5.0 {
		t.Fatalf("followup budget = %v, want 5.0", reply.FollowupQueryBudget)
	}
}
