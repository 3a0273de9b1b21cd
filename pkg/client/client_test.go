package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/infomarket/server/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubMarketServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	ctxID := uuid.New()
	offerID := uuid.New()

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] == "bad@example.com" {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "test-jwt", "user": map[string]any{"email": req["email"]}})
	})

	mux.HandleFunc("/api/v1/contexts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req client.CreateContextRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"id": ctxID, "query": req.Query, "max_budget": req.MaxBudget, "priority": req.Priority,
		})
	})

	mux.HandleFunc("/api/v1/contexts/"+ctxID.String(), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"id": ctxID, "query": "best CRM"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	mux.HandleFunc("/api/v1/contexts/"+ctxID.String()+"/offers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req client.CreateOfferRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{"id": offerID, "context_id": ctxID, "price": req.Price})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"offers": []map[string]any{{"id": offerID, "context_id": ctxID}}})
		}
	})

	jobID := uuid.New()
	mux.HandleFunc("/api/v1/contexts/"+ctxID.String()+"/inspections", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"job_id": jobID})
	})


	mux.HandleFunc("/api/v1/jobs/"+jobID.String(), func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"state": "done", "result": []uuid.UUID{offerID}})
	})

	subID := uuid.New()
	mux.HandleFunc("/api/v1/sellers/me/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": subID, "min_budget": 1.0})
	})

	mux.HandleFunc("/api/v1/subscriptions/"+subID.String()+"/inbox", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"contexts": []map[string]any{{"id": ctxID}}})
	})

	mux.HandleFunc("/api/v1/buyers", func(w http.ResponseWriter, r *http.Request) {
		var req client.CreateBuyerProfileRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"default_max_budget": req.DefaultMaxBudget})
	})

	mux.HandleFunc("/api/v1/sellers", func(w http.ResponseWriter, r *http.Request) {
		var req client.CreateHumanSellerProfileRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"display_name": req.DisplayName})
	})

	botID := uuid.New()
	mux.HandleFunc("/api/v1/bot-sellers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req client.CreateBotSellerProfileRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{"id": botID, "name": req.Name, "info": req.Info, "price": req.Price})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"bot_sellers": []map[string]any{{"id": botID, "name": "summarizer"}}})
		}
	})

	mux.HandleFunc("/api/v1/abuse-reports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Authorization") == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": uuid.New(), "status": "open"})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"reports": []map[string]any{{"id": uuid.New(), "status": "open"}}})
		}
	})

	_ = jobID
	return httptest.NewServer(mux)
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestLogin_success(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Login(context.Background(), "buyer@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "test-jwt" {
		t.Errorf("unexpected token: %s", result.Token)
	}
}

func TestLogin_unauthorized(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL)
	_, err := c.Login(context.Background(), "bad@example.com", "wrong")
	if err == nil {
		t.Error("expected error for bad credentials")
	}
}

func TestCreateAndGetContext(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("test-jwt"))
	dc, err := c.CreateContext(context.Background(), client.CreateContextRequest{
		Query: "best CRM", MaxBudget: 5, Priority: 2,
	})
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if dc.Query != "best CRM" {
		t.Errorf("unexpected query: %s", dc.Query)
	}

	got, err := c.GetContext(context.Background(), dc.ID)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if got.ID != dc.ID {
		t.Errorf("id mismatch: %s vs %s", got.ID, dc.ID)
	}
}

func TestCreateAndListOffers(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("test-jwt"))
	dc, _ := c.CreateContext(context.Background(), client.CreateContextRequest{Query: "q", MaxBudget: 1})

	o, err := c.CreateOffer(context.Background(), dc.ID, client.CreateOfferRequest{PrivateInfo: "secret", Price: 0.5})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if o.Price != 0.5 {
		t.Errorf("unexpected price: %v", o.Price)
	}

	offers, err := c.ListOffers(context.Background(), dc.ID)
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}
	if len(offers) != 1 {
		t.Errorf("expected 1 offer, got %d", len(offers))
	}
}

func TestStartInspectionAndWaitForJob(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("test-jwt"))
	dc, _ := c.CreateContext(context.Background(), client.CreateContextRequest{Query: "q", MaxBudget: 1})

	result, err := c.StartInspection(context.Background(), dc.ID, nil)
	if err != nil {
		t.Fatalf("StartInspection: %v", err)
	}

	job, err := c.WaitForJob(context.Background(), result.JobID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForJob: %v", err)
	}
	if job.State != "done" {
		t.Errorf("unexpected state: %s", job.State)
	}
}

func TestSubscriptionAndInbox(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("test-jwt"))
	sub, err := c.CreateSubscription(context.Background(), client.CreateSubscriptionRequest{MinBudget: 1})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	inbox, err := c.GetInbox(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Errorf("expected 1 inbox context, got %d", len(inbox))
	}
}

func TestProfileOnboarding(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("test-jwt"))

	buyer, err := c.CreateBuyerProfile(context.Background(), client.CreateBuyerProfileRequest{DefaultMaxBudget: 25})
	if err != nil {
		t.Fatalf("CreateBuyerProfile: %v", err)
	}
	if buyer.DefaultMaxBudget != 25 {
		t.Errorf("expected default_max_budget 25, got %v", buyer.DefaultMaxBudget)
	}

	seller, err := c.CreateHumanSellerProfile(context.Background(), client.CreateHumanSellerProfileRequest{DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("CreateHumanSellerProfile: %v", err)
	}
	if seller.DisplayName != "Ada" {
		t.Errorf("expected display_name Ada, got %q", seller.DisplayName)
	}

	price := 1.0
	bot, err := c.CreateBotSellerProfile(context.Background(), client.CreateBotSellerProfileRequest{
		Name: "summarizer", Info: "short summaries", Price: &price,
	})
	if err != nil {
		t.Fatalf("CreateBotSellerProfile: %v", err)
	}
	if bot.Name != "summarizer" {
		t.Errorf("expected name summarizer, got %q", bot.Name)
	}

	bots, err := c.ListBotSellerProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListBotSellerProfiles: %v", err)
	}
	if len(bots) != 1 {
		t.Errorf("expected 1 bot seller, got %d", len(bots))
	}
}

func TestFileAbuseReport_unauthorized(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL) // no bearer token
	_, err := c.FileAbuseReport(context.Background(), client.CreateAbuseReportRequest{
		TargetKind: "offer", TargetID: uuid.New(), Reason: "scam",
	})
	if err == nil {
		t.Error("expected error for unauthorized report")
	}
}

func TestListAbuseQueue_success(t *testing.T) {
	srv := stubMarketServer(t)
	defer srv.Close()

	c, _ := client.New(srv.URL, client.WithBearerToken("admin-jwt"))
	reports, err := c.ListAbuseQueue(context.Background(), 25)
	if err != nil {
		t.Fatalf("ListAbuseQueue: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(reports))
	}
}
