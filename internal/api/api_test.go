package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/propvest/internal/advisor"
	"github.com/opensource-finance/propvest/internal/bus"
	"github.com/opensource-finance/propvest/internal/cache"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/observability"
	"github.com/opensource-finance/propvest/internal/repository"
	"github.com/opensource-finance/propvest/internal/scoring"
	"github.com/opensource-finance/propvest/internal/screening"
)

// createTestServer wires a server over a seeded SQLite catalog.
func createTestServer(t *testing.T, cfg domain.ServerConfig) *Server {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:      "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "api.db"),
		SeedSamples: true,
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	screener, err := screening.NewEngine()
	if err != nil {
		t.Fatalf("screening: %v", err)
	}

	svc := advisor.New(repo, cache.NewLRUCache(100), eventBus,
		scoring.NewScorer(scoring.DefaultTuning()), screener, advisor.Config{})
	return NewServer(cfg, svc, observability.InitRegistry(), "test-v1")
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v: %s", err, rr.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	t.Run("Health", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/health", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp map[string]string
		decodeBody(t, rr, &resp)
		if resp["status"] != "healthy" || resp["version"] != "test-v1" {
			t.Errorf("unexpected health: %v", resp)
		}
		if rr.Header().Get(TraceIDHeader) == "" {
			t.Error("expected trace id header")
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/ready", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("RequestIDEcho", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Header().Get(RequestIDHeader) != "req-123" {
			t.Errorf("expected request id echo, got %q", rr.Header().Get(RequestIDHeader))
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		do(t, server, http.MethodGet, "/health", nil)
		rr := do(t, server, http.MethodGet, "/metrics", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "propvest_http_requests_total") {
			t.Error("expected http request counter in metrics output")
		}
	})
}

func TestPropertyEndpoints(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	t.Run("List", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/properties", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp struct {
			Properties []domain.Listing `json:"properties"`
			Count      int              `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 10 || resp.Properties[0].Name != "Budget Apartment" {
			t.Fatalf("unexpected catalog: count=%d", resp.Count)
		}
		if resp.Properties[0].Metrics.NetROI < 6.99 || resp.Properties[0].Metrics.NetROI > 7.01 {
			t.Errorf("expected net ROI 7 on cheapest listing, got %v", resp.Properties[0].Metrics.NetROI)
		}
		if resp.Properties[9].Name != "Luxury Villa" {
			t.Errorf("expected most expensive listing last, got %q", resp.Properties[9].Name)
		}
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/properties", domain.Property{
			Name: "Canal Loft", Location: "Metro Center", Price: 410000, Size: 1000,
			AnnualRentalIncome: 33000, MaintenanceCost: 4000, RiskLevel: domain.RiskMedium,
			PropertyType: "Loft",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		var created domain.Property
		decodeBody(t, rr, &created)
		if created.ID == "" {
			t.Fatal("expected generated id")
		}

		rr = do(t, server, http.MethodGet, "/properties/"+created.ID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var got domain.Property
		decodeBody(t, rr, &got)
		if got.Name != "Canal Loft" {
			t.Errorf("unexpected property %q", got.Name)
		}
	})

	t.Run("CreateInvalid", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/properties", domain.Property{
			Name: "Bad", Location: "Nowhere", Price: -5, Size: 10,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
		var resp errorBody
		decodeBody(t, rr, &resp)
		if !strings.Contains(resp.Error, "price") {
			t.Errorf("expected price in error, got %q", resp.Error)
		}
	})

	t.Run("CreateOverflowingMetrics", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/properties", domain.Property{
			Name: "Overflow Tower", Location: "Metro Center", Price: 1e308, Size: 0.5,
			AnnualRentalIncome: 1000, RiskLevel: domain.RiskLow, PropertyType: "Tower",
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodPost, "/recommendations", map[string]any{
			"profileKey": "balanced-rental-investor", "topN": 50,
		})
		if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
			t.Fatalf("expected 200 with body, got %d: %q", rr.Code, rr.Body.String())
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/properties", "{not json")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/properties/does-not-exist", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestProfileEndpoints(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	t.Run("ListIncludesPresets", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/profiles", nil)
		var resp struct {
			Profiles []domain.InvestorProfile `json:"profiles"`
		}
		decodeBody(t, rr, &resp)
		if len(resp.Profiles) != 5 {
			t.Errorf("expected 5 presets, got %d", len(resp.Profiles))
		}
	})

	t.Run("GetPreset", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/profiles/premium-long-term-holder", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var p domain.InvestorProfile
		decodeBody(t, rr, &p)
		if p.BudgetMax != 1500000 {
			t.Errorf("unexpected preset budget %v", p.BudgetMax)
		}
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/profiles", domain.InvestorProfile{
			Name: "Student Lets", BudgetMin: 100000, BudgetMax: 250000,
			RiskTolerance: domain.RiskMedium, MinRentalYield: 9, MinROI: 6,
			PreferredLocations: []string{"University District"},
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		var created domain.InvestorProfile
		decodeBody(t, rr, &created)

		rr = do(t, server, http.MethodGet, "/profiles/"+created.ID, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("CreateInvalid", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/profiles", domain.InvestorProfile{
			Name: "Backwards", BudgetMin: 500, BudgetMax: 100, RiskTolerance: domain.RiskLow,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/profiles/nobody", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestRecommendationEndpoints(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	t.Run("Preset", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommendations", map[string]any{
			"profileKey": "balanced-rental-investor",
			"topN":       3,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp advisor.RecommendResponse
		decodeBody(t, rr, &resp)
		if len(resp.Recommendations) != 3 || resp.TotalAnalyzed != 10 {
			t.Errorf("unexpected response: %d recs of %d", len(resp.Recommendations), resp.TotalAnalyzed)
		}
		for _, rec := range resp.Recommendations {
			if rec.Score < 0 || rec.Score > 100 || len(rec.Reasoning) == 0 {
				t.Errorf("unexpected recommendation %+v", rec)
			}
		}
	})

	t.Run("CustomProfile", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommendations", map[string]any{
			"customProfile": map[string]any{
				"budgetMin": 100000, "budgetMax": 300000, "riskTolerance": "High",
				"minRentalYield": 10, "minRoi": 7, "preferredLocations": []string{"Industrial Zone"},
			},
			"filter": `risk_level == "High"`,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp advisor.RecommendResponse
		decodeBody(t, rr, &resp)
		if len(resp.Recommendations) != 2 || resp.ScreenedOut != 8 {
			t.Errorf("expected 2 kept and 8 screened, got %d and %d", len(resp.Recommendations), resp.ScreenedOut)
		}
	})

	t.Run("BothSelectors", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommendations", map[string]any{
			"profileKey":    "balanced-rental-investor",
			"customProfile": map[string]any{"budgetMax": 1, "riskTolerance": "Low"},
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownRiskTolerance", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommendations", map[string]any{
			"customProfile": map[string]any{"budgetMax": 100, "riskTolerance": "Extreme"},
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("HistoryLimit", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/recommendations/history?limit=abc", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}

		rr = do(t, server, http.MethodGet, "/recommendations/history", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})
}

func TestCompareEndpoint(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})
	ids := make([]string, 0, 3)
	for _, p := range repository.SampleProperties()[:3] {
		ids = append(ids, p.ID)
	}

	t.Run("WithProfile", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/compare", map[string]any{
			"propertyIds": ids,
			"profileKey":  "premium-long-term-holder",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var cmp domain.Comparison
		decodeBody(t, rr, &cmp)
		if len(cmp.Rows) != 3 || cmp.Rows[0].Score == nil {
			t.Errorf("unexpected comparison: %+v", cmp)
		}
	})

	t.Run("TooFew", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/compare", map[string]any{"propertyIds": ids[:1]})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownProperty", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/compare", map[string]any{"propertyIds": []string{ids[0], "missing"}})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestAnalyticsEndpoint(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	rr := do(t, server, http.MethodGet, "/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var summary domain.AnalyticsSummary
	decodeBody(t, rr, &summary)
	if summary.Overall.TotalProperties != 10 || len(summary.ByType) == 0 {
		t.Errorf("unexpected summary: %+v", summary.Overall)
	}
}

func TestRateLimit(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{RateLimit: 1, RateBurst: 1})

	first := do(t, server, http.MethodGet, "/health", nil)
	second := do(t, server, http.MethodGet, "/health", nil)

	if first.Code != http.StatusOK {
		t.Errorf("expected first request to pass, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", second.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(t, domain.ServerConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/recommendations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]float64{"score": math.Inf(1)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp errorBody
	decodeBody(t, rr, &resp)
	if resp.Error != "internal server error" {
		t.Errorf("unexpected error body %q", resp.Error)
	}
}
