package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"velvet/internal/catalog"
	claimhandler "velvet/internal/claims/handler"
	"velvet/internal/claims/models"
	claimservice "velvet/internal/claims/service"
	claimstore "velvet/internal/claims/store"
	"velvet/internal/evidence"
	evidencehandler "velvet/internal/evidence/handler"
	paymenthandler "velvet/internal/payments/handler"
	paymentservice "velvet/internal/payments/service"
	paymentstore "velvet/internal/payments/store"
	"velvet/internal/tokens"
	httptransport "velvet/internal/transport/http"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/middleware/auth"
)

const adminToken = "ops-secret"

// tokenAdapter bridges the JWT service onto the auth middleware port.
type tokenAdapter struct {
	jwt *tokens.JWTService
}

func (a *tokenAdapter) ValidateToken(tokenString string) (*auth.TokenClaims, error) {
	claims, err := a.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.TokenClaims{ActorID: claims.ActorID, Role: claims.Role}, nil
}

type recordedSMS struct {
	phone string
	code  string
}

type smsCapture struct {
	mu   sync.Mutex
	sent []recordedSMS
}

func (c *smsCapture) Send(_ context.Context, phone, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, recordedSMS{phone: phone, code: code})
	return nil
}

func (c *smsCapture) last() recordedSMS {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return recordedSMS{}
	}
	return c.sent[len(c.sent)-1]
}

type RouterSuite struct {
	suite.Suite

	server   *httptest.Server
	jwt      *tokens.JWTService
	catalog  *catalog.MemoryCatalog
	evidence *evidence.MemoryStore
	sms      *smsCapture
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.jwt = tokens.NewJWTService("router-test-key", "velvet", "velvet-api")
	s.catalog = catalog.NewMemoryCatalog()
	s.evidence = evidence.NewMemoryStore()
	s.sms = &smsCapture{}

	claims := claimservice.New(claimstore.NewInMemory(), s.catalog, s.evidence,
		claimservice.WithLogger(logger),
	)
	payments := paymentservice.New(paymentstore.NewInMemory(), s.catalog,
		paymentservice.WithLogger(logger),
	)
	phone := evidence.NewPhoneService(evidence.NewMemoryCodeStore(), s.evidence, s.sms,
		evidence.WithPhoneLogger(logger),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Claims:     claimhandler.New(claims, logger),
		Payments:   paymenthandler.New(payments, logger),
		Evidence:   evidencehandler.New(phone, logger),
		Validator:  &tokenAdapter{jwt: s.jwt},
		Logger:     logger,
		AdminToken: adminToken,
		Health: map[string]func(context.Context) error{
			"store": func(context.Context) error { return nil },
		},
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) token(actorID id.ActorID, role id.Role) string {
	tok, err := s.jwt.GenerateAccessToken(uuid.UUID(actorID), role.String(), time.Minute)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *RouterSuite) seedVenue() id.ResourceID {
	resourceID := id.NewResourceID()
	s.catalog.AddResource(&models.Resource{
		ID:   resourceID,
		Kind: models.ResourceKindEstablishment,
	})
	return resourceID
}

func (s *RouterSuite) TestHealthzIsPublic() {
	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
}

func (s *RouterSuite) TestMetricsRequiresAdminToken() {
	resp, _ := s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/metrics", nil)
	s.Require().NoError(err)
	req.Header.Set("X-Admin-Token", adminToken)
	authed, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer authed.Body.Close()
	s.Equal(http.StatusOK, authed.StatusCode)
}

func (s *RouterSuite) TestUnauthenticatedRequestIsRejected() {
	resp, body := s.do(http.MethodPost, "/claims", "", map[string]any{})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])
}

func (s *RouterSuite) TestExpiredTokenIsRejected() {
	claimant := id.NewActorID()
	tok, err := s.jwt.GenerateAccessToken(uuid.UUID(claimant), "user", -time.Minute)
	s.Require().NoError(err)

	resp, _ := s.do(http.MethodGet, "/claims?state=pending", tok, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestOwnershipClaimLifecycle() {
	resourceID := s.seedVenue()
	claimant := id.NewActorID()
	moderator := id.NewActorID()
	s.evidence.Put("selfie-1", models.EvidenceKindSelfie)
	s.evidence.Put("doc-1", models.EvidenceKindDocument)

	resp, body := s.do(http.MethodPost, "/claims", s.token(claimant, id.RoleUser), map[string]any{
		"resource_id": resourceID.String(),
		"claim_type":  "establishment_ownership",
		"statement":   "I run this venue",
		"evidence": map[string]any{
			"selfie_ref":   "selfie-1",
			"document_ref": "doc-1",
		},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("pending", body["state"])
	claimID := body["id"].(string)

	resp, body = s.do(http.MethodGet, "/claims?state=pending", s.token(moderator, id.RoleModerator), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body = s.do(http.MethodPost, fmt.Sprintf("/claims/%s/decision", claimID),
		s.token(moderator, id.RoleModerator), map[string]any{"action": "approve"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("approved", body["state"])

	resource, err := s.catalog.Resource(context.Background(), resourceID)
	s.Require().NoError(err)
	s.Require().NotNil(resource.Controller)
	s.Equal(claimant, *resource.Controller)

	resp, body = s.do(http.MethodGet, "/claims/"+claimID, s.token(claimant, id.RoleUser), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("approved", body["state"])
}

func (s *RouterSuite) TestRejectionRequiresReason() {
	resourceID := s.seedVenue()
	claimant := id.NewActorID()
	s.evidence.Put("selfie-1", models.EvidenceKindSelfie)
	s.evidence.Put("doc-1", models.EvidenceKindDocument)

	resp, body := s.do(http.MethodPost, "/claims", s.token(claimant, id.RoleUser), map[string]any{
		"resource_id": resourceID.String(),
		"claim_type":  "establishment_ownership",
		"evidence": map[string]any{
			"selfie_ref":   "selfie-1",
			"document_ref": "doc-1",
		},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	claimID := body["id"].(string)

	resp, body = s.do(http.MethodPost, fmt.Sprintf("/claims/%s/decision", claimID),
		s.token(id.NewActorID(), id.RoleModerator), map[string]any{"action": "reject"})
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("reason_required", body["error"])
}

func (s *RouterSuite) TestPhoneEvidenceFlow() {
	claimant := id.NewActorID()
	tok := s.token(claimant, id.RoleUser)

	resp, body := s.do(http.MethodPost, "/evidence/phone/request", tok, map[string]any{
		"phone": "+34600111222",
	})
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)
	s.Equal("code_sent", body["status"])

	sms := s.sms.last()
	s.Require().NotEmpty(sms.code)

	resp, body = s.do(http.MethodPost, "/evidence/phone/confirm", tok, map[string]any{
		"phone": sms.phone,
		"code":  sms.code,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	ref := body["phone_token"].(string)
	s.NotEmpty(ref)

	kind, err := s.evidence.Kind(context.Background(), ref)
	s.Require().NoError(err)
	s.Equal(models.EvidenceKindPhoneToken, kind)
}

func (s *RouterSuite) TestCashPaymentFlow() {
	establishmentID := id.NewEstablishmentID()
	owner := id.NewActorID()
	admin := id.NewActorID()

	resp, body := s.do(http.MethodPost, "/payments", s.token(owner, id.RoleOwner), map[string]any{
		"establishment_id": establishmentID.String(),
		"amount_cents":     30000,
		"currency":         "eur",
		"tier":             "vip",
		"duration_days":    30,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("pending", body["state"])
	txID := body["id"].(string)

	// Owner cannot verify their own cash payment.
	resp, _ = s.do(http.MethodPost, fmt.Sprintf("/payments/%s/verify", txID),
		s.token(owner, id.RoleOwner), map[string]any{})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(http.MethodPost, fmt.Sprintf("/payments/%s/verify", txID),
		s.token(admin, id.RoleAdmin), map[string]any{"notes": "counted at the bar"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("verified", body["state"])

	expiry, err := s.catalog.VIPExpiry(context.Background(), establishmentID)
	s.Require().NoError(err)
	s.True(expiry.After(time.Now().AddDate(0, 0, 29)))
}
