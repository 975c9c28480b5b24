package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/boatclosers/internal/metrics"
)

func ok(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

func signed(t *testing.T, secret, issuer string, expires time.Time) string {
	t.Helper()
	s, err := IssueAccessToken(secret, issuer, time.Hour, expires.Add(-time.Hour))
	require.NoError(t, err)
	return s
}

func serve(h fasthttp.RequestHandler, authorization string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	if authorization != "" {
		ctx.Request.Header.Set("Authorization", authorization)
	}
	h(ctx)
	return ctx
}

func TestAccessGate_DisabledWithoutSecret(t *testing.T) {
	h := AccessGate("", "boatclosers", nil)(ok)
	assert.Equal(t, fasthttp.StatusOK, serve(h, "").Response.StatusCode())
}

func TestAccessGate(t *testing.T) {
	h := AccessGate("s3cret", "boatclosers", nil)(ok)
	future := time.Now().Add(time.Hour)

	ctx := serve(h, "")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "UNAUTHORIZED")

	assert.Equal(t, fasthttp.StatusOK, serve(h, "Bearer "+signed(t, "s3cret", "boatclosers", future)).Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, serve(h, "Bearer "+signed(t, "other", "boatclosers", future)).Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, serve(h, "Bearer "+signed(t, "s3cret", "someone-else", future)).Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, serve(h, "Bearer "+signed(t, "s3cret", "boatclosers", time.Now().Add(-time.Hour))).Response.StatusCode())
}

func TestAccessGate_RejectsUnsignedTokens(t *testing.T) {
	h := AccessGate("s3cret", "", nil)(ok)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: "boatclosers"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusUnauthorized, serve(h, "Bearer "+s).Response.StatusCode())
}

func TestIssueAccessToken_RequiresSecret(t *testing.T) {
	_, err := IssueAccessToken("", "boatclosers", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	h := Instrument(m, "transaction")(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	h(ctx)

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInstrument_NilMetrics(t *testing.T) {
	h := Instrument(nil, "health")(ok)
	assert.Equal(t, fasthttp.StatusOK, serve(h, "").Response.StatusCode())
}
