package mrsdk

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/maresidence/internal/mockapi"
	"github.com/aussiebroadwan/maresidence/pkg/respcache"
)

func TestFetch_QueryAndAcceptHeader(t *testing.T) {
	t.Parallel()

	client, rec := setupCapture(t, respondJSON(http.StatusOK, map[string]any{"news": []any{}}))
	ctx := t.Context()

	_, err := client.Fetch(ctx, "/api/news", Options{
		"page":         2,
		"tags":         []string{"a", "b"},
		"version":      3,
		"access_token": "caller-supplied",
	}, false)
	require.NoError(t, err)

	tok, err := client.TokenStore().Token(ctx)
	require.NoError(t, err)

	got := rec.last(t)
	require.Equal(t, http.MethodGet, got.Method)
	require.Equal(t, "/api/news", got.Path)
	require.Equal(t, "2", got.Query.Get("page"))
	require.Equal(t, []string{"a", "b"}, got.Query["tags"])
	require.Equal(t, []string{tok.AccessToken}, got.Query["access_token"], "authorizer token wins")
	require.False(t, got.Query.Has("version"), "version never becomes a query parameter")
	require.Equal(t, "application/ma-residence.v3", got.Header.Get("Accept"))
}

func TestFetch_NoVersionNoAccept(t *testing.T) {
	t.Parallel()

	client, rec := setupCapture(t, respondJSON(http.StatusOK, map[string]any{}))

	_, err := client.Fetch(t.Context(), "/api/shops", nil, false)
	require.NoError(t, err)
	require.Empty(t, rec.last(t).Header.Get("Accept"))
}

func TestFetch_VersionNormalisation(t *testing.T) {
	t.Parallel()

	valid := []struct {
		version any
		want    string
	}{
		{2, "application/ma-residence.v2"},
		{int64(3), "application/ma-residence.v3"},
		{4.0, "application/ma-residence.v4"},
		{"5", "application/ma-residence.v5"},
		{" 6 ", "application/ma-residence.v6"},
		{"2.0", "application/ma-residence.v2"},
	}
	for _, tt := range valid {
		client, rec := setupCapture(t, respondJSON(http.StatusOK, map[string]any{}))

		_, err := client.Fetch(t.Context(), "/api/news", Options{OptionVersion: tt.version}, false)
		require.NoError(t, err, "version %#v", tt.version)
		require.Equal(t, tt.want, rec.last(t).Header.Get("Accept"), "version %#v", tt.version)
	}

	for _, version := range []any{2.7, "2.7", "v2", "", true} {
		client, rec := setupCapture(t, respondJSON(http.StatusOK, map[string]any{}))

		_, err := client.Fetch(t.Context(), "/api/news", Options{OptionVersion: version}, false)
		require.ErrorIs(t, err, ErrInvalidVersion, "version %#v", version)
		require.Zero(t, rec.count(), "no request is sent for version %#v", version)
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unexpected status", func(t *testing.T) {
		client, _, _ := setupMock(t)

		_, err := client.GetNewsByID(t.Context(), "missing", nil, false)

		var apiErr *APIRequestError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		require.Equal(t, http.MethodGet, apiErr.Method)
		require.Equal(t, "not_found", apiErr.Code)
		require.Contains(t, apiErr.URL, "access_token=REDACTED")
		require.NotEmpty(t, apiErr.Body)
	})

	t.Run("body is not an object", func(t *testing.T) {
		client, _ := setupCapture(t, respondRaw(http.StatusOK, `[1,2,3]`))

		_, err := client.Fetch(t.Context(), "/api/news", nil, false)
		var invalid *InvalidResponseError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("body is not json", func(t *testing.T) {
		client, _ := setupCapture(t, respondRaw(http.StatusOK, `<html>`))

		_, err := client.Fetch(t.Context(), "/api/news", nil, false)
		var invalid *InvalidResponseError
		require.ErrorAs(t, err, &invalid)
		require.Error(t, invalid.Unwrap())
	})
}

func TestFetchEnveloped(t *testing.T) {
	t.Parallel()

	t.Run("provider list shape", func(t *testing.T) {
		client, _, _ := setupMock(t)

		body, err := client.GetNewsEnveloped(t.Context(), Options{"page": 1}, false)
		require.NoError(t, err)
		require.Contains(t, body, "request")
		require.Len(t, body[ResourceNews], 2)
	})

	t.Run("missing request key", func(t *testing.T) {
		client, _ := setupCapture(t, respondJSON(http.StatusOK, map[string]any{"news": []any{}}))

		_, err := client.GetNewsEnveloped(t.Context(), nil, false)
		var shapeErr *UnexpectedResponseShapeError
		require.ErrorAs(t, err, &shapeErr)
		require.Equal(t, []string{"request"}, shapeErr.Missing)
	})

	t.Run("plain fetch is lenient", func(t *testing.T) {
		client, _ := setupCapture(t, respondJSON(http.StatusOK, map[string]any{"news": []any{}}))

		_, err := client.GetNews(t.Context(), nil, false)
		require.NoError(t, err)
	})
}

func TestResponseCache(t *testing.T) {
	t.Parallel()

	t.Run("repeated reads hit the cache", func(t *testing.T) {
		client, provider, _ := setupMock(t)
		ctx := t.Context()

		first, err := client.GetNews(ctx, nil, false)
		require.NoError(t, err)
		second, err := client.GetNews(ctx, nil, false)
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.EqualValues(t, 1, provider.ResourceCalls())
	})

	t.Run("revalidate bypasses and refreshes", func(t *testing.T) {
		client, provider, _ := setupMock(t)
		ctx := t.Context()

		_, err := client.GetNews(ctx, nil, false)
		require.NoError(t, err)
		_, err = provider.Seed("news", mockapi.Object{"title": "Nouvelle"})
		require.NoError(t, err)

		fresh, err := client.GetNews(ctx, nil, true)
		require.NoError(t, err)
		require.Len(t, fresh[ResourceNews], 3)
		require.EqualValues(t, 2, provider.ResourceCalls())

		cached, err := client.GetNews(ctx, nil, false)
		require.NoError(t, err)
		require.Len(t, cached[ResourceNews], 3, "revalidated copy replaced the cached one")
		require.EqualValues(t, 2, provider.ResourceCalls())
	})

	t.Run("version and query are part of the key", func(t *testing.T) {
		client, provider, _ := setupMock(t)
		ctx := t.Context()

		_, err := client.GetNews(ctx, Options{"page": 1}, false)
		require.NoError(t, err)
		_, err = client.GetNews(ctx, Options{"page": 2}, false)
		require.NoError(t, err)
		_, err = client.GetNews(ctx, Options{"page": 1}.WithVersion(2), false)
		require.NoError(t, err)

		require.EqualValues(t, 3, provider.ResourceCalls())
	})

	t.Run("token rotation keeps cached entries", func(t *testing.T) {
		client, provider, clock := setupMock(t)
		ctx := t.Context()

		_, err := client.GetNews(ctx, nil, false)
		require.NoError(t, err)

		clock.Advance(testTokenTTL)

		_, err = client.GetNews(ctx, nil, false)
		require.NoError(t, err)
		require.EqualValues(t, 2, provider.TokenCalls())
		require.EqualValues(t, 1, provider.ResourceCalls())
	})

	t.Run("disabled", func(t *testing.T) {
		client, provider, _ := setupMock(t, WithResponseCache(nil))
		ctx := t.Context()

		for range 3 {
			_, err := client.GetNews(ctx, nil, false)
			require.NoError(t, err)
		}
		require.EqualValues(t, 3, provider.ResourceCalls())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		client, provider, _ := setupMock(t)
		ctx := t.Context()

		for range 2 {
			_, err := client.GetUserByID(ctx, "nobody", nil, false)
			require.Error(t, err)
		}
		require.EqualValues(t, 2, provider.ResourceCalls())
	})
}

func TestCreate_RequestShape(t *testing.T) {
	t.Parallel()

	client, rec := setupCapture(t, respondJSON(http.StatusCreated, map[string]any{
		"advert": map[string]any{"id": 7, "self": "/api/adverts/7"},
	}))

	advert, err := client.PostAdvert(t.Context(), Object{"title": "Vélo"}, 2)
	require.NoError(t, err)
	require.EqualValues(t, 7, advert["id"])

	tok, err := client.TokenStore().Token(t.Context())
	require.NoError(t, err)

	got := rec.last(t)
	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/api/adverts", got.Path)
	require.Equal(t, tok.AccessToken, got.Query.Get("access_token"))
	require.Equal(t, "application/json", got.Header.Get("Content-Type"))
	require.Equal(t, "application/ma-residence.v2", got.Header.Get("Accept"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.Body, &body))
	require.Equal(t, map[string]any{"advert": map[string]any{"title": "Vélo"}}, body)
}

func TestPostUser_ConflictIsSoftSuccess(t *testing.T) {
	t.Parallel()

	client, _, _ := setupMock(t)
	ctx := t.Context()

	user := Object{"email": "nouveau@example.org", "firstname": "Lina"}

	created, err := client.PostUser(ctx, user, 1)
	require.NoError(t, err)
	require.NotEmpty(t, created["id"])
	require.NotEmpty(t, created["self"])

	existing, err := client.PostUser(ctx, user, 1)
	require.NoError(t, err)
	require.Equal(t, created["id"], existing["id"])
}

func TestCreate_ConflictIsAnErrorElsewhere(t *testing.T) {
	t.Parallel()

	client, _ := setupCapture(t, respondJSON(http.StatusConflict, map[string]any{
		"advert": map[string]any{"id": 1, "self": "/api/adverts/1"},
	}))

	_, err := client.PostAdvert(t.Context(), Object{"title": "x"}, 1)
	var apiErr *APIRequestError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestCreate_ShapeViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		respond func(http.ResponseWriter, *http.Request)
		missing []string
	}{
		{
			name:    "missing self",
			respond: respondJSON(http.StatusCreated, map[string]any{"user": map[string]any{"id": 1}}),
			missing: []string{"self"},
		},
		{
			name:    "missing envelope",
			respond: respondJSON(http.StatusCreated, map[string]any{"advert": map[string]any{"id": 1, "self": "x"}}),
		},
		{
			name:    "envelope is not an object",
			respond: respondJSON(http.StatusCreated, map[string]any{"user": "ok"}),
			missing: []string{"id", "self"},
		},
		{
			name:    "body is not an object",
			respond: respondRaw(http.StatusCreated, `["user"]`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, _ := setupCapture(t, tt.respond)

			_, err := client.PostUser(t.Context(), Object{"email": "a@example.org"}, 1)
			var shapeErr *UnexpectedResponseShapeError
			require.ErrorAs(t, err, &shapeErr)
			require.Equal(t, "user", shapeErr.Envelope)
			require.Equal(t, tt.missing, shapeErr.Missing)
		})
	}
}

func TestCreate_Rejected(t *testing.T) {
	t.Parallel()

	client, _ := setupCapture(t, respondJSON(http.StatusBadRequest, map[string]any{
		"error":             "invalid_request",
		"error_description": "email is required",
	}))

	_, err := client.PostRecommendation(t.Context(), Object{}, 1)
	var apiErr *APIRequestError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "email is required", apiErr.Description)
	require.Contains(t, apiErr.Error(), "invalid_request: email is required")
}

func TestPostAdvertShare(t *testing.T) {
	t.Parallel()

	client, _, _ := setupMock(t)
	ctx := t.Context()

	share, err := client.PostAdvertShare(ctx, "1", Object{"email": "voisin@example.org"}, 1)
	require.NoError(t, err)
	require.Equal(t, "voisin@example.org", share["email"])

	shares, err := client.GetAdvertShares(ctx, "1", nil, false)
	require.NoError(t, err)
	require.Len(t, shares[ResourceShares], 1)
}

func TestResponseCache_ScopedToCredentials(t *testing.T) {
	t.Parallel()

	var resourceCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(mockapi.TokenPath, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(http.StatusOK, map[string]any{
			"access_token": "tok-" + r.URL.Query().Get("username"),
			"expires_in":   3600,
			"token_type":   "bearer",
		})(w, r)
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		resourceCalls.Add(1)
		respondJSON(http.StatusOK, map[string]any{"seen_token": r.URL.Query().Get("access_token")})(w, r)
	})
	ts := newHTTPTestServer(t, mux)

	shared := respcache.NewMemoryStore()
	clock := newFakeClock()

	fetchAs := func(username string) any {
		cfg := testConfig(ts.URL)
		cfg.Username = username
		client := newTestClient(t, cfg, clock, WithResponseCache(shared))

		body, err := client.Fetch(t.Context(), "/api/users/me", nil, false)
		require.NoError(t, err)
		return body["seen_token"]
	}

	require.Equal(t, "tok-alice", fetchAs("alice"))
	require.Equal(t, "tok-bob", fetchAs("bob"), "bob never sees alice's cached response")
	require.Equal(t, "tok-alice", fetchAs("alice"))
	require.EqualValues(t, 2, resourceCalls.Load(), "alice's second read is a cache hit")
}
