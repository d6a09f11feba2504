/*
Package mrsdk provides a client SDK for the ma-residence residents API.

# Overview

The mrsdk package implements an OAuth2 password-grant client for the
ma-residence API. A Client exchanges its credentials for a bearer token,
keeps that token in a TokenStore, and attaches it as the access_token query
parameter to every resource call. GET responses can be served from a
response cache.

# Configuration

A Config carries the credentials and the provider URLs. Two presets fill in
the URLs and the token store key of the hosted environments:

	cfg := mrsdk.Production(clientID, clientSecret, username, password)
	cfg := mrsdk.Sandbox(clientID, clientSecret, username, password)

Any other provider is configured by filling Config directly. New validates
the configuration and returns a *ConfigError naming the first missing
mandatory option.

	client, err := mrsdk.New(cfg,
		mrsdk.WithTokenStore(store),
		mrsdk.WithResponseCache(cache),
		mrsdk.WithLogger(logger),
	)

# Authentication

Resource calls authenticate lazily. EnsureAuthenticated returns the current
access token, performing a single token exchange when the stored token is
missing or expired. Concurrent callers share that exchange.

	// Force a token exchange up front
	err := client.Authenticate(ctx)

	// Query parameters for a hand-built request
	query, err := client.AuthQuery(ctx)

A token is expired once now reaches its creation time plus expires_in.
Config.ExpiryMargin moves that point earlier.

WithoutAutoAuthenticate turns lazy authentication off. Calls made without a
valid token then fail with ErrNoToken.

# Resources

Every resource has typed accessors:

	news, err := client.GetNews(ctx, mrsdk.Options{"page": 2}.WithVersion(1), false)
	advert, err := client.GetAdvertByID(ctx, "42", nil, false)
	user, err := client.PostUser(ctx, mrsdk.Object{"email": "a@example.org"}, 1)

The "version" option becomes an Accept header of the form
application/ma-residence.v<version>. Every other option is sent as a query
parameter. Fetch and Create reach endpoints that have no accessor.

# Caching

WithResponseCache enables caching of successful GET responses for
Config.CacheTTL. Keys are scoped to the client id and ignore the access
token, so a cached response survives a token rotation. Passing
forceRevalidate to a read bypasses the cached copy and stores the fresh
response. The token endpoint is never cached.

The store/redis and store/sqlite packages provide persistent token stores
and response caches.

# Error Handling

A failed token exchange returns one of:

  - *InvalidClientError: the client credentials were rejected
  - *UnauthorizedClientError: the client may not use the password grant
  - *BadRequestError: any other rejection

All three match ErrAuthentication with errors.Is. Resource calls return
*APIRequestError for an unexpected status, *InvalidResponseError for a body
that is not a JSON object and *UnexpectedResponseShapeError when a created
entity lacks its envelope or required keys.

	_, err := client.GetNews(ctx, nil, false)
	var apiErr *mrsdk.APIRequestError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		// ...
	}

URLs in errors and logs never carry the access token, the client secret or
the password.
*/
package mrsdk
