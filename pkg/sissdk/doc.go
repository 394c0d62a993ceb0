/*
Package sissdk provides a client SDK for the multi-tenant School SIS REST API.

# Overview

A Client owns one session (access token, refresh token, tenant slug) and
issues JSON requests with bearer authentication. Token expiry is recovered
transparently: a 401 triggers one refresh attempt, a rejected refresh falls
back to one re-login with the stored credentials, and the original request
is replayed exactly once with the new token. If both recovery paths fail,
the original 401 surfaces as a typed error. Recovery is bounded by an
explicit counter, never recursion.

	client, err := sissdk.New(sissdk.Config{
		BaseURL:    "https://sis.example.com/api",
		TenantSlug: "springfield",
		Email:      "admin@springfield.edu",
		Password:   "secure-password",
	})
	if err != nil { ... }

	if _, err := client.Login(ctx, "", "", ""); err != nil { ... }

	students, page, err := client.Students().List(ctx, sissdk.ListOptions{
		GradeLevel: "10",
		Limit:      20,
	})

# Services

Each API resource has a service bound to the client: Students, Teachers,
Classes, Grades, Attendance. Services decode the `{success, data, message,
pagination}` envelope into typed models. Raw access is available through
Client.Do for endpoints the services don't wrap.

# Errors

Every failure is a *Error carrying a Kind from a closed set: authentication,
refresh, not_found, validation, conflict, rate_limit, server, network,
request. Branch with the predicate helpers (IsNotFound, IsValidation, ...)
or errors.As; message text is for humans only.

# Concurrency

Requests may be issued concurrently from multiple goroutines. Token
mutation is serialized internally and concurrent 401s collapse into a
single refresh via a single-flight guard; the token pair is always updated
atomically. One Client means one session; create separate clients for
separate principals.

# Retries

Transport failures (timeouts, refused connections) are retried per the
RetryPolicy for idempotent methods only; POST/PUT/DELETE opt in per request
via Options.AllowRetry. HTTP error statuses other than the recovered 401
are never retried.
*/
package sissdk
