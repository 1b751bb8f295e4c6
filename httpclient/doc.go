/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides the HTTP transport used by restclient.
//
// HTTPTransport executes a single request over net/http and reports its outcome
// as raw body bytes or one of the typed errors: RemoteStatusError for non-2xx responses
// and TransportError when the remote server couldn't be reached.
//
// The underlying http.Client is assembled from a chain of round trippers
// (logging, metrics, client-side rate limiting, user agent and request id)
// configured through Config.
package httpclient
