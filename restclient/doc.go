/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package restclient provides an asynchronous REST client that bounds the number of in-flight requests.
//
// Every request is submitted through Submit (or one of the verb helpers: Get, Post, Put, Patch, Delete)
// and immediately returns a Handle. The request itself waits for a permit from the client's permit pool,
// goes through the httpclient.Transport, and its outcome is decoded into a Result.
// A Result is either a success carrying the decoded value or a failure carrying an ErrorKind,
// a message and, for non-2xx responses, the HTTP status code.
//
// When Config.PacingDelay is set, a request that finishes while more requests are waiting
// than Config.MaxConcurrentRequests allows holds its permit for the extra delay.
//
// Handles may be resolved one by one, in batches (ResolveAll, ResolveAllKeyed, ResolveAllEntries),
// or handed over to a KeyedHandler that resolves them in the background and feeds keyed results into a ResponseSink.
package restclient
