/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// ConcurrencyServer is an httptest.Server that counts served requests
// and remembers the peak number of requests handled at the same time.
type ConcurrencyServer struct {
	*httptest.Server

	mu      sync.Mutex
	current int
	peak    int
	total   int
}

// NewConcurrencyServer starts a new ConcurrencyServer that delegates to handler.
func NewConcurrencyServer(handler http.Handler) *ConcurrencyServer {
	s := &ConcurrencyServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		s.enter()
		defer s.leave()
		handler.ServeHTTP(rw, r)
	}))
	return s
}

func (s *ConcurrencyServer) enter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	s.total++
	if s.current > s.peak {
		s.peak = s.current
	}
}

func (s *ConcurrencyServer) leave() {
	s.mu.Lock()
	s.current--
	s.mu.Unlock()
}

// Peak returns the maximum number of requests that were handled concurrently.
func (s *ConcurrencyServer) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Total returns the number of requests served so far.
func (s *ConcurrencyServer) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
