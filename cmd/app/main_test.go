package main

import (
	"net/http"
	"testing"
)

func TestRateLimiter(t *testing.T) {
	// Create a new rate limiter
	limiter := newRateLimiter()

	// Mock request with X-Forwarded-For
	req1, _ := http.NewRequest("GET", "/test", nil)
	req1.Header.Set("X-Forwarded-For", "192.168.1.1")

	// Test basic allowance - should allow up to burst capacity (10)
	for i := 0; i < 10; i++ {
		ip := getClientIP(req1)
		rLimiter := limiter.getLimiter(ip)
		if !rLimiter.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// This should be blocked (11th request exceeds burst capacity)
	ip := getClientIP(req1)
	rLimiter := limiter.getLimiter(ip)
	if rLimiter.Allow() {
		t.Errorf("Request should be blocked after burst capacity exceeded")
	}

	// Different IP should be allowed
	req2, _ := http.NewRequest("GET", "/test", nil)
	req2.Header.Set("X-Forwarded-For", "192.168.1.2")
	ip2 := getClientIP(req2)
	rLimiter2 := limiter.getLimiter(ip2)
	if !rLimiter2.Allow() {
		t.Errorf("Request from different IP should be allowed")
	}
}

func TestGetClientIP(t *testing.T) {
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:54321"

	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("expected RemoteAddr host, got %v", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("expected first forwarded IP, got %v", ip)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("FORAGER_TEST_INT", "15")
	if got := getEnvInt("FORAGER_TEST_INT", 3); got != 15 {
		t.Errorf("expected 15, got %v", got)
	}

	t.Setenv("FORAGER_TEST_INT", "not-a-number")
	if got := getEnvInt("FORAGER_TEST_INT", 3); got != 3 {
		t.Errorf("expected default 3, got %v", got)
	}

	if got := getEnvInt("FORAGER_TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("expected default 7, got %v", got)
	}
}
