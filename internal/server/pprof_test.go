// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAPIService is an implementation of the APIService interface for testing.
type MockAPIService struct {
	mock.Mock
}

func (m *MockAPIService) Register(path, name, description string, handler http.Handler) error {
	args := m.Called(path, name, description, handler)
	return args.Error(0)
}

func (m *MockAPIService) Name() string {
	return "mockApiService"
}

func TestNewPprof(t *testing.T) {
	api := &MockAPIService{}
	p := NewPprof(api)

	assert.NotNil(t, p)
	assert.Equal(t, api, p.api)
	assert.Equal(t, "pprof", p.Name())
}

func TestPprofInit_Success(t *testing.T) {
	api := &MockAPIService{}
	p := NewPprof(api)

	api.On("Register", "/debug/pprof/", "pprof", "Profiling Data", mock.AnythingOfType("*http.ServeMux")).Return(nil)

	err := p.Init()
	assert.NoError(t, err)
	api.AssertExpectations(t)
}

func TestPprofInit_Failure(t *testing.T) {
	api := &MockAPIService{}
	p := NewPprof(api)

	expectedErr := assert.AnError
	api.On("Register", "/debug/pprof/", "pprof", "Profiling Data", mock.AnythingOfType("*http.ServeMux")).Return(expectedErr)

	err := p.Init()
	assert.Error(t, err)
	assert.Equal(t, expectedErr, err)
	api.AssertExpectations(t)
}

func TestPprofHandlers(t *testing.T) {
	handler := pprofHandlers()
	mux, ok := handler.(*http.ServeMux)
	assert.True(t, ok, "pprofHandlers should return an http.ServeMux")

	tests := []struct {
		path string
	}{
		{"/debug/pprof/"},
		{"/debug/pprof/cmdline"},
		{"/debug/pprof/symbol"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			assert.NotEqual(t, http.StatusNotFound, rr.Code, "Handler for %s should be registered", tt.path)
		})
	}
}
