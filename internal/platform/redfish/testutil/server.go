// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides a mock Redfish BMC backed by httptest for
// exercising the redfish handler without real hardware.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// ServerConfig holds configuration for the mock BMC
type ServerConfig struct {
	Username   string
	Password   string
	PowerWatts float64

	// EnableAuth makes session creation validate the credentials
	EnableAuth bool

	// UnmeteredChassis adds a second chassis without power metering
	UnmeteredChassis bool

	// NoPowerMetering strips power metering from every chassis
	NoPowerMetering bool
}

// Server is a mock Redfish BMC
type Server struct {
	server *httptest.Server
	config ServerConfig

	mutex    sync.RWMutex
	sessions map[string]bool
}

// NewServer starts a mock BMC serving the given configuration
func NewServer(config ServerConfig) *Server {
	if config.Username == "" {
		config.Username = "admin"
	}
	if config.Password == "" {
		config.Password = "password"
	}

	s := &Server{
		config:   config,
		sessions: make(map[string]bool),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the BMC endpoint URL
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts down the mock BMC
func (s *Server) Close() {
	s.server.Close()
}

// SetPowerWatts changes the chassis power reading
func (s *Server) SetPowerWatts(watts float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config.PowerWatts = watts
}

// ActiveSessions returns the number of sessions not yet logged out
func (s *Server) ActiveSessions() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("OData-Version", "4.0")

	switch r.URL.Path {
	case "/redfish/v1/", "/redfish/v1":
		s.handleServiceRoot(w, r)
	case "/redfish/v1/SessionService/Sessions":
		s.handleCreateSession(w, r)
	case "/redfish/v1/Chassis":
		s.handleChassisCollection(w, r)
	case "/redfish/v1/Chassis/1":
		s.handleChassis(w, r, "1", !s.config.NoPowerMetering)
	case "/redfish/v1/Chassis/1/Power":
		s.handlePower(w, r)
	case "/redfish/v1/Chassis/2":
		s.handleChassis(w, r, "2", false)
	default:
		if strings.HasPrefix(r.URL.Path, "/redfish/v1/SessionService/Sessions/") {
			s.handleSession(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

func (s *Server) handleServiceRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"@odata.type":    "#ServiceRoot.v1_5_0.ServiceRoot",
		"@odata.id":      "/redfish/v1/",
		"Id":             "RootService",
		"Name":           "Root Service",
		"RedfishVersion": "1.6.1",
		"Chassis": map[string]any{
			"@odata.id": "/redfish/v1/Chassis",
		},
		"SessionService": map[string]any{
			"@odata.id": "/redfish/v1/SessionService",
		},
		"Links": map[string]any{
			"Sessions": map[string]any{
				"@odata.id": "/redfish/v1/SessionService/Sessions",
			},
		},
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds struct {
		UserName string `json:"UserName"`
		Password string `json:"Password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if s.config.EnableAuth &&
		(creds.UserName != s.config.Username || creds.Password != s.config.Password) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := fmt.Sprintf("session-%d", time.Now().UnixNano())
	s.mutex.Lock()
	s.sessions[sessionID] = true
	s.mutex.Unlock()

	response := map[string]any{
		"@odata.type": "#Session.v1_1_0.Session",
		"@odata.id":   "/redfish/v1/SessionService/Sessions/" + sessionID,
		"Id":          sessionID,
		"Name":        "Session",
		"UserName":    creds.UserName,
	}
	w.Header().Set("X-Auth-Token", sessionID)
	w.Header().Set("Location", "/redfish/v1/SessionService/Sessions/"+sessionID)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/redfish/v1/SessionService/Sessions/")

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.sessions[sessionID] {
		http.NotFound(w, r)
		return
	}
	delete(s.sessions, sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChassisCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	members := []map[string]any{
		{"@odata.id": "/redfish/v1/Chassis/1"},
	}
	if s.config.UnmeteredChassis {
		members = append(members, map[string]any{"@odata.id": "/redfish/v1/Chassis/2"})
	}

	response := map[string]any{
		"@odata.type":         "#ChassisCollection.ChassisCollection",
		"@odata.id":           "/redfish/v1/Chassis",
		"Name":                "Chassis Collection",
		"Members@odata.count": len(members),
		"Members":             members,
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleChassis(w http.ResponseWriter, r *http.Request, id string, metered bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"@odata.type": "#Chassis.v1_10_0.Chassis",
		"@odata.id":   "/redfish/v1/Chassis/" + id,
		"Id":          id,
		"Name":        "Computer System Chassis",
		"ChassisType": "RackMount",
		"PowerState":  "On",
		"Status": map[string]any{
			"State":  "Enabled",
			"Health": "OK",
		},
	}
	if metered {
		response["Power"] = map[string]any{
			"@odata.id": "/redfish/v1/Chassis/" + id + "/Power",
		}
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mutex.RLock()
	powerWatts := s.config.PowerWatts
	s.mutex.RUnlock()

	response := map[string]any{
		"@odata.type": "#Power.v1_5_0.Power",
		"@odata.id":   "/redfish/v1/Chassis/1/Power",
		"Id":          "Power",
		"Name":        "Power",
		"PowerControl": []map[string]any{
			{
				"@odata.id":          "/redfish/v1/Chassis/1/Power#/PowerControl/0",
				"MemberId":           "0",
				"Name":               "System Power Control",
				"PowerConsumedWatts": powerWatts,
			},
		},
	}
	_ = json.NewEncoder(w).Encode(response)
}
