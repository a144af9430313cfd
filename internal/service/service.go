// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is the interface that all services must implement
type Service interface {
	// Name returns the name of the service
	Name() string
}

// Initializer is the interface implemented by services that need one-time
// setup before the run group starts
type Initializer interface {
	Service
	Init() error
}

// Runner is the interface implemented by services that run in the background
type Runner interface {
	Service
	// Run runs the service and is expected to block until ctx is done
	Run(ctx context.Context) error
}

// Shutdowner is the interface implemented by services that need cleanup
type Shutdowner interface {
	Service
	// Shutdown shuts down the service
	Shutdown() error
}
