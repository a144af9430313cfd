// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

type mockService struct {
	name string
}

func (m *mockService) Name() string {
	return m.name
}

type mockInitializer struct {
	mockService
	initCount int
	initFn    func() error
}

func (m *mockInitializer) Init() error {
	m.initCount++
	if m.initFn != nil {
		return m.initFn()
	}
	return nil
}

type mockInitShutdownService struct {
	mockService
	initCount     int
	shutdownCount int
	initFn        func() error
	shutdownFn    func() error
}

func (m *mockInitShutdownService) Init() error {
	m.initCount++
	if m.initFn != nil {
		return m.initFn()
	}
	return nil
}

func (m *mockInitShutdownService) Shutdown() error {
	m.shutdownCount++
	if m.shutdownFn != nil {
		return m.shutdownFn()
	}
	return nil
}

type mockRunner struct {
	mockService
	runCount      int
	shutdownCount int
	runFn         func(ctx context.Context) error
}

func (m *mockRunner) Run(ctx context.Context) error {
	m.runCount++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockRunner) Shutdown() error {
	m.shutdownCount++
	return nil
}
