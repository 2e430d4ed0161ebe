// Package model provides estimator interfaces and shared state management.
package model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Estimators compose it instead of embedding a base type.
type StateManager struct {
	mu     sync.RWMutex
	name   string
	fitted bool

	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager for the named model.
func NewStateManager(name string) *StateManager {
	return &StateManager{name: name}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted with the dimensions seen during fitting.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.name, method)
	}
	return nil
}

// CheckFeatures returns a DimensionError when X does not have the number of
// columns seen during fitting.
func (s *StateManager) CheckFeatures(method string, X mat.Matrix) error {
	if err := s.RequireFitted(method); err != nil {
		return err
	}
	nFeatures, _ := s.GetDimensions()
	if _, c := X.Dims(); c != nFeatures {
		return errors.NewDimensionError(s.name+"."+method, nFeatures, c, 1)
	}
	return nil
}
