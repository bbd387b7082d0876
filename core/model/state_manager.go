package model

import (
	"sync"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// StateManager はモデルの学習状態をスレッドセーフに管理する。
// 推定器はBaseEstimatorの埋め込みではなくコンポジションで保持する
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager は未学習状態のStateManagerを作成する
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted はモデルが学習済みかどうかを返す
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted は学習済み状態にし、学習時の次元を記録する
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset は未学習状態に戻す
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions は学習時の特徴量数とサンプル数を返す
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequirePredictable は学習済みで、Xの特徴量数が学習時と一致することを確認する
func (s *StateManager) RequirePredictable(modelName string, X interface{ Dims() (int, int) }) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fitted {
		return errors.NewNotFittedError(modelName, "Predict")
	}
	if _, c := X.Dims(); c != s.nFeatures {
		return errors.NewDimensionError(modelName+".Predict", s.nFeatures, c, 1)
	}
	return nil
}
