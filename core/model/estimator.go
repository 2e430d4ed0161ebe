package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は分類器では正解率 (accuracy) を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator は学習と予測ができるモデル
type Estimator interface {
	Fitter
	Predictor
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// Classes returns the sorted class labels seen during fitting.
	Classes() []float64
}
