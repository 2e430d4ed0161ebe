// Package preprocessing はパイプラインの前処理ステップとして使うスケーラーを提供します。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// 定数特徴量とみなすスケールの閾値
const constantFeatureTol = 1e-8

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（定数特徴量は1）
	Scale []float64

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager("StandardScaler"),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd {
			if std := math.Sqrt(math.Max(variance, 0)); std >= constantFeatureTol {
				s.Scale[j] = std
			}
		}
	}
	if err := errors.CheckNumericalStability("StandardScaler.Fit", s.Scale, 0); err != nil {
		return err
	}

	s.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("InverseTransform"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("InverseTransform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// SetParams はパラメータを設定し、学習状態をリセットする
func (s *StandardScaler) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		b, ok := value.(bool)
		if !ok {
			return errors.NewValidationError(key, "must be a bool", value)
		}
		switch key {
		case "with_mean":
			s.WithMean = b
		case "with_std":
			s.WithStd = b
		default:
			return errors.NewValidationError(key,
				"unknown parameter for StandardScaler (valid: "+model.ParamNames(s.GetParams(false))+")", value)
		}
	}
	s.state.Reset()
	return nil
}

// Clone は同じパラメータを持つ未学習のスケーラーを返す
func (s *StandardScaler) Clone() model.SKLearnCompatible {
	return NewStandardScaler(s.WithMean, s.WithStd)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	nFeatures, _ := s.state.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, nFeatures)
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// データを指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	state *model.StateManager

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// DataRange は各特徴量の max - min（定数特徴量は1）
	DataRange []float64

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
//	XScaled, err := scaler.FitTransform(X)
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		state:        model.NewStateManager("MinMaxScaler"),
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if !(m.FeatureRange[0] < m.FeatureRange[1]) {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.DataRange = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.DataMin[j] = floats.Min(col)
		m.DataMax[j] = floats.Max(col)
		m.DataRange[j] = m.DataMax[j] - m.DataMin[j]
		if m.DataRange[j] < constantFeatureTol {
			m.DataRange[j] = 1
		}
	}

	m.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの最小値・最大値を使ってデータをスケーリングする
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	if err := m.state.CheckFeatures("Transform", X); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	// X_scaled = (X - data_min) / data_range * (max - min) + min
	result.Apply(func(_, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.DataRange[j]*width + lo
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("InverseTransform"); err != nil {
		return nil, err
	}
	if err := m.state.CheckFeatures("InverseTransform", X); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v-lo)/width*m.DataRange[j] + m.DataMin[j]
	}, X)
	return result, nil
}

// IsFitted reports whether Fit has completed.
func (m *MinMaxScaler) IsFitted() bool {
	return m.state.IsFitted()
}

// GetParams はスケーラーのパラメータを取得する
func (m *MinMaxScaler) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.FeatureRange,
	}
}

// SetParams はパラメータを設定し、学習状態をリセットする
func (m *MinMaxScaler) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		if key != "feature_range" {
			return errors.NewValidationError(key,
				"unknown parameter for MinMaxScaler (valid: feature_range)", value)
		}
		switch v := value.(type) {
		case [2]float64:
			m.FeatureRange = v
		case []float64:
			if len(v) != 2 {
				return errors.NewValidationError(key, "must have two elements", value)
			}
			m.FeatureRange = [2]float64{v[0], v[1]}
		default:
			return errors.NewValidationError(key, "must be a [min, max] pair", value)
		}
	}
	m.state.Reset()
	return nil
}

// Clone は同じパラメータを持つ未学習のスケーラーを返す
func (m *MinMaxScaler) Clone() model.SKLearnCompatible {
	return NewMinMaxScaler(m.FeatureRange)
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f])",
			m.FeatureRange[0], m.FeatureRange[1])
	}
	nFeatures, _ := m.state.GetDimensions()
	return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], nFeatures)
}

var (
	_ model.CloneableTransformer = (*StandardScaler)(nil)
	_ model.CloneableTransformer = (*MinMaxScaler)(nil)
)
