package model

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// SKLearnCompatible はscikit-learn互換のインターフェース
type SKLearnCompatible interface {
	// GetParams はモデルのハイパーパラメータを取得
	GetParams(deep bool) map[string]interface{}

	// SetParams はモデルのハイパーパラメータを設定
	SetParams(params map[string]interface{}) error

	// Clone はモデルの新しい未学習インスタンスを同じパラメータで作成
	Clone() SKLearnCompatible
}

// CloneableEstimator は交差検証で複製して使える推定器
type CloneableEstimator interface {
	Estimator
	SKLearnCompatible
}

// DecisionFunctioner は決定関数の値を返せる分類器
type DecisionFunctioner interface {
	// DecisionFunction は決定関数の値を計算
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// CloneEstimator はestを複製し、CloneableEstimatorとして返す
func CloneEstimator(est CloneableEstimator) (CloneableEstimator, error) {
	c, ok := est.Clone().(CloneableEstimator)
	if !ok {
		return nil, errors.NewModelError("CloneEstimator", "clone is not an estimator",
			fmt.Errorf("%T", est))
	}
	return c, nil
}

// ParamNames はパラメータ名をソートして返す（エラーメッセージ用）
func ParamNames(params map[string]interface{}) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// ParamFloat はSetParamsに渡された値をfloat64に変換する
func ParamFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, "must be a number", v)
	}
}

// ParamInt はSetParamsに渡された値をintに変換する。小数部を持つ値はエラー
func ParamInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
}

// ParamString はSetParamsに渡された値をstringに変換する
func ParamString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "must be a string", v)
	}
	return s, nil
}
