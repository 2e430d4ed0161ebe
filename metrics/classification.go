// Package metrics provides scoring functions for fitted classifiers.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// labelVectors は列ベクトル（n×1行列）2つを検証してスライスに変換する
func labelVectors(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty label vector")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}

	t := make([]float64, rTrue)
	p := make([]float64, rTrue)
	for i := 0; i < rTrue; i++ {
		t[i] = yTrue.At(i, 0)
		p[i] = yPred.At(i, 0)
	}
	return t, p, nil
}

// AccuracyScore は正解率（予測ラベルが正解と一致した割合）を計算する
func AccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := labelVectors("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// BalancedAccuracyScore はクラスごとの再現率の平均を計算する。
// yTrueに現れるクラスのみを対象とする。
func BalancedAccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := labelVectors("BalancedAccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	support := make(map[float64]int)
	hits := make(map[float64]int)
	for i := range t {
		support[t[i]]++
		if t[i] == p[i] {
			hits[t[i]]++
		}
	}

	var sum float64
	for c, n := range support {
		sum += float64(hits[c]) / float64(n)
	}
	return sum / float64(len(support)), nil
}

// ConfusionMatrix は混同行列を計算する。
// 行が正解ラベル、列が予測ラベル。labelsがnilの場合は両方に現れるラベルを昇順に使う。
// labelsに含まれないラベルを持つサンプルは無視される。
func ConfusionMatrix(yTrue, yPred mat.Matrix, labels []float64) (*mat.Dense, []float64, error) {
	t, p, err := labelVectors("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	if labels == nil {
		labels = UniqueLabels(t, p)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "labels must not be empty")
	}

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, nil, errors.NewValidationError("labels", "duplicate label", l)
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range t {
		r, okT := index[t[i]]
		c, okP := index[p[i]]
		if !okT || !okP {
			continue
		}
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// UniqueLabels は与えられたラベル列に現れる値を昇順・重複なしで返す
func UniqueLabels(ys ...[]float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, y := range ys {
		for _, v := range y {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Float64s(out)
	return out
}
