// Package pipeline chains preprocessing transformers with a final estimator.
package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/metrics"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// ParamSeparator separates a step name from a parameter name, as in "svc__gamma".
const ParamSeparator = "__"

// Step is a named preprocessing step.
type Step struct {
	Name        string
	Transformer model.CloneableTransformer
}

// Pipeline applies its steps in order and then the final estimator.
// Compatible with scikit-learn's Pipeline for the subset used here:
// parameters are addressed as "<step>__<param>".
type Pipeline struct {
	state     *model.StateManager
	steps     []Step
	finalName string
	final     model.CloneableEstimator
}

// New creates a pipeline. Step names must be unique, non-empty and must
// not contain ParamSeparator.
func New(finalName string, final model.CloneableEstimator, steps ...Step) (*Pipeline, error) {
	seen := map[string]bool{}
	for _, name := range append(stepNames(steps), finalName) {
		if name == "" || strings.Contains(name, ParamSeparator) {
			return nil, errors.NewValidationError("steps", "invalid step name", name)
		}
		if seen[name] {
			return nil, errors.NewValidationError("steps", "duplicate step name", name)
		}
		seen[name] = true
	}
	if final == nil {
		return nil, errors.NewValidationError("steps", "final estimator is required", finalName)
	}
	for _, s := range steps {
		if s.Transformer == nil {
			return nil, errors.NewValidationError("steps", "transformer is nil", s.Name)
		}
	}
	return &Pipeline{
		state:     model.NewStateManager("Pipeline"),
		steps:     append([]Step(nil), steps...),
		finalName: finalName,
		final:     final,
	}, nil
}

func stepNames(steps []Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

// Steps returns the preprocessing steps.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Final returns the final estimator.
func (p *Pipeline) Final() model.CloneableEstimator {
	return p.final
}

// Fit fits every step on the output of the previous one, then the final estimator.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	Xt := X
	for _, s := range p.steps {
		Xt, err = s.Transformer.FitTransform(Xt)
		if err != nil {
			return errors.Wrapf(err, "pipeline step %q", s.Name)
		}
	}
	if err := p.final.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "pipeline step %q", p.finalName)
	}
	r, c := X.Dims()
	p.state.SetFitted(c, r)
	return nil
}

func (p *Pipeline) transform(method string, X mat.Matrix) (mat.Matrix, error) {
	if err := p.state.CheckFeatures(method, X); err != nil {
		return nil, err
	}
	Xt := X
	for _, s := range p.steps {
		var err error
		Xt, err = s.Transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", s.Name)
		}
	}
	return Xt, nil
}

// Predict transforms X through the steps and predicts with the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform("Predict", X)
	if err != nil {
		return nil, err
	}
	return p.final.Predict(Xt)
}

// DecisionFunction is available when the final estimator provides one.
func (p *Pipeline) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	df, ok := p.final.(model.DecisionFunctioner)
	if !ok {
		return nil, errors.NewValueError("Pipeline.DecisionFunction",
			fmt.Sprintf("final step %q has no decision function", p.finalName))
	}
	Xt, err := p.transform("DecisionFunction", X)
	if err != nil {
		return nil, err
	}
	return df.DecisionFunction(Xt)
}

// Score uses the final estimator's Score, or accuracy when it has none.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	Xt, err := p.transform("Score", X)
	if err != nil {
		return 0, err
	}
	if s, ok := p.final.(model.Scorer); ok {
		return s.Score(Xt, y)
	}
	pred, err := p.final.Predict(Xt)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScore(y, pred)
}

// Classes returns the final estimator's classes, or nil for non-classifiers.
func (p *Pipeline) Classes() []float64 {
	if c, ok := p.final.(model.Classifier); ok {
		return c.Classes()
	}
	return nil
}

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool {
	return p.state.IsFitted()
}

// GetParams returns the parameters of every step, prefixed with the step name.
// deep=false returns nothing, since a pipeline has no parameters of its own.
func (p *Pipeline) GetParams(deep bool) map[string]interface{} {
	params := map[string]interface{}{}
	if !deep {
		return params
	}
	for _, s := range p.steps {
		for k, v := range s.Transformer.GetParams(true) {
			params[s.Name+ParamSeparator+k] = v
		}
	}
	for k, v := range p.final.GetParams(true) {
		params[p.finalName+ParamSeparator+k] = v
	}
	return params
}

// SetParams routes "<step>__<param>" keys to the named step.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	routed := map[string]map[string]interface{}{}
	for key, value := range params {
		step, name, ok := strings.Cut(key, ParamSeparator)
		if !ok || p.component(step) == nil {
			return errors.NewValidationError(key,
				"unknown parameter for Pipeline (valid: "+model.ParamNames(p.GetParams(true))+")", value)
		}
		if routed[step] == nil {
			routed[step] = map[string]interface{}{}
		}
		routed[step][name] = value
	}
	for step, sub := range routed {
		if err := p.component(step).SetParams(sub); err != nil {
			return err
		}
	}
	p.state.Reset()
	return nil
}

func (p *Pipeline) component(name string) model.SKLearnCompatible {
	if name == p.finalName {
		return p.final
	}
	for _, s := range p.steps {
		if s.Name == name {
			return s.Transformer
		}
	}
	return nil
}

// Clone returns an unfitted pipeline whose steps are clones of this one's.
func (p *Pipeline) Clone() model.SKLearnCompatible {
	steps := make([]Step, len(p.steps))
	for i, s := range p.steps {
		t, ok := s.Transformer.Clone().(model.CloneableTransformer)
		if !ok {
			panic(fmt.Sprintf("pipeline: clone of step %q is not a transformer", s.Name))
		}
		steps[i] = Step{Name: s.Name, Transformer: t}
	}
	final, err := model.CloneEstimator(p.final)
	if err != nil {
		panic(err)
	}
	return &Pipeline{
		state:     model.NewStateManager("Pipeline"),
		steps:     steps,
		finalName: p.finalName,
		final:     final,
	}
}

func (p *Pipeline) String() string {
	names := append(stepNames(p.steps), p.finalName)
	return "Pipeline(" + strings.Join(names, " -> ") + ")"
}

var _ model.CloneableEstimator = (*Pipeline)(nil)
