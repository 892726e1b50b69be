/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package anomaly

import (
	"math"
	"math/rand/v2"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"golang.org/x/exp/slices"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	DefaultNumTrees      = 100
	DefaultSampleSize    = 256
	DefaultContamination = 0.1
	MaxContamination     = 0.5

	eulerGamma = 0.5772156649015329
)

// OutlierModel scores sensor vectors with an isolation forest. Train replaces the model wholesale.
type OutlierModel struct {
	NumTrees      int
	SampleSize    int
	LoggingClient logger.LoggingClient
	model         *TrainedModel
}

// TrainedModel is an immutable fitted forest plus the statistics needed to normalize its scores.
type TrainedModel struct {
	Mean          [twin.NumFeatures]float64
	Scale         [twin.NumFeatures]float64
	Contamination float64
	Seed          uint64
	trees         []*isolationNode
	subsampleSize int
	rawMin        float64
	rawMax        float64
	offset        float64
	// standardized per-feature range of the training data
	lower [twin.NumFeatures]float64
	upper [twin.NumFeatures]float64
}

type isolationNode struct {
	feature int
	split   float64
	left    *isolationNode
	right   *isolationNode
	size    int
	isLeaf  bool
}

func NewOutlierModel(lc logger.LoggingClient) *OutlierModel {
	return &OutlierModel{
		NumTrees:      DefaultNumTrees,
		SampleSize:    DefaultSampleSize,
		LoggingClient: lc,
	}
}

func (m *OutlierModel) IsTrained() bool {
	return m.model != nil
}

// Model returns the current fitted model or nil.
func (m *OutlierModel) Model() *TrainedModel {
	return m.model
}

// Train fits a new forest on samples. On error the previously trained model stays in place.
func (m *OutlierModel) Train(samples [][]float64, contamination float64, seed uint64) error {
	if math.IsNaN(contamination) || contamination <= 0 || contamination > MaxContamination {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
			"contamination must be in (0, %.1f], got %v", MaxContamination, contamination)
	}
	if len(samples) < twin.NumFeatures {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput,
			"at least %d training samples are required, got %d", twin.NumFeatures, len(samples))
	}
	for i, sample := range samples {
		if err := twin.ValidateSample(sample); err != nil {
			return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "training sample %d: %s", i, err.Error())
		}
	}
	numTrees := m.NumTrees
	if numTrees <= 0 {
		numTrees = DefaultNumTrees
	}
	sampleSize := m.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	model := &TrainedModel{Contamination: contamination, Seed: seed}
	model.fitScaler(samples)
	standardized := make([][]float64, len(samples))
	for i, sample := range samples {
		standardized[i] = model.standardize(sample)
	}
	model.fitRange(standardized)

	model.subsampleSize = min(sampleSize, len(standardized))
	maxDepth := int(math.Ceil(math.Log2(float64(model.subsampleSize))))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	model.trees = make([]*isolationNode, numTrees)
	for t := 0; t < numTrees; t++ {
		treeRng := rand.New(rand.NewPCG(rng.Uint64(), uint64(t)))
		subsample := drawSubsample(standardized, model.subsampleSize, treeRng)
		model.trees[t] = buildTree(subsample, 0, maxDepth, treeRng)
	}

	raw := make([]float64, len(standardized))
	for i, row := range standardized {
		raw[i] = model.rawScore(row)
	}
	slices.Sort(raw)
	model.rawMin = raw[0]
	model.rawMax = raw[len(raw)-1]
	model.offset = quantile(raw, 1-contamination)

	m.model = model
	if m.LoggingClient != nil {
		m.LoggingClient.Infof("outlier model trained: samples=%d trees=%d subsample=%d threshold=%.4f",
			len(samples), numTrees, model.subsampleSize, model.DecisionThreshold())
	}
	return nil
}

// Score returns the normalized failure-risk score of sample in [0,1].
func (m *OutlierModel) Score(sample []float64) (float64, error) {
	if m.model == nil {
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeNotTrained, "outlier model has not been trained")
	}
	return m.model.Score(sample)
}

// DecisionThreshold is the normalized score at or above which the model itself calls a sample an outlier.
func (m *OutlierModel) DecisionThreshold() (float64, error) {
	if m.model == nil {
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeNotTrained, "outlier model has not been trained")
	}
	return m.model.DecisionThreshold(), nil
}

func (tm *TrainedModel) Score(sample []float64) (float64, error) {
	if err := twin.ValidateSample(sample); err != nil {
		return 0, err
	}
	return tm.normalize(tm.rawScore(tm.standardize(sample))), nil
}

func (tm *TrainedModel) DecisionThreshold() float64 {
	return tm.normalize(tm.offset)
}

func (tm *TrainedModel) IsOutlier(score float64) bool {
	return score >= tm.DecisionThreshold()
}

func (tm *TrainedModel) NumTrees() int {
	return len(tm.trees)
}

func (tm *TrainedModel) fitScaler(samples [][]float64) {
	n := float64(len(samples))
	for f := 0; f < twin.NumFeatures; f++ {
		sum := 0.0
		for _, s := range samples {
			sum += s[f]
		}
		mean := sum / n
		variance := 0.0
		for _, s := range samples {
			d := s[f] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / n)
		if std == 0 {
			std = 1
		}
		tm.Mean[f] = mean
		tm.Scale[f] = std
	}
}

func (tm *TrainedModel) fitRange(rows [][]float64) {
	tm.lower, tm.upper = [twin.NumFeatures]float64(rows[0]), [twin.NumFeatures]float64(rows[0])
	for _, r := range rows[1:] {
		for f := range tm.lower {
			tm.lower[f] = math.Min(tm.lower[f], r[f])
			tm.upper[f] = math.Max(tm.upper[f], r[f])
		}
	}
}

func (tm *TrainedModel) outOfRange(x []float64, feature int) bool {
	return x[feature] < tm.lower[feature] || x[feature] > tm.upper[feature]
}

func (tm *TrainedModel) standardize(sample []float64) []float64 {
	out := make([]float64, twin.NumFeatures)
	for f := range out {
		out[f] = (sample[f] - tm.Mean[f]) / tm.Scale[f]
	}
	return out
}

func (tm *TrainedModel) rawScore(x []float64) float64 {
	total := 0.0
	for _, tree := range tm.trees {
		total += tm.pathLength(x, tree, 0)
	}
	mean := total / float64(len(tm.trees))
	c := averagePathLength(tm.subsampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

func (tm *TrainedModel) normalize(raw float64) float64 {
	span := tm.rawMax - tm.rawMin
	if span <= 0 {
		if raw > tm.rawMax {
			return 1
		}
		return 0
	}
	return math.Min(1, math.Max(0, (raw-tm.rawMin)/span))
}

func drawSubsample(rows [][]float64, size int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(rows))
	out := make([][]float64, size)
	for i := 0; i < size; i++ {
		out[i] = rows[perm[i]]
	}
	return out
}

func buildTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *isolationNode {
	if len(rows) <= 1 || depth >= maxDepth {
		return &isolationNode{isLeaf: true, size: len(rows)}
	}

	var candidates []int
	var lows, highs [twin.NumFeatures]float64
	for f := 0; f < twin.NumFeatures; f++ {
		lo, hi := rows[0][f], rows[0][f]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[f])
			hi = math.Max(hi, r[f])
		}
		lows[f], highs[f] = lo, hi
		if hi > lo {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return &isolationNode{isLeaf: true, size: len(rows)}
	}

	feature := candidates[rng.IntN(len(candidates))]
	split := lows[feature] + rng.Float64()*(highs[feature]-lows[feature])
	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &isolationNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, maxDepth, rng),
		right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

// pathLength stops at the first split on a feature where x lies outside the training range.
func (tm *TrainedModel) pathLength(x []float64, node *isolationNode, depth int) float64 {
	if node.isLeaf {
		return float64(depth) + averagePathLength(node.size)
	}
	if tm.outOfRange(x, node.feature) {
		return float64(depth)
	}
	if x[node.feature] < node.split {
		return tm.pathLength(x, node.left, depth+1)
	}
	return tm.pathLength(x, node.right, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// quantile of sorted values with linear interpolation.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
