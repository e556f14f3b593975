package classifier

// accuracy returns the fraction of predictions matching truth.
func accuracy(pred, truth []int) float64 {
	if len(truth) == 0 {
		return 0
	}

	correct := 0
	for i := range truth {
		if pred[i] == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// weightedF1 returns the per-class F1 score averaged by class support.
func weightedF1(pred, truth []int, classes int) float64 {
	if len(truth) == 0 {
		return 0
	}

	tp := make([]float64, classes)
	fp := make([]float64, classes)
	fn := make([]float64, classes)
	support := make([]float64, classes)

	for i := range truth {
		support[truth[i]]++
		if pred[i] == truth[i] {
			tp[truth[i]]++
		} else {
			fp[pred[i]]++
			fn[truth[i]]++
		}
	}

	score := 0.0
	for c := range support {
		if support[c] == 0 {
			continue
		}

		denom := 2*tp[c] + fp[c] + fn[c]
		if denom > 0 {
			score += support[c] * (2 * tp[c] / denom)
		}
	}
	return score / float64(len(truth))
}
