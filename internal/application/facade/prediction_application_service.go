package facade

import (
	"context"
	"fmt"

	"go-realtime-template/internal/port/inbound"
)

// FeatureCount is the number of inputs the built-in model expects.
const FeatureCount = 4

var ErrFeatureCount = fmt.Errorf("expected exactly %d features", FeatureCount)

// PredictionApplicationService scores feature vectors with a placeholder
// model that returns their mean.
type PredictionApplicationService struct{}

var _ inbound.PredictionUseCase = (*PredictionApplicationService)(nil)

func NewPredictionApplicationService() *PredictionApplicationService {
	return &PredictionApplicationService{}
}

func (s *PredictionApplicationService) Predict(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != FeatureCount {
		return 0, ErrFeatureCount
	}

	var sum float64
	for _, f := range features {
		sum += f
	}
	return sum / float64(len(features)), nil
}
